package models

import (
	"time"

	"github.com/google/uuid"
)

// ClickAction enumerates what happens when a dashboard card is clicked.
type ClickAction string

const (
	ClickActionLinkToQuestion  ClickAction = "link_to_question"
	ClickActionLinkToDashboard ClickAction = "link_to_dashboard"
	ClickActionExternalURL     ClickAction = "external_url"
)

// ParameterMapping carries a column value from a clicked row into a target
// question's parameter bag.
type ParameterMapping struct {
	SourceColumn string `json:"source_column"`
	TargetParam  string `json:"target_param"`
}

// ClickBehavior governs drill-down navigation from one card. A question is a
// valid public navigation target only through an enabled link_to_question
// behavior on a card that is itself embedded in the dashboard.
type ClickBehavior struct {
	Enabled           bool               `json:"enabled"`
	Action            ClickAction        `json:"action"`
	TargetID          uuid.UUID          `json:"target_id"`
	ParameterMappings []ParameterMapping `json:"parameter_mappings,omitempty"`
}

// DashboardCard embeds one question in a dashboard.
type DashboardCard struct {
	ID            uuid.UUID      `json:"id"`
	DashboardID   uuid.UUID      `json:"dashboard_id"`
	QuestionID    uuid.UUID      `json:"question_id"`
	ClickBehavior *ClickBehavior `json:"click_behavior,omitempty"`
	Position      int            `json:"position"`
}

// FilterDefinition describes one dashboard-level filter. It is metadata used
// to synthesize SQL template fragments; it is never executed directly.
type FilterDefinition struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Column      string   `json:"column"`
	DataType    string   `json:"data_type"`
	Operator    string   `json:"operator"` // eq, neq, gt, gte, lt, lte, like
	Options     []string `json:"options,omitempty"`
}

// Dashboard is a named collection of question cards with shared filters.
type Dashboard struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	Public    bool               `json:"public"`
	Filters   []FilterDefinition `json:"filters,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
