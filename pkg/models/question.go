package models

import (
	"time"

	"github.com/google/uuid"
)

// QueryParameter defines a single named parameter a question's SQL template
// accepts. Parameters referenced only inside optional [[...]] blocks are
// effectively optional regardless of the Required flag; Required documents
// author intent for UI rendering.
type QueryParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, integer, decimal, boolean, date, timestamp
	DisplayName string `json:"display_name"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
}

// Question is a saved parameterized SQL template bound to one connection.
type Question struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	ConnectionID uuid.UUID        `json:"connection_id"`
	SQLTemplate  string           `json:"sql_template"`
	Parameters   []QueryParameter `json:"parameters,omitempty"`
	RowLimit     int              `json:"row_limit"` // 0 means use the server default
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
