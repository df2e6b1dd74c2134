// Package services wires template rendering, safety checks, and execution
// into the operations route handlers call.
package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quilldata/quill-engine/pkg/models"
	"github.com/quilldata/quill-engine/pkg/repositories"
)

// AccessService decides whether a question is one a dashboard's author
// intended to expose to public (token-authenticated) viewers.
type AccessService interface {
	// IsQuestionAccessible returns true if the question is directly
	// embedded in the dashboard, or is the drill-down target of an enabled
	// link_to_question click behavior on an embedded card.
	IsQuestionAccessible(ctx context.Context, dashboardID, questionID uuid.UUID) (bool, error)
}

type accessService struct {
	dashboards repositories.DashboardRepository
	logger     *zap.Logger
}

// NewAccessService creates an access service.
func NewAccessService(dashboards repositories.DashboardRepository, logger *zap.Logger) AccessService {
	return &accessService{dashboards: dashboards, logger: logger}
}

func (s *accessService) IsQuestionAccessible(ctx context.Context, dashboardID, questionID uuid.UUID) (bool, error) {
	cards, err := s.dashboards.GetCards(ctx, dashboardID)
	if err != nil {
		return false, err
	}

	for _, card := range cards {
		if card.QuestionID == questionID {
			return true, nil
		}
	}

	for _, card := range cards {
		cb := card.ClickBehavior
		if cb == nil || !cb.Enabled {
			continue
		}
		if cb.Action == models.ClickActionLinkToQuestion && cb.TargetID == questionID {
			return true, nil
		}
	}

	return false, nil
}

var _ AccessService = (*accessService)(nil)
