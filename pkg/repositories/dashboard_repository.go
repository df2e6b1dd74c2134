package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quilldata/quill-engine/pkg/apperrors"
	"github.com/quilldata/quill-engine/pkg/database"
	"github.com/quilldata/quill-engine/pkg/models"
)

// DashboardRepository defines data access for dashboards and their cards.
type DashboardRepository interface {
	Create(ctx context.Context, d *models.Dashboard) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dashboard, error)
	AddCard(ctx context.Context, card *models.DashboardCard) error

	// GetCards returns all cards embedded in a dashboard, including click
	// behaviors. This is the join data the drill-down accessibility check
	// runs over.
	GetCards(ctx context.Context, dashboardID uuid.UUID) ([]*models.DashboardCard, error)
}

type dashboardRepository struct {
	db *database.DB
}

// NewDashboardRepository creates a dashboard repository backed by the
// metadata database.
func NewDashboardRepository(db *database.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) Create(ctx context.Context, d *models.Dashboard) error {
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now

	filters, err := json.Marshal(d.Filters)
	if err != nil {
		return fmt.Errorf("failed to marshal filters: %w", err)
	}

	query := `
		INSERT INTO quill_dashboards (name, public, filters, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err = r.db.QueryRow(ctx, query, d.Name, d.Public, filters, d.CreatedAt, d.UpdatedAt).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}
	return nil
}

func (r *dashboardRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dashboard, error) {
	query := `
		SELECT id, name, public, filters, created_at, updated_at
		FROM quill_dashboards
		WHERE id = $1`

	var (
		d       models.Dashboard
		filters []byte
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID,
		&d.Name,
		&d.Public,
		&filters,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("dashboard %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get dashboard: %w", err)
	}

	if len(filters) > 0 {
		if err := json.Unmarshal(filters, &d.Filters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal filters: %w", err)
		}
	}
	return &d, nil
}

func (r *dashboardRepository) AddCard(ctx context.Context, card *models.DashboardCard) error {
	var clickBehavior []byte
	if card.ClickBehavior != nil {
		var err error
		clickBehavior, err = json.Marshal(card.ClickBehavior)
		if err != nil {
			return fmt.Errorf("failed to marshal click behavior: %w", err)
		}
	}

	query := `
		INSERT INTO quill_dashboard_cards (dashboard_id, question_id, click_behavior, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.db.QueryRow(ctx, query, card.DashboardID, card.QuestionID, clickBehavior, card.Position).Scan(&card.ID)
	if err != nil {
		return fmt.Errorf("failed to add dashboard card: %w", err)
	}
	return nil
}

func (r *dashboardRepository) GetCards(ctx context.Context, dashboardID uuid.UUID) ([]*models.DashboardCard, error) {
	query := `
		SELECT id, dashboard_id, question_id, click_behavior, position
		FROM quill_dashboard_cards
		WHERE dashboard_id = $1
		ORDER BY position`

	rows, err := r.db.Query(ctx, query, dashboardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboard cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.DashboardCard
	for rows.Next() {
		var (
			card          models.DashboardCard
			clickBehavior []byte
		)
		if err := rows.Scan(&card.ID, &card.DashboardID, &card.QuestionID, &clickBehavior, &card.Position); err != nil {
			return nil, fmt.Errorf("failed to scan dashboard card: %w", err)
		}
		if len(clickBehavior) > 0 {
			card.ClickBehavior = &models.ClickBehavior{}
			if err := json.Unmarshal(clickBehavior, card.ClickBehavior); err != nil {
				return nil, fmt.Errorf("failed to unmarshal click behavior: %w", err)
			}
		}
		cards = append(cards, &card)
	}
	return cards, rows.Err()
}

var _ DashboardRepository = (*dashboardRepository)(nil)
