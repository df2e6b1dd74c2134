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

// QuestionRepository defines data access for saved questions.
type QuestionRepository interface {
	Create(ctx context.Context, q *models.Question) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type questionRepository struct {
	db *database.DB
}

// NewQuestionRepository creates a question repository backed by the
// metadata database.
func NewQuestionRepository(db *database.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) Create(ctx context.Context, q *models.Question) error {
	now := time.Now()
	q.CreatedAt = now
	q.UpdatedAt = now

	params, err := json.Marshal(q.Parameters)
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}

	query := `
		INSERT INTO quill_questions (name, connection_id, sql_template, parameters, row_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err = r.db.QueryRow(ctx, query,
		q.Name,
		q.ConnectionID,
		q.SQLTemplate,
		params,
		q.RowLimit,
		q.CreatedAt,
		q.UpdatedAt,
	).Scan(&q.ID)
	if err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

func (r *questionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	query := `
		SELECT id, name, connection_id, sql_template, parameters, row_limit, created_at, updated_at
		FROM quill_questions
		WHERE id = $1`

	var (
		q      models.Question
		params []byte
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&q.ID,
		&q.Name,
		&q.ConnectionID,
		&q.SQLTemplate,
		&params,
		&q.RowLimit,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("question %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	if len(params) > 0 {
		if err := json.Unmarshal(params, &q.Parameters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal parameters: %w", err)
		}
	}
	return &q, nil
}

func (r *questionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quill_questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("question %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

var _ QuestionRepository = (*questionRepository)(nil)
