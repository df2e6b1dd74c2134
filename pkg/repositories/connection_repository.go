// Package repositories provides data access to the engine's metadata
// database. Encryption of connection passwords happens in the service
// layer; repositories only ever see ciphertext.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quilldata/quill-engine/pkg/apperrors"
	"github.com/quilldata/quill-engine/pkg/database"
	"github.com/quilldata/quill-engine/pkg/models"
)

// ConnectionRepository defines data access for external connection records.
type ConnectionRepository interface {
	// Create inserts a new connection. Returns ErrConflict if the name exists.
	Create(ctx context.Context, conn *models.Connection, encryptedPassword string) error

	// GetByID retrieves a connection and its encrypted password.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Connection, string, error)

	// List retrieves all registered connections. Passwords are not returned.
	List(ctx context.Context) ([]*models.Connection, error)

	// Delete removes a connection by ID.
	Delete(ctx context.Context, id uuid.UUID) error
}

type connectionRepository struct {
	db *database.DB
}

// NewConnectionRepository creates a connection repository backed by the
// metadata database.
func NewConnectionRepository(db *database.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) Create(ctx context.Context, conn *models.Connection, encryptedPassword string) error {
	now := time.Now()
	conn.CreatedAt = now
	conn.UpdatedAt = now

	query := `
		INSERT INTO quill_connections (name, dialect, host, port, db_user, db_name, encrypted_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		conn.Name,
		string(conn.Dialect),
		conn.Host,
		conn.Port,
		conn.User,
		conn.Database,
		encryptedPassword,
		conn.CreatedAt,
		conn.UpdatedAt,
	).Scan(&conn.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("connection %q: %w", conn.Name, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create connection: %w", err)
	}
	return nil
}

func (r *connectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Connection, string, error) {
	query := `
		SELECT id, name, dialect, host, port, db_user, db_name, encrypted_password, created_at, updated_at
		FROM quill_connections
		WHERE id = $1`

	var (
		conn              models.Connection
		dialect           string
		encryptedPassword string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&conn.ID,
		&conn.Name,
		&dialect,
		&conn.Host,
		&conn.Port,
		&conn.User,
		&conn.Database,
		&encryptedPassword,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", fmt.Errorf("connection %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, "", fmt.Errorf("failed to get connection: %w", err)
	}

	conn.Dialect = models.Dialect(dialect)
	return &conn, encryptedPassword, nil
}

func (r *connectionRepository) List(ctx context.Context) ([]*models.Connection, error) {
	query := `
		SELECT id, name, dialect, host, port, db_user, db_name, created_at, updated_at
		FROM quill_connections
		ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var conns []*models.Connection
	for rows.Next() {
		var (
			conn    models.Connection
			dialect string
		)
		if err := rows.Scan(
			&conn.ID,
			&conn.Name,
			&dialect,
			&conn.Host,
			&conn.Port,
			&conn.User,
			&conn.Database,
			&conn.CreatedAt,
			&conn.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conn.Dialect = models.Dialect(dialect)
		conns = append(conns, &conn)
	}
	return conns, rows.Err()
}

func (r *connectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quill_connections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("connection %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

var _ ConnectionRepository = (*connectionRepository)(nil)
