package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/jthornton/solar-workflow/internal/application/port"
	"github.com/jthornton/solar-workflow/internal/domain/entity"
)

// UserRepository implements port.UserDirectory over the local users table
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// ResolveByExternalID retrieves an active user by external directory ID, or
// nil when no user carries it
func (r *UserRepository) ResolveByExternalID(ctx context.Context, externalID string) (*entity.User, error) {
	query := `
		SELECT id, external_id, name, email, active, created_at
		FROM users
		WHERE external_id = ? AND active = 1
	`
	return r.scanOne(pick(ctx, r.db).QueryRowContext(ctx, query, externalID))
}

// GetByID retrieves a user by internal ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `
		SELECT id, external_id, name, email, active, created_at
		FROM users
		WHERE id = ?
	`
	return r.scanOne(pick(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *UserRepository) scanOne(row *sql.Row) (*entity.User, error) {
	var user entity.User

	err := row.Scan(
		&user.ID,
		&user.ExternalID,
		&user.Name,
		&user.Email,
		&user.Active,
		&user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to scan user", zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// Verify interface compliance
var _ port.UserDirectory = (*UserRepository)(nil)
