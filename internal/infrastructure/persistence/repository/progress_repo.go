package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/jthornton/solar-workflow/internal/application/port"
	"github.com/jthornton/solar-workflow/internal/domain/entity"
)

// ProgressRepository implements port.ProgressRepository
type ProgressRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *sql.DB, logger *zap.Logger) *ProgressRepository {
	return &ProgressRepository{
		db:     db,
		logger: logger,
	}
}

const progressColumns = `
	id, opportunity_id, user_id, current_step, total_steps, status,
	started_at, last_activity_at, completed_at, step_data,
	created_at, updated_at
`

// Create inserts a new workflow progress. A uniqueness violation on
// opportunity_id is reported as port.ErrDuplicate so the caller can recover
// from concurrent starts.
func (r *ProgressRepository) Create(ctx context.Context, progress *entity.WorkflowProgress) error {
	query := `
		INSERT INTO workflow_progress (
			opportunity_id, user_id, current_step, total_steps, status,
			started_at, last_activity_at, completed_at, step_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := pick(ctx, r.db).ExecContext(ctx, query,
		progress.OpportunityID,
		progress.UserID,
		progress.CurrentStep,
		progress.TotalSteps,
		progress.Status,
		progress.StartedAt,
		progress.LastActivityAt,
		nullTime(progress.CompletedAt),
		nullString(progress.StepData),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("progress for opportunity %s: %w", progress.OpportunityID, port.ErrDuplicate)
		}
		r.logger.Error("Failed to create progress", zap.Error(err))
		return fmt.Errorf("failed to create progress: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	progress.ID = id
	return nil
}

// GetByID retrieves a progress by ID
func (r *ProgressRepository) GetByID(ctx context.Context, id int64) (*entity.WorkflowProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM workflow_progress WHERE id = ?`
	return r.scanOne(pick(ctx, r.db).QueryRowContext(ctx, query, id))
}

// GetByOpportunityID retrieves a progress by opportunity ID, without steps
func (r *ProgressRepository) GetByOpportunityID(ctx context.Context, opportunityID string) (*entity.WorkflowProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM workflow_progress WHERE opportunity_id = ?`
	return r.scanOne(pick(ctx, r.db).QueryRowContext(ctx, query, opportunityID))
}

// GetWithSteps retrieves a progress with its steps ordered by step number
func (r *ProgressRepository) GetWithSteps(ctx context.Context, opportunityID string) (*entity.WorkflowProgress, error) {
	progress, err := r.GetByOpportunityID(ctx, opportunityID)
	if err != nil || progress == nil {
		return progress, err
	}

	steps, err := r.stepsFor(ctx, progress.ID)
	if err != nil {
		return nil, err
	}
	progress.Steps = steps
	return progress, nil
}

// Update persists pointer, status, timestamps and the data bag
func (r *ProgressRepository) Update(ctx context.Context, progress *entity.WorkflowProgress) error {
	query := `
		UPDATE workflow_progress
		SET current_step = ?, total_steps = ?, status = ?,
			last_activity_at = ?, completed_at = ?, step_data = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := pick(ctx, r.db).ExecContext(ctx, query,
		progress.CurrentStep,
		progress.TotalSteps,
		progress.Status,
		progress.LastActivityAt,
		nullTime(progress.CompletedAt),
		nullString(progress.StepData),
		progress.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update progress", zap.Int64("id", progress.ID), zap.Error(err))
		return fmt.Errorf("failed to update progress: %w", err)
	}

	return nil
}

// TouchActivity refreshes the last-activity timestamp
func (r *ProgressRepository) TouchActivity(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE workflow_progress SET last_activity_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	_, err := pick(ctx, r.db).ExecContext(ctx, query, at, id)
	if err != nil {
		r.logger.Error("Failed to touch activity", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to touch activity: %w", err)
	}

	return nil
}

// Delete removes a progress row
func (r *ProgressRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM workflow_progress WHERE id = ?`

	_, err := pick(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete progress", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete progress: %w", err)
	}

	return nil
}

// ListByUserID retrieves the workflows owned by a user, newest first
func (r *ProgressRepository) ListByUserID(ctx context.Context, userID int64) ([]*entity.WorkflowProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM workflow_progress WHERE user_id = ? ORDER BY created_at DESC`

	rows, err := pick(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list progress by user", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// ListAllWithSteps retrieves every workflow with steps hydrated
func (r *ProgressRepository) ListAllWithSteps(ctx context.Context) ([]*entity.WorkflowProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM workflow_progress ORDER BY last_activity_at DESC`

	rows, err := pick(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list all progress", zap.Error(err))
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	all, err := r.scanMany(rows)
	if err != nil {
		return nil, err
	}

	for _, progress := range all {
		steps, err := r.stepsFor(ctx, progress.ID)
		if err != nil {
			return nil, err
		}
		progress.Steps = steps
	}

	return all, nil
}

func (r *ProgressRepository) scanOne(row *sql.Row) (*entity.WorkflowProgress, error) {
	var progress entity.WorkflowProgress
	var completedAt sql.NullTime
	var stepData sql.NullString

	err := row.Scan(
		&progress.ID,
		&progress.OpportunityID,
		&progress.UserID,
		&progress.CurrentStep,
		&progress.TotalSteps,
		&progress.Status,
		&progress.StartedAt,
		&progress.LastActivityAt,
		&completedAt,
		&stepData,
		&progress.CreatedAt,
		&progress.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to scan progress", zap.Error(err))
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	if completedAt.Valid {
		progress.CompletedAt = &completedAt.Time
	}
	if stepData.Valid {
		progress.StepData = stepData.String
	}

	return &progress, nil
}

func (r *ProgressRepository) scanMany(rows *sql.Rows) ([]*entity.WorkflowProgress, error) {
	var result []*entity.WorkflowProgress
	for rows.Next() {
		var progress entity.WorkflowProgress
		var completedAt sql.NullTime
		var stepData sql.NullString

		err := rows.Scan(
			&progress.ID,
			&progress.OpportunityID,
			&progress.UserID,
			&progress.CurrentStep,
			&progress.TotalSteps,
			&progress.Status,
			&progress.StartedAt,
			&progress.LastActivityAt,
			&completedAt,
			&stepData,
			&progress.CreatedAt,
			&progress.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}

		if completedAt.Valid {
			progress.CompletedAt = &completedAt.Time
		}
		if stepData.Valid {
			progress.StepData = stepData.String
		}

		result = append(result, &progress)
	}

	return result, rows.Err()
}

func (r *ProgressRepository) stepsFor(ctx context.Context, progressID int64) ([]*entity.WorkflowStep, error) {
	query := `
		SELECT id, progress_id, step_number, step_kind, status, data,
			started_at, completed_at, created_at, updated_at
		FROM workflow_steps
		WHERE progress_id = ?
		ORDER BY step_number
	`

	rows, err := pick(ctx, r.db).QueryContext(ctx, query, progressID)
	if err != nil {
		return nil, fmt.Errorf("failed to load steps: %w", err)
	}
	defer rows.Close()

	return scanSteps(rows)
}

// nullTime converts an optional time into a driver-friendly value
func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// nullString converts "" into NULL
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Verify interface compliance
var _ port.ProgressRepository = (*ProgressRepository)(nil)
