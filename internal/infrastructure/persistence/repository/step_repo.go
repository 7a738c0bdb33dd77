package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/jthornton/solar-workflow/internal/application/port"
	"github.com/jthornton/solar-workflow/internal/domain/entity"
)

// StepRepository implements port.StepRepository
type StepRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStepRepository creates a new step repository
func NewStepRepository(db *sql.DB, logger *zap.Logger) *StepRepository {
	return &StepRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a single step
func (r *StepRepository) Create(ctx context.Context, step *entity.WorkflowStep) error {
	query := `
		INSERT INTO workflow_steps (
			progress_id, step_number, step_kind, status, data, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := pick(ctx, r.db).ExecContext(ctx, query,
		step.ProgressID,
		step.StepNumber,
		step.StepKind,
		step.Status,
		nullString(step.Data),
		nullTime(step.StartedAt),
		nullTime(step.CompletedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create step",
			zap.Int64("progress_id", step.ProgressID),
			zap.Int("step_number", step.StepNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create step: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	step.ID = id
	return nil
}

// CreateBatch inserts a set of steps, one per template
func (r *StepRepository) CreateBatch(ctx context.Context, steps []*entity.WorkflowStep) error {
	for _, step := range steps {
		if err := r.Create(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

// GetByProgressAndNumber retrieves one step, or nil when absent
func (r *StepRepository) GetByProgressAndNumber(ctx context.Context, progressID int64, stepNumber int) (*entity.WorkflowStep, error) {
	query := `
		SELECT id, progress_id, step_number, step_kind, status, data,
			started_at, completed_at, created_at, updated_at
		FROM workflow_steps
		WHERE progress_id = ? AND step_number = ?
	`

	row := pick(ctx, r.db).QueryRowContext(ctx, query, progressID, stepNumber)

	step, err := scanStep(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get step",
			zap.Int64("progress_id", progressID),
			zap.Int("step_number", stepNumber),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get step: %w", err)
	}

	return step, nil
}

// GetByProgressID retrieves all steps for a progress ordered by step number
func (r *StepRepository) GetByProgressID(ctx context.Context, progressID int64) ([]*entity.WorkflowStep, error) {
	query := `
		SELECT id, progress_id, step_number, step_kind, status, data,
			started_at, completed_at, created_at, updated_at
		FROM workflow_steps
		WHERE progress_id = ?
		ORDER BY step_number
	`

	rows, err := pick(ctx, r.db).QueryContext(ctx, query, progressID)
	if err != nil {
		r.logger.Error("Failed to list steps", zap.Int64("progress_id", progressID), zap.Error(err))
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()

	return scanSteps(rows)
}

// Update persists status, data and timestamps for a step
func (r *StepRepository) Update(ctx context.Context, step *entity.WorkflowStep) error {
	query := `
		UPDATE workflow_steps
		SET status = ?, data = ?, started_at = ?, completed_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := pick(ctx, r.db).ExecContext(ctx, query,
		step.Status,
		nullString(step.Data),
		nullTime(step.StartedAt),
		nullTime(step.CompletedAt),
		step.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update step", zap.Int64("id", step.ID), zap.Error(err))
		return fmt.Errorf("failed to update step: %w", err)
	}

	return nil
}

// DeleteByProgressID removes every step belonging to a progress
func (r *StepRepository) DeleteByProgressID(ctx context.Context, progressID int64) error {
	query := `DELETE FROM workflow_steps WHERE progress_id = ?`

	_, err := pick(ctx, r.db).ExecContext(ctx, query, progressID)
	if err != nil {
		r.logger.Error("Failed to delete steps", zap.Int64("progress_id", progressID), zap.Error(err))
		return fmt.Errorf("failed to delete steps: %w", err)
	}

	return nil
}

// scanStep reads one step from a row scanner
func scanStep(row *sql.Row) (*entity.WorkflowStep, error) {
	var step entity.WorkflowStep
	var data sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&step.ID,
		&step.ProgressID,
		&step.StepNumber,
		&step.StepKind,
		&step.Status,
		&data,
		&startedAt,
		&completedAt,
		&step.CreatedAt,
		&step.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if data.Valid {
		step.Data = data.String
	}
	if startedAt.Valid {
		step.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		step.CompletedAt = &completedAt.Time
	}

	return &step, nil
}

// scanSteps reads an ordered result set of steps
func scanSteps(rows *sql.Rows) ([]*entity.WorkflowStep, error) {
	var steps []*entity.WorkflowStep
	for rows.Next() {
		var step entity.WorkflowStep
		var data sql.NullString
		var startedAt, completedAt sql.NullTime

		err := rows.Scan(
			&step.ID,
			&step.ProgressID,
			&step.StepNumber,
			&step.StepKind,
			&step.Status,
			&data,
			&startedAt,
			&completedAt,
			&step.CreatedAt,
			&step.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		if data.Valid {
			step.Data = data.String
		}
		if startedAt.Valid {
			step.StartedAt = &startedAt.Time
		}
		if completedAt.Valid {
			step.CompletedAt = &completedAt.Time
		}

		steps = append(steps, &step)
	}

	return steps, rows.Err()
}

// Verify interface compliance
var _ port.StepRepository = (*StepRepository)(nil)
