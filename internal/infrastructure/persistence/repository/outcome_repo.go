package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jthornton/solar-workflow/internal/application/port"
	"github.com/jthornton/solar-workflow/internal/domain/entity"
)

// OutcomeRepository implements port.OutcomeRecorder. Recording the same
// outcome twice replaces the previous row, which keeps retries safe.
type OutcomeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOutcomeRepository creates a new outcome repository
func NewOutcomeRepository(db *sql.DB, logger *zap.Logger) *OutcomeRepository {
	return &OutcomeRepository{
		db:     db,
		logger: logger,
	}
}

// RecordOutcome upserts the terminal classification for an opportunity
func (r *OutcomeRepository) RecordOutcome(ctx context.Context, outcome *entity.OpportunityOutcome) error {
	if outcome.RecordedAt.IsZero() {
		outcome.RecordedAt = time.Now()
	}

	query := `
		INSERT INTO opportunity_outcomes (
			opportunity_id, user_id, outcome, value, notes, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(opportunity_id) DO UPDATE SET
			user_id = excluded.user_id,
			outcome = excluded.outcome,
			value = excluded.value,
			notes = excluded.notes,
			recorded_at = excluded.recorded_at
	`

	result, err := pick(ctx, r.db).ExecContext(ctx, query,
		outcome.OpportunityID,
		outcome.UserID,
		outcome.Outcome,
		outcome.Value,
		nullString(outcome.Notes),
		outcome.RecordedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record outcome",
			zap.String("opportunity_id", outcome.OpportunityID),
			zap.String("outcome", outcome.Outcome),
			zap.Error(err))
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		outcome.ID = id
	}

	r.logger.Info("Outcome recorded",
		zap.String("opportunity_id", outcome.OpportunityID),
		zap.String("outcome", outcome.Outcome),
		zap.Float64("value", outcome.Value))

	return nil
}

// GetByOpportunityID retrieves the recorded outcome, or nil when absent
func (r *OutcomeRepository) GetByOpportunityID(ctx context.Context, opportunityID string) (*entity.OpportunityOutcome, error) {
	query := `
		SELECT id, opportunity_id, user_id, outcome, value, notes, recorded_at
		FROM opportunity_outcomes
		WHERE opportunity_id = ?
	`

	var outcome entity.OpportunityOutcome
	var notes sql.NullString

	err := pick(ctx, r.db).QueryRowContext(ctx, query, opportunityID).Scan(
		&outcome.ID,
		&outcome.OpportunityID,
		&outcome.UserID,
		&outcome.Outcome,
		&outcome.Value,
		&notes,
		&outcome.RecordedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get outcome", zap.String("opportunity_id", opportunityID), zap.Error(err))
		return nil, fmt.Errorf("failed to get outcome: %w", err)
	}

	if notes.Valid {
		outcome.Notes = notes.String
	}

	return &outcome, nil
}

// Verify interface compliance
var _ port.OutcomeRecorder = (*OutcomeRepository)(nil)
