package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/jthornton/solar-workflow/internal/application/port"
	"github.com/jthornton/solar-workflow/internal/domain/entity"
)

// SurveyRepository implements port.SurveyRepository
type SurveyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSurveyRepository creates a new survey repository
func NewSurveyRepository(db *sql.DB, logger *zap.Logger) *SurveyRepository {
	return &SurveyRepository{
		db:     db,
		logger: logger,
	}
}

// GetByOpportunityID retrieves the survey sub-record, or nil when absent
func (r *SurveyRepository) GetByOpportunityID(ctx context.Context, opportunityID string) (*entity.SurveyRecord, error) {
	query := `
		SELECT id, opportunity_id, status, customer_name, address, postcode,
			image_paths, export_path, created_at, updated_at
		FROM survey_records
		WHERE opportunity_id = ?
	`

	var survey entity.SurveyRecord
	var imagePaths, exportPath sql.NullString

	err := pick(ctx, r.db).QueryRowContext(ctx, query, opportunityID).Scan(
		&survey.ID,
		&survey.OpportunityID,
		&survey.Status,
		&survey.CustomerName,
		&survey.Address,
		&survey.Postcode,
		&imagePaths,
		&exportPath,
		&survey.CreatedAt,
		&survey.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get survey", zap.String("opportunity_id", opportunityID), zap.Error(err))
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}

	if imagePaths.Valid {
		survey.ImagePaths = imagePaths.String
	}
	if exportPath.Valid {
		survey.ExportPath = exportPath.String
	}

	return &survey, nil
}

// Verify interface compliance
var _ port.SurveyRepository = (*SurveyRepository)(nil)
