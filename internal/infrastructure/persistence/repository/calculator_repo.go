package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/jthornton/solar-workflow/internal/application/port"
	"github.com/jthornton/solar-workflow/internal/domain/entity"
)

// CalculatorRepository implements port.CalculatorRepository
type CalculatorRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCalculatorRepository creates a new calculator repository
func NewCalculatorRepository(db *sql.DB, logger *zap.Logger) *CalculatorRepository {
	return &CalculatorRepository{
		db:     db,
		logger: logger,
	}
}

// GetByOpportunityID retrieves the calculator sub-record, or nil when absent
func (r *CalculatorRepository) GetByOpportunityID(ctx context.Context, opportunityID string) (*entity.CalculatorRecord, error) {
	query := `
		SELECT id, opportunity_id, customer_name, postcode,
			annual_usage_kwh, system_size_kw, export_path, created_at
		FROM calculator_records
		WHERE opportunity_id = ?
	`

	var calc entity.CalculatorRecord
	var exportPath sql.NullString

	err := pick(ctx, r.db).QueryRowContext(ctx, query, opportunityID).Scan(
		&calc.ID,
		&calc.OpportunityID,
		&calc.CustomerName,
		&calc.Postcode,
		&calc.AnnualUsageKWh,
		&calc.SystemSizeKW,
		&exportPath,
		&calc.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get calculator record", zap.String("opportunity_id", opportunityID), zap.Error(err))
		return nil, fmt.Errorf("failed to get calculator record: %w", err)
	}

	if exportPath.Valid {
		calc.ExportPath = exportPath.String
	}

	return &calc, nil
}

// Verify interface compliance
var _ port.CalculatorRepository = (*CalculatorRepository)(nil)
