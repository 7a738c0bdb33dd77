// Package report renders admin workflow listings to spreadsheet form.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/jthornton/solar-workflow/internal/application/service"
)

const sheetName = "Workflows"

var headers = []string{
	"Customer", "Opportunity ID", "Owner", "Step", "Status",
	"Started", "Last Activity", "Completed",
}

// Exporter writes the enriched admin listing as an XLSX workbook.
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates a new workflow report exporter
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Write renders the listing and streams the workbook to w.
func (e *Exporter) Write(rows []*service.EnrichedProgress, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		e.logger.Warn("Failed to remove default sheet", zap.Error(err))
	}

	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, row := range rows {
		values := []interface{}{
			row.CustomerName,
			row.OpportunityID,
			row.OwnerName,
			fmt.Sprintf("%d/%d", row.CurrentStep, row.TotalSteps),
			row.Status,
			row.StartedAt.Format(time.RFC3339),
			row.LastActivityAt.Format(time.RFC3339),
			formatOptional(row.CompletedAt),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", i+2, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Exported workflow report", zap.Int("rows", len(rows)))
	return nil
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
