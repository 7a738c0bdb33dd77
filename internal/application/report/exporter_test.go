package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/jthornton/solar-workflow/internal/application/service"
	"github.com/jthornton/solar-workflow/internal/domain/entity"
)

func TestExporter_Write(t *testing.T) {
	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	completed := started.Add(30 * 24 * time.Hour)

	rows := []*service.EnrichedProgress{
		{
			WorkflowProgress: &entity.WorkflowProgress{
				OpportunityID:  "opp-abc123",
				CurrentStep:    12,
				TotalSteps:     12,
				Status:         entity.ProgressStatusCompleted,
				StartedAt:      started,
				LastActivityAt: completed,
				CompletedAt:    &completed,
			},
			CustomerName: "John Smith",
			OwnerName:    "Jess Thornton",
		},
		{
			WorkflowProgress: &entity.WorkflowProgress{
				OpportunityID:  "opp-def456",
				CurrentStep:    4,
				TotalSteps:     12,
				Status:         entity.ProgressStatusInProgress,
				StartedAt:      started,
				LastActivityAt: started,
			},
			CustomerName: "Priya Patel",
		},
	}

	var buf bytes.Buffer
	err := NewExporter(zap.NewNop()).Write(rows, &buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	cells, err := f.GetRows("Workflows")
	require.NoError(t, err)
	require.Len(t, cells, 3)

	assert.Equal(t, "Customer", cells[0][0])
	assert.Equal(t, "John Smith", cells[1][0])
	assert.Equal(t, "12/12", cells[1][3])
	assert.Equal(t, entity.ProgressStatusCompleted, cells[1][4])
	assert.Equal(t, "Priya Patel", cells[2][0])
	assert.Equal(t, "4/12", cells[2][3])
}

func TestExporter_WriteEmptyListing(t *testing.T) {
	var buf bytes.Buffer
	err := NewExporter(zap.NewNop()).Write(nil, &buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	cells, err := f.GetRows("Workflows")
	require.NoError(t, err)
	require.Len(t, cells, 1, "headers only")
}
