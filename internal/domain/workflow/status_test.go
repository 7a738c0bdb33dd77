package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jthornton/solar-workflow/internal/domain/entity"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{entity.ProgressStatusInProgress, entity.ProgressStatusPaused, true},
		{entity.ProgressStatusInProgress, entity.ProgressStatusCancelled, true},
		{entity.ProgressStatusInProgress, entity.ProgressStatusCompleted, true},
		{entity.ProgressStatusPaused, entity.ProgressStatusInProgress, true},
		{entity.ProgressStatusPaused, entity.ProgressStatusCancelled, true},
		{entity.ProgressStatusPaused, entity.ProgressStatusCompleted, false},
		{entity.ProgressStatusCompleted, entity.ProgressStatusInProgress, false},
		{entity.ProgressStatusCompleted, entity.ProgressStatusPaused, false},
		{entity.ProgressStatusCancelled, entity.ProgressStatusInProgress, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestValidateTransition(t *testing.T) {
	assert.NoError(t, ValidateTransition(entity.ProgressStatusInProgress, entity.ProgressStatusPaused))

	err := ValidateTransition(entity.ProgressStatusCompleted, entity.ProgressStatusInProgress)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestNormalizeOutcome(t *testing.T) {
	for raw, want := range map[string]string{
		"won":         entity.OutcomeWon,
		"WON":         entity.OutcomeWon,
		"  Lost  ":    entity.OutcomeLost,
		"abandoned":   entity.OutcomeAbandoned,
		"\tABANDONED": entity.OutcomeAbandoned,
	} {
		got, err := NormalizeOutcome(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	for _, raw := range []string{"", "maybe", "W0N"} {
		_, err := NormalizeOutcome(raw)
		assert.ErrorIs(t, err, ErrInvalidOutcome, "%q", raw)
	}
}
