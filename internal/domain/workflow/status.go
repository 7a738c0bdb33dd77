package workflow

import (
	"fmt"
	"strings"

	"github.com/jthornton/solar-workflow/internal/domain/entity"
)

// statusTransitions maps a progress status to the statuses it may move to via
// an explicit status update. Completion is driven by step completion, not by
// this table, but COMPLETED is still listed so a resumed import can close out.
var statusTransitions = map[string][]string{
	entity.ProgressStatusInProgress: {entity.ProgressStatusPaused, entity.ProgressStatusCancelled, entity.ProgressStatusCompleted},
	entity.ProgressStatusPaused:     {entity.ProgressStatusInProgress, entity.ProgressStatusCancelled},
}

// CanTransition reports whether a progress status change is permitted.
// COMPLETED and CANCELLED are terminal.
func CanTransition(from, to string) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition when the change is not permitted.
func ValidateTransition(from, to string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// NormalizeOutcome upper-cases and validates a terminal outcome value.
func NormalizeOutcome(raw string) (string, error) {
	outcome := strings.ToUpper(strings.TrimSpace(raw))
	switch outcome {
	case entity.OutcomeWon, entity.OutcomeLost, entity.OutcomeAbandoned:
		return outcome, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, raw)
}
