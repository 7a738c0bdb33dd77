package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a progress status transition is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidOutcome is returned when an outcome value is not WON, LOST or ABANDONED
	ErrInvalidOutcome = errors.New("invalid outcome")
)
