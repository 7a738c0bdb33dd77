package entity

// Status constants for WorkflowProgress
const (
	ProgressStatusInProgress = "IN_PROGRESS"
	ProgressStatusCompleted  = "COMPLETED"
	ProgressStatusPaused     = "PAUSED"
	ProgressStatusCancelled  = "CANCELLED"
)

// Status constants for WorkflowStep
const (
	StepStatusPending    = "PENDING"
	StepStatusInProgress = "IN_PROGRESS"
	StepStatusCompleted  = "COMPLETED"
	StepStatusSkipped    = "SKIPPED"
)

// Terminal outcome constants for an opportunity
const (
	OutcomeWon       = "WON"
	OutcomeLost      = "LOST"
	OutcomeAbandoned = "ABANDONED"
)

// Survey record status constants
const (
	SurveyStatusDraft     = "DRAFT"
	SurveyStatusSubmitted = "SUBMITTED"
	SurveyStatusApproved  = "APPROVED"
)

// ValidProgressStatus reports whether s is a known progress status.
func ValidProgressStatus(s string) bool {
	switch s {
	case ProgressStatusInProgress, ProgressStatusCompleted, ProgressStatusPaused, ProgressStatusCancelled:
		return true
	}
	return false
}

// ValidStepStatus reports whether s is a known step status.
func ValidStepStatus(s string) bool {
	switch s {
	case StepStatusPending, StepStatusInProgress, StepStatusCompleted, StepStatusSkipped:
		return true
	}
	return false
}
