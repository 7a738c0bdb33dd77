package entity

import "time"

// WorkflowProgress represents the live workflow state for one sales opportunity.
// At most one non-deleted progress record exists per opportunity.
type WorkflowProgress struct {
	ID             int64      `json:"id"`
	OpportunityID  string     `json:"opportunity_id"`
	UserID         int64      `json:"user_id"`
	CurrentStep    int        `json:"current_step"`
	TotalSteps     int        `json:"total_steps"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	StepData       string     `json:"step_data,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Steps is populated by queries that load the full workflow, ordered by
	// step number. Not every repository method hydrates it.
	Steps []*WorkflowStep `json:"steps,omitempty"`
}

// IsTerminal returns true when no further step completion is possible.
func (p *WorkflowProgress) IsTerminal() bool {
	return p.Status == ProgressStatusCompleted || p.Status == ProgressStatusCancelled
}

// StepByNumber returns the hydrated step with the given number, or nil.
func (p *WorkflowProgress) StepByNumber(number int) *WorkflowStep {
	for _, s := range p.Steps {
		if s.StepNumber == number {
			return s
		}
	}
	return nil
}
