package entity

import "time"

// WorkflowStep is one step instance belonging to a WorkflowProgress. Steps are
// created from the workflow definition when the progress is started, except for
// the backward-compatibility case where a step number predating the current
// definition is completed and the row is created lazily.
type WorkflowStep struct {
	ID          int64      `json:"id"`
	ProgressID  int64      `json:"progress_id"`
	StepNumber  int        `json:"step_number"`
	StepKind    string     `json:"step_kind"`
	Status      string     `json:"status"`
	Data        string     `json:"data,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
