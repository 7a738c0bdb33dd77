package entity

import "time"

// OpportunityOutcome is the terminal won/lost/abandoned classification
// recorded when the final workflow step completes.
type OpportunityOutcome struct {
	ID            int64     `json:"id"`
	OpportunityID string    `json:"opportunity_id"`
	UserID        int64     `json:"user_id"`
	Outcome       string    `json:"outcome"`
	Value         float64   `json:"value"`
	Notes         string    `json:"notes,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}
