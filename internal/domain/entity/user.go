package entity

import "time"

// User is an internal user record. Callers identify themselves with the
// external directory ID; the workflow engine resolves it to this record.
type User struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}
