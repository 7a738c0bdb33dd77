package entity

import "time"

// SurveyRecord is the on-site survey sub-record for an opportunity. The
// workflow engine only reads it: to sanity-check the site-survey step
// completion and to resolve customer display data for the admin view.
type SurveyRecord struct {
	ID            int64     `json:"id"`
	OpportunityID string    `json:"opportunity_id"`
	Status        string    `json:"status"`
	CustomerName  string    `json:"customer_name"`
	Address       string    `json:"address"`
	Postcode      string    `json:"postcode"`
	ImagePaths    string    `json:"image_paths,omitempty"` // JSON array of relative paths
	ExportPath    string    `json:"export_path,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsSubmitted returns true once the survey has been handed in or approved.
func (s *SurveyRecord) IsSubmitted() bool {
	return s.Status == SurveyStatusSubmitted || s.Status == SurveyStatusApproved
}
