package entity

import "time"

// CalculatorRecord is the energy-calculation sub-record for an opportunity,
// read-only from the workflow engine's perspective.
type CalculatorRecord struct {
	ID             int64     `json:"id"`
	OpportunityID  string    `json:"opportunity_id"`
	CustomerName   string    `json:"customer_name"`
	Postcode       string    `json:"postcode"`
	AnnualUsageKWh float64   `json:"annual_usage_kwh"`
	SystemSizeKW   float64   `json:"system_size_kw"`
	ExportPath     string    `json:"export_path,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
