package utils

import (
	"fmt"
	"regexp"
)

var opportunityIDRegex = regexp.MustCompile(`^[A-Za-z0-9\-]{4,64}$`)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateOpportunityID validates a CRM opportunity identifier
func ValidateOpportunityID(id string) error {
	if id == "" {
		return fmt.Errorf("opportunity ID is required")
	}
	if !opportunityIDRegex.MatchString(id) {
		return fmt.Errorf("invalid opportunity ID format: %s", id)
	}
	return nil
}

// ValidateDealValue validates a recorded deal value
func ValidateDealValue(value float64) error {
	if value < 0 {
		return fmt.Errorf("deal value cannot be negative: %.2f", value)
	}
	return nil
}
