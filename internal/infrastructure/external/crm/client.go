// Package crm is the HTTP adapter for the CRM system holding opportunity and
// contact records.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jthornton/solar-workflow/internal/application/port"
)

// Config holds CRM API configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements port.CRMClient
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new CRM client adapter
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// opportunityResponse is the CRM wire shape for one opportunity
type opportunityResponse struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Stage         string  `json:"stage"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	FullName      string  `json:"full_name"`
	CompanyName   string  `json:"company_name"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone"`
	Address       string  `json:"address"`
	Postcode      string  `json:"postcode"`
	MonetaryValue float64 `json:"monetary_value"`
}

// FetchOpportunity retrieves an opportunity record, or nil when the CRM has
// no record for the ID
func (c *Client) FetchOpportunity(ctx context.Context, opportunityID string) (*port.OpportunityRecord, error) {
	endpoint := fmt.Sprintf("%s/v1/opportunities/%s", c.baseURL, url.PathEscape(opportunityID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("CRM fetch failed", zap.String("opportunity_id", opportunityID), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch opportunity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crm returned status %d for opportunity %s", resp.StatusCode, opportunityID)
	}

	var body opportunityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode opportunity: %w", err)
	}

	return &port.OpportunityRecord{
		ID:            body.ID,
		Title:         body.Title,
		Stage:         body.Stage,
		FirstName:     body.FirstName,
		LastName:      body.LastName,
		FullName:      body.FullName,
		CompanyName:   body.CompanyName,
		Email:         body.Email,
		Phone:         body.Phone,
		Address:       body.Address,
		Postcode:      body.Postcode,
		MonetaryValue: body.MonetaryValue,
	}, nil
}

// TransitionStage moves the opportunity's pipeline stage
func (c *Client) TransitionStage(ctx context.Context, opportunityID string, targetStage string) error {
	endpoint := fmt.Sprintf("%s/v1/opportunities/%s/stage", c.baseURL, url.PathEscape(opportunityID))

	payload := fmt.Sprintf(`{"stage":%q}`, targetStage)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, strings.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("CRM stage transition failed",
			zap.String("opportunity_id", opportunityID),
			zap.String("target_stage", targetStage),
			zap.Error(err))
		return fmt.Errorf("failed to transition stage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("crm returned status %d transitioning %s to %s",
			resp.StatusCode, opportunityID, targetStage)
	}

	c.logger.Info("CRM stage transitioned",
		zap.String("opportunity_id", opportunityID),
		zap.String("target_stage", targetStage))

	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

// Verify interface compliance
var _ port.CRMClient = (*Client)(nil)
