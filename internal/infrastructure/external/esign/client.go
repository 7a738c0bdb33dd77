// Package esign is the HTTP adapter for the e-signature provider.
package esign

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

// Config holds e-signature API configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements port.ESignClient
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new e-signature client adapter
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

// submissionResponse is the provider wire shape for one submission
type submissionResponse struct {
	ID           string `json:"id"`
	TemplateName string `json:"template_name"`
	Status       string `json:"status"`
	DocumentURL  string `json:"document_url"`
	SignedAt     int64  `json:"signed_at"`
}

// FetchCompletedSubmissions retrieves the completed signed submissions for an
// opportunity. Submissions still in flight are filtered out.
func (c *Client) FetchCompletedSubmissions(ctx context.Context, opportunityID string) ([]port.SubmissionArtifact, error) {
	endpoint := fmt.Sprintf("%s/v1/submissions?opportunity_id=%s", c.baseURL, url.QueryEscape(opportunityID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("E-sign fetch failed", zap.String("opportunity_id", opportunityID), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch submissions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("e-sign provider returned status %d for opportunity %s", resp.StatusCode, opportunityID)
	}

	var body struct {
		Submissions []submissionResponse `json:"submissions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode submissions: %w", err)
	}

	var artifacts []port.SubmissionArtifact
	for _, sub := range body.Submissions {
		if sub.Status != "completed" {
			continue
		}
		artifacts = append(artifacts, port.SubmissionArtifact{
			SubmissionID: sub.ID,
			TemplateName: sub.TemplateName,
			DocumentURL:  sub.DocumentURL,
			SignedAt:     sub.SignedAt,
		})
	}

	return artifacts, nil
}

// Verify interface compliance
var _ port.ESignClient = (*Client)(nil)
