// Package scoring talks to the optional text-scoring service. Its
// output is an advisory priority hint; absence or failure of the
// service must never block a scheduling run.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Scorer produces a numeric priority hint for a task description.
type Scorer interface {
	Score(ctx context.Context, description string) (float64, error)
}

// Client calls the scoring service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a scoring client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Score posts the description and returns the predicted priority score.
func (c *Client) Score(ctx context.Context, description string) (float64, error) {
	body, err := json.Marshal(map[string]string{"description": description})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict-priority", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("scoring request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("scoring service returned %s", resp.Status)
	}

	var out struct {
		PriorityScore float64 `json:"priority_score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decoding scoring response: %w", err)
	}
	return out.PriorityScore, nil
}
