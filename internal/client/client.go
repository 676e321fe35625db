// Package client implements the scheduler's store contract against the
// task API over HTTP, for running the scheduler apart from the store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/taskpilot/taskpilot/internal/domain"
	"github.com/taskpilot/taskpilot/internal/store"
)

const defaultBaseURL = "http://localhost:8000"

// Client talks to the task API. It satisfies store.Store: connection
// failures and server errors surface as store.ErrUnavailable, missing
// tasks as store.ErrNotFound.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a client with the default base URL and timeout.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListPendingTasks fetches all tasks in pending status.
func (c *Client) ListPendingTasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.get(ctx, "/tasks?status=pending", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetDependencies fetches the dependency edges for one task.
func (c *Client) GetDependencies(ctx context.Context, taskID int64) ([]domain.Dependency, error) {
	var deps []domain.Dependency
	path := fmt.Sprintf("/tasks/%d/dependencies", taskID)
	if err := c.get(ctx, path, &deps); err != nil {
		return nil, err
	}
	return deps, nil
}

// UpdateTask applies a partial update via PUT /tasks/{id}.
func (c *Client) UpdateTask(ctx context.Context, taskID int64, upd store.TaskUpdate) (domain.Task, error) {
	patch := struct {
		Status            *domain.TaskStatus `json:"status,omitempty"`
		Priority          *int               `json:"priority,omitempty"`
		CompletedAt       *time.Time         `json:"completed_at,omitempty"`
		ProcessingSeconds *float64           `json:"processing_seconds,omitempty"`
	}{upd.Status, upd.Priority, upd.CompletedAt, upd.ProcessingSeconds}

	var updated domain.Task
	path := fmt.Sprintf("/tasks/%d", taskID)
	if err := c.do(ctx, http.MethodPut, path, patch, &updated); err != nil {
		return domain.Task{}, err
	}
	return updated, nil
}

// RecordRunMetrics posts one run summary record.
func (c *Client) RecordRunMetrics(ctx context.Context, m domain.RunMetrics) error {
	return c.do(ctx, http.MethodPost, "/analytics/workflow-metrics", m, nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, store.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, store.ErrNotFound)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s %s: %s: %w", method, path, resp.Status, store.ErrUnavailable)
	case resp.StatusCode >= 400:
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("%s %s: %s (%s)", method, path, resp.Status, errBody.Error)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}
