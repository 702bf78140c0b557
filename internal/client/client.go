// Package client talks to the task API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"taskflow/internal/models"
)

// APIError is a non-2xx answer from the task API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("task api: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("task api: %s (%d)", e.Message, e.Status)
}

// IsNotFound reports whether err is a 404 from the task API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsValidation reports whether err is a 400 from the task API.
func IsValidation(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest
}

// Client is a typed wrapper around the /tasks endpoints.
type Client struct {
	base *url.URL
	http *http.Client
}

// New builds a client rooted at baseURL (for example http://localhost:3030).
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must include scheme and host", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: u, http: httpClient}, nil
}

type taskPayload struct {
	Title   string `json:"title"`
	DueDate string `json:"due_date"`
}

type createdPayload struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// List fetches every task, by due date when byDueDate is set.
func (c *Client) List(ctx context.Context, byDueDate bool) ([]models.Task, error) {
	path := "/tasks"
	if byDueDate {
		path += "?sort=date"
	}

	var tasks []models.Task
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Create adds a task and returns its id.
func (c *Client) Create(ctx context.Context, title, dueDate string) (int64, error) {
	var created createdPayload
	if err := c.do(ctx, http.MethodPost, "/tasks", taskPayload{Title: title, DueDate: dueDate}, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// Complete marks a task completed.
func (c *Client) Complete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPut, "/tasks/"+strconv.FormatInt(id, 10)+"/done", nil, nil)
}

// Update replaces the title and due date of a task.
func (c *Client) Update(ctx context.Context, id int64, title, dueDate string) error {
	return c.do(ctx, http.MethodPut, "/tasks/"+strconv.FormatInt(id, 10), taskPayload{Title: title, DueDate: dueDate}, nil)
}

// Delete removes a task.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{Status: resp.StatusCode}

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
