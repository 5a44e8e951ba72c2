// Package sheet talks to a spreadsheet-backed web app that holds the
// authoritative roster.
package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"checkin/internal/roster"
)

// ErrNotConfigured is returned when the client has no endpoint.
var ErrNotConfigured = errors.New("sheet: url not configured")

// RemoteError is a read the remote side answered with status "error".
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return "sheet: remote reported an error"
	}
	return "sheet: remote error: " + e.Message
}

// Update is one attendee status write.
type Update struct {
	ID        string
	Name      string
	Status    roster.Status
	Timestamp time.Time
}

// Client calls the sheet web app.
type Client struct {
	URL  string
	HTTP *http.Client
}

// New creates a client with a short timeout; the web app is expected to
// answer within a poll interval.
func New(url string) *Client {
	return &Client{
		URL:  url,
		HTTP: &http.Client{Timeout: 10 * time.Second},
	}
}

type readResponse struct {
	Status  string           `json:"status"`
	Data    []map[string]any `json:"data"`
	Message string           `json:"message"`
}

// Fetch reads the full roster.
func (c *Client) Fetch(ctx context.Context) ([]roster.Record, error) {
	if c.URL == "" {
		return nil, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheet: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sheet: read failed %s: %s", resp.Status, string(body))
	}

	var out readResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("sheet: decode response failed: %w", err)
	}
	if out.Status != "success" {
		return nil, &RemoteError{Message: out.Message}
	}

	rows := make([]roster.Row, 0, len(out.Data))
	for _, item := range out.Data {
		row := make(roster.Row, len(item))
		for k, v := range item {
			if v == nil {
				continue
			}
			row[k] = cellString(v)
		}
		rows = append(rows, row)
	}
	return roster.FromRows(rows), nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers; ids such as 2024001 must not become 2.024001e+06
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprint(t)
	default:
		return fmt.Sprint(t)
	}
}

type writeRequest struct {
	Action    string `json:"action"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Status    string `json:"status,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// UpdateEntry sends a status write. The remote does not acknowledge; a nil
// error only means the request was delivered.
func (c *Client) UpdateEntry(ctx context.Context, u Update) error {
	req := writeRequest{
		Action: "updateEntry",
		ID:     u.ID,
		Name:   u.Name,
		Status: string(u.Status),
	}
	if !u.Timestamp.IsZero() {
		req.Timestamp = u.Timestamp.UTC().Format(time.RFC3339)
	}
	return c.post(ctx, req)
}

// ClearAll asks the remote to reset every entry.
func (c *Client) ClearAll(ctx context.Context) error {
	return c.post(ctx, writeRequest{Action: "clearAll"})
}

func (c *Client) post(ctx context.Context, body writeRequest) error {
	if c.URL == "" {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	// web apps behind a simple-request CORS policy only accept text/plain
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("sheet: %s failed: %w", body.Action, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 500 {
		return fmt.Errorf("sheet: %s failed: %s", body.Action, resp.Status)
	}
	return nil
}

// Health performs a read and discards the result.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.Fetch(ctx)
	return err
}
