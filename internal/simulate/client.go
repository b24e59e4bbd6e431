package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a small typed client for the arena API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// VoteResult mirrors the POST /vote response.
type VoteResult struct {
	Success   bool   `json:"success"`
	Duplicate bool   `json:"duplicate"`
	VoteID    string `json:"vote_id"`
	Seq       int64  `json:"seq"`
}

type item struct {
	Name string `json:"name"`
}

type matchup struct {
	A string `json:"a"`
	B string `json:"b"`
}

type voteRequest struct {
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
	VoteID string `json:"vote_id,omitempty"`
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Items returns the catalog names.
func (c *Client) Items(ctx context.Context) ([]string, error) {
	var items []item
	if err := c.do(ctx, http.MethodGet, "/llms", nil, &items); err != nil {
		return nil, err
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return names, nil
}

// Matchup returns a random pairing.
func (c *Client) Matchup(ctx context.Context) (string, string, error) {
	var m matchup
	if err := c.do(ctx, http.MethodGet, "/matchup", nil, &m); err != nil {
		return "", "", err
	}
	return m.A, m.B, nil
}

// Vote submits one vote.
func (c *Client) Vote(ctx context.Context, winner, loser, voteID string) (VoteResult, error) {
	var res VoteResult
	err := c.do(ctx, http.MethodPost, "/vote", voteRequest{Winner: winner, Loser: loser, VoteID: voteID}, &res)
	return res, err
}

// Rankings returns the full ranking.
func (c *Client) Rankings(ctx context.Context) ([]Standing, error) {
	var out []Standing
	if err := c.do(ctx, http.MethodGet, "/rankings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
