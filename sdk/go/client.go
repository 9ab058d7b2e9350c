package govlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Govline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// ChangeRequest represents the API change request model (partial).
type ChangeRequest struct {
	ID             string `json:"id"`
	RequesterAgent string `json:"requester_agent"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Justification  string `json:"justification,omitempty"`
	Priority       string `json:"priority,omitempty"`
	Status         string `json:"status"`
	FailureCount   int    `json:"failure_count"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// CreatedRequest wraps intake responses with the idempotency flag.
type CreatedRequest struct {
	ChangeRequest
	Created bool `json:"created"`
}

// ReviewDecision is the outcome of one review pass.
type ReviewDecision struct {
	RequestID      string   `json:"request_id"`
	Decision       string   `json:"decision"`
	Reasons        []string `json:"reasons,omitempty"`
	NeedsMultiSign bool     `json:"needs_multi_sign"`
	LedgerID       string   `json:"ledger_id,omitempty"`
}

// Violation is one compliance finding.
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	FilePath string `json:"file_path,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// CheckReport is the result of scanning one artifact.
type CheckReport struct {
	Compliant  bool        `json:"compliant"`
	Violations []Violation `json:"violations"`
	Summary    struct {
		Errors   int `json:"errors"`
		Warnings int `json:"warnings"`
		Info     int `json:"info"`
	} `json:"summary"`
}

// LedgerRecord represents a work documentation entry (partial).
type LedgerRecord struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	BotName   string `json:"bot_name"`
	Area      string `json:"area,omitempty"`
	Task      string `json:"task"`
	Result    string `json:"result,omitempty"`
	SignedBy  string `json:"signed_by,omitempty"`
	SignedAt  string `json:"signed_at,omitempty"`
}

// ChatResult is a conversational exchange outcome.
type ChatResult struct {
	Reply   string         `json:"reply"`
	Request *ChangeRequest `json:"request,omitempty"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateRequest submits a change request.
func (c *Client) CreateRequest(ctx context.Context, agent, reqType, title, description, justification, priority string) (CreatedRequest, error) {
	body := map[string]any{
		"requester_agent": agent,
		"type":            reqType,
		"title":           title,
		"description":     description,
		"justification":   justification,
		"priority":        priority,
	}
	var resp CreatedRequest
	err := c.do(ctx, http.MethodPost, "v0/requests", body, &resp)
	return resp, err
}

// GetRequest fetches a change request by id.
func (c *Client) GetRequest(ctx context.Context, id string) (ChangeRequest, error) {
	var resp ChangeRequest
	err := c.do(ctx, http.MethodGet, "v0/requests/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListRequests returns requests, optionally filtered by status and agent.
func (c *Client) ListRequests(ctx context.Context, status, agent string) ([]ChangeRequest, error) {
	endpoint := "v0/requests"
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if agent != "" {
		q.Set("agent", agent)
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []ChangeRequest
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// ReviewRequest runs the approval authority over a request.
func (c *Client) ReviewRequest(ctx context.Context, id string) (ReviewDecision, error) {
	var resp ReviewDecision
	err := c.do(ctx, http.MethodPost, "v0/requests/"+url.PathEscape(id)+"/review", nil, &resp)
	return resp, err
}

// ResubmitRequest reopens a rejected request after revision.
func (c *Client) ResubmitRequest(ctx context.Context, id string) (ChangeRequest, error) {
	var resp ChangeRequest
	err := c.do(ctx, http.MethodPost, "v0/requests/"+url.PathEscape(id)+"/resubmit", nil, &resp)
	return resp, err
}

// ApplyRequest marks an approved request as applied.
func (c *Client) ApplyRequest(ctx context.Context, id string) (ChangeRequest, error) {
	var resp ChangeRequest
	err := c.do(ctx, http.MethodPost, "v0/requests/"+url.PathEscape(id)+"/apply", nil, &resp)
	return resp, err
}

// Chat sends a conversational message.
func (c *Client) Chat(ctx context.Context, text string, history []string) (ChatResult, error) {
	body := map[string]any{"text": text, "history": history}
	var resp ChatResult
	err := c.do(ctx, http.MethodPost, "v0/chat", body, &resp)
	return resp, err
}

// Check scans a single artifact against the compliance rules.
func (c *Client) Check(ctx context.Context, text, filePath string) (CheckReport, error) {
	body := map[string]any{"text": text, "file_path": filePath}
	var resp CheckReport
	err := c.do(ctx, http.MethodPost, "v0/check", body, &resp)
	return resp, err
}

// RecordLedger appends a work documentation record and returns its id.
func (c *Client) RecordLedger(ctx context.Context, botName, area, task, result string) (string, error) {
	body := map[string]any{
		"bot_name": botName,
		"area":     area,
		"task":     task,
		"result":   result,
	}
	var resp struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "v0/ledger", body, &resp)
	return resp.ID, err
}

// ValidateLedger records a validation judgment on a ledger record.
func (c *Client) ValidateLedger(ctx context.Context, id string, passed bool, issues []string) (LedgerRecord, error) {
	body := map[string]any{"passed": passed, "issues": issues}
	var resp LedgerRecord
	err := c.do(ctx, http.MethodPost, "v0/ledger/"+url.PathEscape(id)+"/validate", body, &resp)
	return resp, err
}

// SignLedger signs off a validated ledger record.
func (c *Client) SignLedger(ctx context.Context, id string) (LedgerRecord, error) {
	var resp LedgerRecord
	err := c.do(ctx, http.MethodPost, "v0/ledger/"+url.PathEscape(id)+"/sign", nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
