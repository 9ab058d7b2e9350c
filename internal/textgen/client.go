// Package textgen wraps the opaque text-generation capability. The service
// is treated as slow and unreliable: every call carries a deadline and is
// retried a bounded number of times before a TimeoutError surfaces.
package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Generator produces text for a prompt, bounded by maxTokens.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// TimeoutError marks a generation call that exceeded its deadline after all
// retries were exhausted.
type TimeoutError struct {
	Attempts int
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("text generation timed out after %d attempts", e.Attempts)
}

// Client calls a JSON-over-HTTP generation endpoint.
type Client struct {
	Endpoint   string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
	// Backoff between retries; grows linearly per attempt.
	Backoff time.Duration
}

func NewClient(endpoint string, timeout time.Duration, maxRetries int) *Client {
	return &Client{
		Endpoint:   endpoint,
		Timeout:    timeout,
		MaxRetries: maxRetries,
		Backoff:    500 * time.Millisecond,
	}
}

type generateRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// Generate posts the prompt and returns the generated text. Deadline
// overruns are retried with linear backoff up to MaxRetries extra attempts.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if c.Endpoint == "" {
		return "", errors.New("textgen endpoint not configured")
	}
	attempts := c.MaxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff()):
			}
		}
		text, err := c.generateOnce(ctx, prompt, maxTokens)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isTimeout(err) {
			return "", err
		}
	}
	if isTimeout(lastErr) {
		return "", TimeoutError{Attempts: attempts}
	}
	return "", lastErr
}

func (c *Client) generateOnce(ctx context.Context, prompt string, maxTokens int) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	body, err := json.Marshal(generateRequest{Prompt: prompt, MaxTokens: maxTokens})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("textgen returned status %d", res.StatusCode)
	}
	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("textgen response: %w", err)
	}
	return out.Text, nil
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 20 * time.Second
}

func (c *Client) backoff() time.Duration {
	if c.Backoff > 0 {
		return c.Backoff
	}
	return 500 * time.Millisecond
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
