package textgen_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"govline/internal/textgen"
)

func TestGenerateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"generated draft"}`))
	}))
	defer srv.Close()

	c := textgen.NewClient(srv.URL, time.Second, 0)
	text, err := c.Generate(context.Background(), "prompt", 64)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "generated draft" {
		t.Fatalf("text = %q", text)
	}
}

func TestGenerateTimesOutAfterRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := textgen.NewClient(srv.URL, 30*time.Millisecond, 1)
	c.Backoff = time.Millisecond
	_, err := c.Generate(context.Background(), "prompt", 64)
	var timeout textgen.TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("err = %v, want TimeoutError", err)
	}
	if timeout.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", timeout.Attempts)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestGenerateNonTimeoutFailsFast(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := textgen.NewClient(srv.URL, time.Second, 3)
	_, err := c.Generate(context.Background(), "prompt", 64)
	if err == nil {
		t.Fatal("expected error")
	}
	var timeout textgen.TimeoutError
	if errors.As(err, &timeout) {
		t.Fatalf("server errors are not timeouts: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d, non-timeout errors must not be retried", got)
	}
}

func TestGenerateWithoutEndpoint(t *testing.T) {
	c := textgen.NewClient("", time.Second, 0)
	if _, err := c.Generate(context.Background(), "p", 1); err == nil {
		t.Fatal("missing endpoint must error")
	}
}
