package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultClient_UserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := DefaultClient()
	_, _ = client.GetBody(context.Background(), server.URL)

	if gotUA != "condamigrate" {
		t.Errorf("default User-Agent = %q, want %q", gotUA, "condamigrate")
	}
}

func TestClient_WithUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	base := DefaultClient()
	client := base.WithUserAgent("custom-agent/2.0")
	_, _ = client.GetBody(context.Background(), server.URL)

	if gotUA != "custom-agent/2.0" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "custom-agent/2.0")
	}
	if base.UserAgent != "condamigrate" {
		t.Errorf("WithUserAgent modified the original client")
	}
}

func TestClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name": "numpy", "versions": ["1.19.5"]}`))
	}))
	defer server.Close()

	var resp struct {
		Name     string   `json:"name"`
		Versions []string `json:"versions"`
	}
	if err := DefaultClient().GetJSON(context.Background(), server.URL, &resp); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if resp.Name != "numpy" || len(resp.Versions) != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(WithBaseDelay(time.Millisecond))
	_, err := client.GetBody(context.Background(), server.URL)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || !httpErr.IsNotFound() {
		t.Fatalf("error = %v, want 404 HTTPError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`ok`))
	}))
	defer server.Close()

	client := NewClient(WithBaseDelay(time.Millisecond))
	body, err := client.GetBody(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetBody failed: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClient_RateLimited(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(WithBaseDelay(time.Millisecond), WithMaxRetries(2))
	_, err := client.GetBody(context.Background(), server.URL)

	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("error = %v, want *RateLimitError", err)
	}
	if rl.RetryAfter != 7 {
		t.Errorf("RetryAfter = %d, want 7", rl.RetryAfter)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

type countingLimiter struct {
	n atomic.Int32
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.n.Add(1)
	return nil
}

func TestClient_RateLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	limiter := &countingLimiter{}
	client := NewClient(WithRateLimiter(limiter))
	for range 3 {
		if _, err := client.GetBody(context.Background(), server.URL); err != nil {
			t.Fatal(err)
		}
	}
	if limiter.n.Load() != 3 {
		t.Errorf("limiter waits = %d, want 3", limiter.n.Load())
	}
}

func TestNotFoundError(t *testing.T) {
	err := &NotFoundError{Channel: "conda-forge", Name: "nope"}
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError does not wrap ErrNotFound")
	}
	if err.Error() != "package nope not found in channel conda-forge" {
		t.Errorf("Error() = %q", err.Error())
	}
}
