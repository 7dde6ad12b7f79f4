package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

/*
Tests for the HTTP source.

We cover:
  - Open succeeding after transient 5xx failures (retry with backoff)
  - 4xx failing immediately with no retry
  - retry exhaustion
  - Peek via Range, and Peek against a server that ignores Range
  - default application in ClientConfig
*/

// newTestRemote points a Remote at a test server with instant, recorded
// backoff sleeps.
func newTestRemote(url string, cfg ClientConfig, slept *[]time.Duration) *Remote {
	r := NewRemote(url, cfg)
	r.sleep = func(d time.Duration) { *slept = append(*slept, d) }
	return r
}

// TestRemote_RetriesThenSucceeds verifies transient 5xx responses are retried
// with doubling backoff.
func TestRemote_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, "a,b\n1,2\n")
	}))
	defer srv.Close()

	var slept []time.Duration
	r := newTestRemote(srv.URL, ClientConfig{InitialBackoff: 10 * time.Millisecond}, &slept)

	rc, err := r.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "a,b\n1,2\n" {
		t.Fatalf("body = %q; want the csv payload", body)
	}

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("server saw %d calls; want 3", got)
	}
	if len(slept) != 2 || slept[0] != 10*time.Millisecond || slept[1] != 20*time.Millisecond {
		t.Fatalf("backoff sleeps = %v; want [10ms 20ms]", slept)
	}
}

// TestRemote_ClientErrorNoRetry verifies 4xx responses fail fast.
func TestRemote_ClientErrorNoRetry(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	var slept []time.Duration
	r := newTestRemote(srv.URL, ClientConfig{}, &slept)

	if _, err := r.Open(context.Background()); err == nil {
		t.Fatalf("Open() expected error on 404, got nil")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("server saw %d calls; want 1 (no retry on 4xx)", got)
	}
}

// TestRemote_RetriesExhausted verifies the wrapped terminal error.
func TestRemote_RetriesExhausted(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var slept []time.Duration
	r := newTestRemote(srv.URL, ClientConfig{MaxRetries: 2}, &slept)

	_, err := r.Open(context.Background())
	if err == nil || !strings.Contains(err.Error(), "retries exhausted") {
		t.Fatalf("Open() = %v; want retries-exhausted error", err)
	}
	if len(slept) != 2 {
		t.Fatalf("slept %d times; want 2", len(slept))
	}
}

// TestRemote_Peek verifies the Range request path and the client-side limit
// when the server ignores Range.
func TestRemote_Peek(t *testing.T) {
	t.Parallel()

	payload := "abcdefghij"

	t.Run("range honored", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("Range") != "bytes=0-3" {
				t.Errorf("Range header = %q; want bytes=0-3", req.Header.Get("Range"))
			}
			w.WriteHeader(http.StatusPartialContent)
			io.WriteString(w, payload[:4])
		}))
		defer srv.Close()

		var slept []time.Duration
		r := newTestRemote(srv.URL, ClientConfig{}, &slept)
		head, err := r.Peek(context.Background(), 4)
		if err != nil {
			t.Fatalf("Peek() unexpected error: %v", err)
		}
		if string(head) != "abcd" {
			t.Fatalf("Peek(4) = %q; want \"abcd\"", head)
		}
	})

	t.Run("range ignored", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			io.WriteString(w, payload) // 200 OK with the full body
		}))
		defer srv.Close()

		var slept []time.Duration
		r := newTestRemote(srv.URL, ClientConfig{}, &slept)
		head, err := r.Peek(context.Background(), 4)
		if err != nil {
			t.Fatalf("Peek() unexpected error: %v", err)
		}
		if string(head) != "abcd" {
			t.Fatalf("Peek(4) = %q; want client-side limit to \"abcd\"", head)
		}
	})
}

// TestClientConfigDefaults verifies zero values pick up documented defaults.
func TestClientConfigDefaults(t *testing.T) {
	t.Parallel()

	c := ClientConfig{}.withDefaults()
	if c.Timeout != 30*time.Second || c.MaxRetries != 3 {
		t.Fatalf("defaults = %+v; want 30s timeout, 3 retries", c)
	}
	if c.InitialBackoff != 200*time.Millisecond || c.MaxBackoff != 5*time.Second {
		t.Fatalf("backoff defaults = %+v", c)
	}

	c = ClientConfig{MaxRetries: -1}.withDefaults()
	if c.MaxRetries != 0 {
		t.Fatalf("MaxRetries -1 normalized to %d; want 0", c.MaxRetries)
	}
}
