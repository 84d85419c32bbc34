package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/seam-io/seam/adapter"
	"github.com/seam-io/seam/log"
)

func quietLogger() *log.Logger {
	return log.NewLogger().WithOutput(io.Discard)
}

func TestPublishDeliversEvent(t *testing.T) {
	var got adapter.CaptureCompletedEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Token") != "secret" {
			t.Errorf("X-Token = %q", r.Header.Get("X-Token"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := New(Config{URL: srv.URL, Headers: map[string]string{"X-Token": "secret"}}, quietLogger())
	ev := adapter.NewCaptureCompleted("sess-1", "chunked")
	if err := a.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got.SessionID != "sess-1" || got.EventType != "capture_completed" {
		t.Errorf("received event %+v", got)
	}
	if got.EventID == "" {
		t.Error("event id empty")
	}
}

func TestPublishRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := New(Config{URL: srv.URL, MaxRetries: 3}, quietLogger())
	if err := a.Publish(context.Background(), adapter.NewCaptureCompleted("sess-2", "single")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestPublishDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	a := New(Config{URL: srv.URL, MaxRetries: 3}, quietLogger())
	if err := a.Publish(context.Background(), adapter.NewCaptureCompleted("sess-3", "single")); err == nil {
		t.Fatal("Publish succeeded, want error on 400")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls.Load())
	}
}

func TestPublishGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := New(Config{URL: srv.URL, MaxRetries: 2}, quietLogger())
	if err := a.Publish(context.Background(), adapter.NewCaptureCompleted("sess-4", "single")); err == nil {
		t.Fatal("Publish succeeded, want exhaustion error")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls.Load())
	}
}
