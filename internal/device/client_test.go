package device

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCapture_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/capture" {
			t.Fatalf("path = %s, want /api/capture", r.URL.Path)
		}

		resp := CaptureResult{
			Template: []byte("finger-template"),
			Quality:  80,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := client.Capture(ctx)
	if err != nil {
		t.Fatalf("Capture error: %v", err)
	}
	if string(res.Template) != "finger-template" {
		t.Fatalf("unexpected template: %q", res.Template)
	}
	if res.Quality != 80 {
		t.Fatalf("quality = %d, want 80", res.Quality)
	}
}

func TestCapture_NoContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.Capture(ctx)
	if !errors.Is(err, ErrNoCapture) {
		t.Fatalf("expected ErrNoCapture, got %v", err)
	}
}

func TestCapture_EmptyTemplate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"template":"","quality":0}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.Capture(ctx)
	if !errors.Is(err, ErrNoCapture) {
		t.Fatalf("expected ErrNoCapture for empty template, got %v", err)
	}
}

func TestCapture_NotConfigured(t *testing.T) {
	client := &Client{}

	_, err := client.Capture(context.Background())
	if err == nil {
		t.Fatalf("expected error for unconfigured client")
	}
}
