package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGenerateHeadshotsDecodesImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/generate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var req struct {
			Count int `json:"count"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		images := make([]string, req.Count)
		for i := range images {
			images[i] = base64.StdEncoding.EncodeToString([]byte{byte(i)})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"images": images})
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.Client(), server.URL, "secret", nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	images, err := client.GenerateHeadshots(context.Background(), GenerateRequest{Composite: []byte{1}, Count: 4})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(images) != 4 {
		t.Fatalf("expected 4 images, got %d", len(images))
	}
}

func TestGenerateHeadshotsRateLimitIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.Client(), server.URL, "", nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GenerateHeadshots(context.Background(), GenerateRequest{Count: 1})
	var transient *TransientError
	if !errors.As(err, &transient) {
		t.Fatalf("expected TransientError, got %v", err)
	}
	if transient.RetryAfter != 7*time.Second {
		t.Fatalf("expected 7s retry hint, got %v", transient.RetryAfter)
	}
}

func TestGenerateHeadshotsClientErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.Client(), server.URL, "", nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GenerateHeadshots(context.Background(), GenerateRequest{Count: 1})
	if err == nil {
		t.Fatal("expected error")
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		t.Fatalf("bad request must not be transient: %v", err)
	}
}

func TestRemoveBackgroundRoundTrip(t *testing.T) {
	original := []byte{0x89, 0x50, 0x4E, 0x47}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/remove-background" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Image string `json:"image"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"image": req.Image})
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.Client(), server.URL, "", nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.RemoveBackground(context.Background(), original)
	if err != nil {
		t.Fatalf("remove background: %v", err)
	}
	if string(result) != string(original) {
		t.Fatalf("unexpected result bytes")
	}
}
