package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/policyscope/policyscope/internal/core/domain"
	"github.com/policyscope/policyscope/internal/core/ports"
)

func TestCompleteReturnsTextBlock(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Fatalf("missing api key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Fatalf("missing version header")
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "  תשובה  "}},
		})
	}))
	defer server.Close()

	client := New(server.URL, "test-key", "claude-test", time.Second)
	answer, err := client.Complete(context.Background(), ports.CompletionRequest{Prompt: "שאלה", MaxTokens: 150})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if answer != "תשובה" {
		t.Fatalf("unexpected answer: %q", answer)
	}
	if gotBody["max_tokens"].(float64) != 150 {
		t.Fatalf("unexpected max_tokens: %v", gotBody["max_tokens"])
	}
}

func TestCompleteMapsRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(server.URL, "k", "m", time.Second)
	_, err := client.Complete(context.Background(), ports.CompletionRequest{Prompt: "p"})
	if !domain.IsKind(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestCompleteMapsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := New(server.URL, "k", "m", time.Second)
	_, err := client.Complete(context.Background(), ports.CompletionRequest{Prompt: "p"})
	if !domain.IsKind(err, domain.ErrCollaboratorUnavailable) {
		t.Fatalf("expected ErrCollaboratorUnavailable, got %v", err)
	}
}

func TestCompletePlainErrorOnBadRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client := New(server.URL, "k", "m", time.Second)
	_, err := client.Complete(context.Background(), ports.CompletionRequest{Prompt: "p"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrRateLimited) || domain.IsKind(err, domain.ErrCollaboratorUnavailable) {
		t.Fatalf("bad request must stay a plain error, got %v", err)
	}
}
