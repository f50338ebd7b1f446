package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marketbeam/taskgate/internal/domain"
)

var testRoute = domain.RouteDecision{
	Model:       "gpt-4o-mini",
	Tier:        domain.TierFast,
	Temperature: 0,
	MaxTokens:   256,
}

func newTestClient(srv *httptest.Server) *OpenAIClient {
	return NewOpenAIClient("test-key",
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
	)
}

func TestGenerateSuccess(t *testing.T) {
	var gotAuth string
	var gotReq chatCompletionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Generated copy."}},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 5},
		})
	}))
	defer srv.Close()

	gen, err := newTestClient(srv).Generate(context.Background(), testRoute, "write copy")
	if err != nil {
		t.Fatal(err)
	}

	if gen.Text != "Generated copy." {
		t.Errorf("Text = %q", gen.Text)
	}
	if gen.Usage.PromptTokens != 12 || gen.Usage.CompletionTokens != 5 {
		t.Errorf("Usage = %+v", gen.Usage)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "gpt-4o-mini" || gotReq.MaxTokens != 256 {
		t.Errorf("upstream request = %+v", gotReq)
	}
}

func TestGenerateServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), testRoute, "p")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransient(err) {
		t.Errorf("5xx should be transient, got %v", err)
	}
}

func TestGenerateRateLimitIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), testRoute, "p")
	if !IsTransient(err) {
		t.Errorf("429 should be transient, got %v", err)
	}
}

func TestGenerateClientErrorIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), testRoute, "p")
	if err == nil {
		t.Fatal("expected error")
	}
	if IsTransient(err) {
		t.Errorf("4xx (non-429) should be terminal, got %v", err)
	}
}

func TestGenerateCancelledContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv).Generate(ctx, testRoute, "p")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if IsTransient(err) {
		t.Error("cancellation must not be treated as transient")
	}
}
