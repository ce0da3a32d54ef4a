package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOpenAICompatAssistant_Generate(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	a := OpenAICompatAssistant{BaseURL: srv.URL + "/v1/", Model: "test-model", APIKey: "secret"}
	out, err := a.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != `{"ok":true}` {
		t.Fatalf("unexpected content %q", out)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["model"] != "test-model" {
		t.Fatalf("unexpected model in payload: %v", gotBody["model"])
	}
}

func TestOpenAICompatAssistant_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"7s"}]}}`))
	}))
	defer srv.Close()

	_, err := OpenAICompatAssistant{BaseURL: srv.URL, Model: "m"}.Generate(context.Background(), "hi")
	var rl RateLimitError
	if !errors.As(err, &rl) || rl.RetryAfter != 7*time.Second {
		t.Fatalf("expected rate limit error with 7s, got %v", err)
	}
}

func TestOpenAICompatAssistant_RetryAfterHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := OpenAICompatAssistant{BaseURL: srv.URL, Model: "m"}.Generate(context.Background(), "hi")
	var rl RateLimitError
	if !errors.As(err, &rl) || rl.RetryAfter != 3*time.Second {
		t.Fatalf("expected rate limit error with 3s, got %v", err)
	}
	if KindOf(err) != "" {
		t.Fatalf("assistant errors are not generation errors until the gateway wraps them")
	}
}

func TestOpenAICompatAssistant_TruncatedIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"finish_reason":"length","message":{"content":"{\"report_title\": \"오늘"}}]}`))
	}))
	defer srv.Close()

	a := OpenAICompatAssistant{BaseURL: srv.URL, Model: "m", MaxTokens: 16}
	if _, err := a.Generate(context.Background(), "hi"); !errors.Is(err, ErrTruncatedCompletion) {
		t.Fatalf("expected truncated completion, got %v", err)
	}
	_, err := NewGateway(a, nil).Generate(context.Background(), "hi")
	if KindOf(err) != KindMalformed {
		t.Fatalf("expected malformed kind, got %v", err)
	}
}

func TestOpenAICompatAssistant_ServerErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream down"}}`))
	}))
	defer srv.Close()

	_, err := NewGateway(OpenAICompatAssistant{BaseURL: srv.URL, Model: "m"}, nil).Generate(context.Background(), "hi")
	if KindOf(err) != KindTransport || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("expected transport error carrying the api message, got %v", err)
	}
}

func TestOpenAICompatAssistant_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := NewGateway(OpenAICompatAssistant{BaseURL: srv.URL, Model: "m"}, nil).Generate(ctx, "hi")
	if KindOf(err) != KindTimeout {
		t.Fatalf("expected timeout kind, got %v", err)
	}
}

func TestNewGenerator(t *testing.T) {
	gen, err := NewGenerator(context.Background(), Config{Provider: "gemini"})
	if !errors.Is(err, ErrUnconfigured) {
		t.Fatalf("expected ErrUnconfigured without api key, got %v", err)
	}
	if gen != nil {
		t.Fatalf("expected a nil generator interface, got %#v", gen)
	}
	if _, err := NewGenerator(context.Background(), Config{Provider: "openai"}); !errors.Is(err, ErrUnconfigured) {
		t.Fatalf("expected ErrUnconfigured without base url, got %v", err)
	}
	gen, err = NewGenerator(context.Background(), Config{Provider: "OpenAI", BaseURL: "http://localhost", Model: "m"})
	if err != nil || gen.Name() != "openai:m" {
		t.Fatalf("unexpected generator %v, %v", gen, err)
	}
	if _, err := NewGenerator(context.Background(), Config{Provider: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
