package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// OpenAICompatAssistant talks to any chat-completions compatible endpoint.
type OpenAICompatAssistant struct {
	BaseURL     string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
	Client      *http.Client
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (r RateLimitError) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", r.RetryAfter)
	}
	return "rate limited"
}

func (a OpenAICompatAssistant) Name() string { return "openai:" + a.Model }

func (a OpenAICompatAssistant) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(a.BaseURL) == "" || strings.TrimSpace(a.Model) == "" {
		return "", ErrUnconfigured
	}

	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type responseFormat struct {
		Type string `json:"type"`
	}
	payload := struct {
		Model          string         `json:"model"`
		Temperature    float64        `json:"temperature,omitempty"`
		MaxTokens      int            `json:"max_tokens,omitempty"`
		ResponseFormat responseFormat `json:"response_format"`
		Messages       []msg          `json:"messages"`
	}{
		Model:          a.Model,
		Temperature:    a.Temperature,
		MaxTokens:      a.MaxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
		Messages:       []msg{{Role: "user", Content: prompt}},
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	url := strings.TrimRight(a.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(a.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+a.APIKey)
	}

	client := a.Client
	if client == nil {
		timeout := 45 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
				timeout = remaining
			}
		}
		client = &http.Client{Timeout: timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return "", fmt.Errorf("chat completion timed out: %w", context.DeadlineExceeded)
		}
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", statusError(resp)
	}

	var res chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode chat completion: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	choice := res.Choices[0]
	if choice.FinishReason == "length" {
		return "", fmt.Errorf("%w: max_tokens=%d", ErrTruncatedCompletion, a.MaxTokens)
	}
	return choice.Message.Content, nil
}

var (
	ErrEmptyCompletion     = errors.New("chat completion has no choices")
	ErrTruncatedCompletion = errors.New("chat completion hit the token limit")
)

type chatResponse struct {
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Details []struct {
			Type       string `json:"@type"`
			RetryDelay string `json:"retryDelay"`
		} `json:"details"`
	} `json:"error"`
}

func statusError(resp *http.Response) error {
	var body apiErrorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	if resp.StatusCode == http.StatusTooManyRequests {
		return RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"), body)}
	}
	if body.Error.Message != "" {
		return fmt.Errorf("chat completion %s: %s", resp.Status, body.Error.Message)
	}
	return fmt.Errorf("chat completion %s", resp.Status)
}

// retryAfter prefers the Retry-After header (seconds) over a google.rpc
// RetryInfo detail in the body.
func retryAfter(header string, body apiErrorBody) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	for _, d := range body.Error.Details {
		if !strings.Contains(d.Type, "RetryInfo") {
			continue
		}
		if dur, err := time.ParseDuration(d.RetryDelay); err == nil {
			return dur
		}
	}
	return 0
}
