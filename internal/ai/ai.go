package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Generator produces raw model text for a prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config is resolved once at startup and handed to NewGenerator.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

var ErrUnconfigured = errors.New("generation model is not configured")

type ErrorKind string

const (
	KindUnconfigured ErrorKind = "unconfigured"
	KindTimeout      ErrorKind = "timeout"
	KindTransport    ErrorKind = "transport"
	KindMalformed    ErrorKind = "malformed"
	KindContract     ErrorKind = "contract"
)

// GenerationError is the only error Gateway.Generate returns.
type GenerationError struct {
	Kind ErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// KindOf reports the kind of a generation error, or "" for other errors.
func KindOf(err error) ErrorKind {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// NewGenerator builds the backend named by cfg.Provider. A missing credential
// yields ErrUnconfigured so callers can run in fallback-only mode.
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		g, err := NewGeminiGenerator(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	case ProviderOpenAI:
		if strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.Model) == "" {
			return nil, ErrUnconfigured
		}
		return OpenAICompatAssistant{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
