package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ecojourney/backend/internal/models"
)

// Gateway enforces the report contract on top of a Generator. A nil
// Generator puts it in fallback-only mode.
type Gateway struct {
	gen      Generator
	validate *validator.Validate
}

// Generation is a model answer that passed the contract.
type Generation struct {
	Report  models.CoachingReport
	JSON    string
	Model   string
	Latency time.Duration
}

func NewGateway(gen Generator, v *validator.Validate) *Gateway {
	if v == nil {
		v = validator.New()
	}
	return &Gateway{gen: gen, validate: v}
}

func (g *Gateway) Configured() bool { return g != nil && g.gen != nil }

func (g *Gateway) Model() string {
	if !g.Configured() {
		return ""
	}
	return g.gen.Name()
}

// Generate never retries; every failure comes back as *GenerationError.
func (g *Gateway) Generate(ctx context.Context, prompt string) (Generation, error) {
	if !g.Configured() {
		return Generation{}, &GenerationError{Kind: KindUnconfigured, Err: ErrUnconfigured}
	}

	start := time.Now()
	raw, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		return Generation{}, &GenerationError{Kind: classify(ctx, err), Err: err}
	}

	canonical, err := Canonicalize([]byte(StripCodeFence(raw)))
	if err != nil {
		return Generation{}, &GenerationError{Kind: KindMalformed, Err: err}
	}

	var report models.CoachingReport
	if err := json.Unmarshal(canonical, &report); err != nil {
		return Generation{}, &GenerationError{Kind: KindContract, Err: err}
	}
	if err := g.validate.Struct(report); err != nil {
		return Generation{}, &GenerationError{Kind: KindContract, Err: err}
	}

	return Generation{
		Report:  report,
		JSON:    string(canonical),
		Model:   g.gen.Name(),
		Latency: time.Since(start),
	}, nil
}

func classify(ctx context.Context, err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	switch {
	case errors.Is(err, ErrUnconfigured):
		return KindUnconfigured
	case errors.Is(err, ErrTruncatedCompletion), errors.Is(err, ErrEmptyCompletion):
		return KindMalformed
	}
	return KindTransport
}

var languageTag = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_+-]*$`)

// StripCodeFence removes a surrounding ``` fence and a bare language tag line.
func StripCodeFence(raw string) string {
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		return strings.TrimSpace(strings.Trim(text, "`"))
	}
	if len(lines) >= 2 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[1 : len(lines)-1]
	} else {
		lines = lines[1:]
	}
	if len(lines) > 0 && languageTag.MatchString(strings.TrimSpace(lines[0])) {
		lines = lines[1:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Canonicalize checks that b holds one JSON object and re-indents it with four
// spaces, keeping member order. Canonicalize(Canonicalize(x)) == Canonicalize(x).
func Canonicalize(b []byte) ([]byte, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, errors.New("empty model output")
	}
	if b[0] != '{' {
		return nil, fmt.Errorf("model output is not a JSON object")
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("model output is not valid JSON")
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, b); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
