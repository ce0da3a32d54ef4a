package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ecojourney/backend/internal/ai"
	"github.com/ecojourney/backend/internal/metrics"
	"github.com/ecojourney/backend/internal/models"
)

const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"

	DefaultLLMTimeout = 20 * time.Second
	auditTimeout      = 2 * time.Second
)

// FeedbackRecorder persists one audit row per generated report.
type FeedbackRecorder interface {
	RecordFeedback(ctx context.Context, rec models.FeedbackRecord) error
}

type FeedbackService struct {
	Normalizer Normalizer
	Compiler   PromptCompiler
	Gateway    *ai.Gateway
	Timeout    time.Duration
	Audit      FeedbackRecorder
	Metrics    *metrics.Recorder
	Logger     zerolog.Logger

	marshal func(models.CoachingReport) (string, error)
	audits  sync.WaitGroup
}

// Feedback is the outcome of one generation. JSON is always a complete,
// contract-conforming report.
type Feedback struct {
	JSON    string
	Source  string
	Model   string
	Report  models.CoachingReport
	Failure ai.ErrorKind
	Latency time.Duration
}

type gatewayResult struct {
	gen ai.Generation
	err error
}

func (s *FeedbackService) Generate(ctx context.Context, body []byte) (Feedback, error) {
	profile, err := s.Normalizer.Normalize(body)
	if err != nil {
		return Feedback{}, err
	}
	return s.GenerateForProfile(ctx, profile)
}

// GenerateForProfile asks the model for a report and substitutes the
// deterministic fallback on any failure, including the deadline.
func (s *FeedbackService) GenerateForProfile(ctx context.Context, profile models.CarbonProfile) (Feedback, error) {
	if !profile.HasPositive() {
		return Feedback{}, fmt.Errorf("%w: at least one category value must be greater than zero", ErrInvalidInput)
	}

	start := time.Now()
	gen, err := s.callGateway(ctx, profile)
	if err == nil {
		s.Metrics.GatewayLatency(gen.Latency)
		s.Metrics.Feedback(SourceLLM)
		fb := Feedback{
			JSON:    gen.JSON,
			Source:  SourceLLM,
			Model:   gen.Model,
			Report:  gen.Report,
			Latency: time.Since(start),
		}
		s.audit(ctx, fb)
		return fb, nil
	}

	kind := ai.KindOf(err)
	s.Metrics.GatewayFailure(string(kind))
	if kind != ai.KindUnconfigured {
		ev := s.Logger.Warn().Err(err).Str("kind", string(kind))
		var rl ai.RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			ev = ev.Dur("retry_after", rl.RetryAfter)
		}
		ev.Msg("model generation failed, using fallback report")
	}

	report := Synthesize(profile)
	marshal := s.marshal
	if marshal == nil {
		marshal = MarshalReport
	}
	out, merr := marshal(report)
	if merr != nil {
		s.Logger.Error().Err(merr).Str("kind", string(kind)).Msg("fallback report serialization failed")
		if kind == ai.KindTimeout {
			return Feedback{}, fmt.Errorf("%w: %v", ErrGenerationTimeout, merr)
		}
		return Feedback{}, fmt.Errorf("%w: %v", ErrGeneration, merr)
	}

	s.Metrics.Feedback(SourceFallback)
	fb := Feedback{
		JSON:    out,
		Source:  SourceFallback,
		Model:   s.Gateway.Model(),
		Report:  report,
		Failure: kind,
		Latency: time.Since(start),
	}
	s.audit(ctx, fb)
	return fb, nil
}

func (s *FeedbackService) callGateway(ctx context.Context, profile models.CarbonProfile) (ai.Generation, error) {
	if !s.Gateway.Configured() {
		return ai.Generation{}, &ai.GenerationError{Kind: ai.KindUnconfigured, Err: ai.ErrUnconfigured}
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultLLMTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := s.Compiler.Compile(profile)
	done := make(chan gatewayResult, 1)
	go func() {
		gen, err := s.Gateway.Generate(callCtx, prompt)
		done <- gatewayResult{gen: gen, err: err}
	}()

	select {
	case res := <-done:
		return res.gen, res.err
	case <-callCtx.Done():
		kind := ai.KindTransport
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			kind = ai.KindTimeout
		}
		return ai.Generation{}, &ai.GenerationError{Kind: kind, Err: callCtx.Err()}
	}
}

// audit writes the record in the background; WaitAudits blocks until every
// pending write has finished.
func (s *FeedbackService) audit(ctx context.Context, fb Feedback) {
	if s.Audit == nil {
		return
	}
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	s.audits.Add(1)
	go func() {
		defer s.audits.Done()
		defer cancel()
		s.writeAudit(auditCtx, fb)
	}()
}

func (s *FeedbackService) WaitAudits() {
	s.audits.Wait()
}

func (s *FeedbackService) writeAudit(ctx context.Context, fb Feedback) {
	rec := models.FeedbackRecord{
		ID:         uuid.NewString(),
		Source:     fb.Source,
		Model:      fb.Model,
		FocusArea:  fb.Report.FinalReportScreen.FocusArea,
		ReportJSON: fb.JSON,
		LatencyMs:  fb.Latency.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Audit.RecordFeedback(ctx, rec); err != nil {
		s.Logger.Error().Err(err).Str("source", fb.Source).Msg("feedback audit write failed")
	}
}
