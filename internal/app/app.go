// Package app wires configuration into the coaching services. It is shared by
// the HTTP server and coachctl so both run the same pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ecojourney/backend/internal/ai"
	"github.com/ecojourney/backend/internal/config"
	"github.com/ecojourney/backend/internal/db"
	"github.com/ecojourney/backend/internal/metrics"
	"github.com/ecojourney/backend/internal/rules"
	"github.com/ecojourney/backend/internal/service"
)

type Options struct {
	// Generator replaces the configured model backend when set.
	Generator ai.Generator
	// Offline skips the model entirely and always uses the fallback report.
	Offline bool
	// SkipDatabase ignores DATABASE_URL.
	SkipDatabase bool
}

type App struct {
	Feedback  *service.FeedbackService
	Reference *service.ReferenceService
	Badges    service.BadgeEvaluator
	Store     *db.Store
	Metrics   *metrics.Recorder
}

func New(ctx context.Context, cfg config.Config, logger zerolog.Logger, opts Options) (*App, error) {
	policy, err := service.ParseTotalPolicy(cfg.TotalPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	rule, err := rules.Load(cfg.CoachingRulesFile)
	if err != nil {
		// The model stays off without its configured rule document.
		logger.Warn().Err(err).Str("file", cfg.CoachingRulesFile).Msg("coaching rules unavailable, serving fallback reports only")
		opts.Offline = true
		if rule, err = rules.Default(); err != nil {
			return nil, fmt.Errorf("load default coaching rules: %w", err)
		}
	}

	gen, err := generator(ctx, cfg, opts)
	if err != nil {
		if !errors.Is(err, ai.ErrUnconfigured) {
			return nil, err
		}
		logger.Warn().Str("provider", cfg.AIProvider).Msg("generation model not configured, serving fallback reports only")
	} else if gen != nil {
		logger.Info().Str("model", gen.Name()).Msg("generation model ready")
	}

	a := &App{
		Metrics: metrics.New(),
		Badges:  service.BadgeEvaluator{SaverCapKg: cfg.SaverCapKg},
	}

	var source service.AverageSource = service.StaticAverages(cfg.Averages())
	if cfg.DatabaseURL != "" && !opts.SkipDatabase {
		store, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		a.Store = store
		source = store
	}

	a.Reference = &service.ReferenceService{
		Source:   source,
		Fallback: cfg.Averages(),
		Logger:   logger.With().Str("component", "reference").Logger(),
	}
	a.Feedback = &service.FeedbackService{
		Normalizer: service.Normalizer{Policy: policy},
		Compiler:   service.PromptCompiler{Rule: rule, Language: cfg.ReportLanguage},
		Gateway:    ai.NewGateway(gen, validator.New()),
		Timeout:    cfg.LLMTimeout,
		Metrics:    a.Metrics,
		Logger:     logger.With().Str("component", "feedback").Logger(),
	}
	if a.Store != nil {
		a.Feedback.Audit = a.Store
	}
	return a, nil
}

// Close waits for pending audit writes before releasing the pool.
func (a *App) Close() {
	if a.Feedback != nil {
		a.Feedback.WaitAudits()
	}
	if a.Store != nil {
		a.Store.Close()
	}
}

func generator(ctx context.Context, cfg config.Config, opts Options) (ai.Generator, error) {
	switch {
	case opts.Offline:
		return nil, nil
	case opts.Generator != nil:
		return opts.Generator, nil
	}

	aiCfg := ai.Config{
		Provider:    cfg.AIProvider,
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.GeminiModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
	}
	if strings.EqualFold(cfg.AIProvider, ai.ProviderOpenAI) {
		aiCfg.APIKey = cfg.OpenAIAPIKey
		aiCfg.Model = cfg.OpenAIModel
		aiCfg.BaseURL = cfg.OpenAIBaseURL
	}
	return ai.NewGenerator(ctx, aiCfg)
}
