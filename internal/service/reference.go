package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/ecojourney/backend/internal/models"
)

var ErrUnknownCategory = errors.New("unknown category")

// DefaultCategories are the categories the client can report on, in display
// order.
var DefaultCategories = []string{"교통", "의류", "식품", "쓰레기", "전기", "물"}

// DefaultAverages is the Korean daily per-person reference used when neither
// the database nor the configuration provide one.
func DefaultAverages() models.Averages {
	return models.Averages{
		TotalKg: DefaultAverageDailyKg,
		Categories: []models.CategoryAmount{
			{Category: "교통", KgCO2e: 4.0},
			{Category: "의류", KgCO2e: 0.8},
			{Category: "식품", KgCO2e: 3.0},
			{Category: "쓰레기", KgCO2e: 0.5},
			{Category: "전기", KgCO2e: 1.2},
			{Category: "물", KgCO2e: 0.5},
		},
	}
}

type AverageSource interface {
	ListAverages(ctx context.Context) (models.Averages, error)
}

// StaticAverages serves a fixed reference, usually built from configuration.
type StaticAverages models.Averages

func (s StaticAverages) ListAverages(context.Context) (models.Averages, error) {
	return models.Averages(s), nil
}

type ReferenceService struct {
	Source   AverageSource
	Fallback models.Averages
	Logger   zerolog.Logger
}

// Averages returns the reference from Source, or Fallback when Source is
// unset, fails or is empty.
func (s *ReferenceService) Averages(ctx context.Context) models.Averages {
	if s.Source == nil {
		return s.fallback()
	}
	avg, err := s.Source.ListAverages(ctx)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("average lookup failed, using configured averages")
		return s.fallback()
	}
	if len(avg.Categories) == 0 && avg.TotalKg <= 0 {
		return s.fallback()
	}
	if avg.TotalKg <= 0 {
		avg.TotalKg = s.fallback().TotalKg
	}
	return avg
}

func (s *ReferenceService) fallback() models.Averages {
	if s.Fallback.TotalKg <= 0 && len(s.Fallback.Categories) == 0 {
		return DefaultAverages()
	}
	return s.Fallback
}

func (s *ReferenceService) Categories() []string {
	out := make([]string, len(DefaultCategories))
	copy(out, DefaultCategories)
	return out
}

func (s *ReferenceService) CategoryAverage(ctx context.Context, category string) (float64, error) {
	v, ok := s.Averages(ctx).Category(category)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return v, nil
}

// Compare sets emission against the category average, or against the total
// average when category is empty.
func (s *ReferenceService) Compare(ctx context.Context, category string, emission float64) (models.Comparison, error) {
	if emission < 0 || math.IsNaN(emission) || math.IsInf(emission, 0) {
		return models.Comparison{}, fmt.Errorf("%w: emission must be a non-negative number", ErrInvalidInput)
	}

	avg := s.Averages(ctx)
	reference := avg.TotalKg
	if category != "" {
		v, ok := avg.Category(category)
		if !ok {
			return models.Comparison{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
		}
		reference = v
	}

	var pct float64
	if reference > 0 {
		pct = round(emission/reference*100, 1)
	}
	return models.Comparison{
		Category:        category,
		AverageEmission: reference,
		UserEmission:    emission,
		Difference:      round(math.Abs(emission-reference), 2),
		Percentage:      pct,
		IsBetter:        emission < reference,
	}, nil
}

type avatarBand struct {
	factor float64
	state  models.AvatarState
}

var avatarBands = []avatarBand{
	{0.5, models.AvatarState{HealthScore: 100, Mood: "happy", Message: "완벽해요! 지구가 행복해하고 있어요 🌍✨", VisualEmoji: "🌍✨"}},
	{0.7, models.AvatarState{HealthScore: 80, Mood: "happy", Message: "좋아요! 계속 이렇게 지켜주세요 🌱", VisualEmoji: "🌱"}},
	{1.0, models.AvatarState{HealthScore: 60, Mood: "neutral", Message: "괜찮아요. 조금만 더 노력해볼까요? 🌍", VisualEmoji: "🌍"}},
	{1.5, models.AvatarState{HealthScore: 40, Mood: "sad", Message: "지구가 조금 힘들어하고 있어요. 조금만 줄여볼까요? 😔", VisualEmoji: "🌍😔"}},
}

var avatarCritical = models.AvatarState{HealthScore: 20, Mood: "critical", Message: "지구가 위험해요! 지금 바로 행동이 필요해요! 🚨", VisualEmoji: "🌍🚨"}

// AvatarFor maps a day's total against the daily limit to the earth avatar.
// A non-positive limit falls back to the default daily average.
func AvatarFor(total, dailyLimit float64) models.AvatarState {
	if dailyLimit <= 0 {
		dailyLimit = DefaultAverageDailyKg
	}
	for _, band := range avatarBands {
		if total <= dailyLimit*band.factor {
			return band.state
		}
	}
	return avatarCritical
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
