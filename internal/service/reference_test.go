package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ecojourney/backend/internal/models"
)

type failingSource struct{}

func (failingSource) ListAverages(context.Context) (models.Averages, error) {
	return models.Averages{}, errors.New("connection refused")
}

func TestReferenceAveragesFallsBack(t *testing.T) {
	svc := &ReferenceService{Source: failingSource{}, Logger: zerolog.Nop()}
	avg := svc.Averages(context.Background())
	if avg.TotalKg != 10 || len(avg.Categories) != 6 {
		t.Fatalf("expected built-in averages, got %+v", avg)
	}

	custom := models.Averages{TotalKg: 12, Categories: []models.CategoryAmount{{Category: "교통", KgCO2e: 5}}}
	svc = &ReferenceService{Source: StaticAverages(custom)}
	if got := svc.Averages(context.Background()); got.TotalKg != 12 {
		t.Fatalf("expected source averages, got %+v", got)
	}
}

func TestReferenceCategoryAverage(t *testing.T) {
	svc := &ReferenceService{}
	v, err := svc.CategoryAverage(context.Background(), "식품")
	if err != nil || v != 3.0 {
		t.Fatalf("expected 3.0 for 식품, got %v %v", v, err)
	}
	if _, err := svc.CategoryAverage(context.Background(), "우주여행"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestReferenceCompare(t *testing.T) {
	svc := &ReferenceService{}

	got, err := svc.Compare(context.Background(), "교통", 2.5)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	want := models.Comparison{Category: "교통", AverageEmission: 4, UserEmission: 2.5, Difference: 1.5, Percentage: 62.5, IsBetter: true}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}

	got, err = svc.Compare(context.Background(), "", 12.346)
	if err != nil {
		t.Fatalf("compare total: %v", err)
	}
	if got.AverageEmission != 10 || got.Difference != 2.35 || got.Percentage != 123.5 || got.IsBetter {
		t.Fatalf("unexpected total comparison %+v", got)
	}

	if _, err := svc.Compare(context.Background(), "", -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative emission, got %v", err)
	}
}

func TestAvatarFor(t *testing.T) {
	cases := []struct {
		total float64
		limit float64
		score int
		mood  string
	}{
		{5, 10, 100, "happy"},
		{6.9, 10, 80, "happy"},
		{10, 10, 60, "neutral"},
		{15, 10, 40, "sad"},
		{15.1, 10, 20, "critical"},
		{3, 0, 100, "happy"},
	}
	for _, tc := range cases {
		got := AvatarFor(tc.total, tc.limit)
		if got.HealthScore != tc.score || got.Mood != tc.mood {
			t.Fatalf("total %v limit %v: got %+v", tc.total, tc.limit, got)
		}
	}
}
