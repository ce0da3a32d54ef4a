package ai

import (
	"context"
	"sync/atomic"
	"time"
)

// MockGenerator returns a canned answer, optionally after a delay. It is used
// by tests and by coachctl's --mock-response flag.
type MockGenerator struct {
	ModelVersion string
	Response     string
	Err          error
	Delay        time.Duration

	calls atomic.Int64
}

func (m *MockGenerator) Name() string {
	if m.ModelVersion == "" {
		return "mock-v1"
	}
	return m.ModelVersion
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.calls.Add(1)
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockGenerator) Calls() int64 { return m.calls.Load() }
