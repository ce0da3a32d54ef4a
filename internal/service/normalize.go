package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ecojourney/backend/internal/models"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrGeneration        = errors.New("feedback generation failed")
	ErrGenerationTimeout = errors.New("feedback generation timed out")
)

// TotalPolicy decides the profile total when the request declares one that
// disagrees with its category breakdown.
type TotalPolicy int

const (
	// DeclaredTotalWins keeps total_carbon_kg verbatim, even when it differs
	// from the category sum.
	DeclaredTotalWins TotalPolicy = iota
	// CategorySumWins ignores total_carbon_kg and always sums the categories.
	CategorySumWins
)

func ParseTotalPolicy(s string) (TotalPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "declared":
		return DeclaredTotalWins, nil
	case "sum":
		return CategorySumWins, nil
	default:
		return DeclaredTotalWins, fmt.Errorf("unknown total policy %q", s)
	}
}

type Normalizer struct {
	Policy TotalPolicy
}

type feedbackPayload struct {
	CarbonData   json.RawMessage `json:"category_carbon_data"`
	ActivityData json.RawMessage `json:"category_activity_data"`
	TotalKg      json.RawMessage `json:"total_carbon_kg"`
}

// Normalize turns a feedback request body into a CarbonProfile. Every
// rejection wraps ErrInvalidInput.
func (n Normalizer) Normalize(body []byte) (models.CarbonProfile, error) {
	var payload feedbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.CarbonProfile{}, fmt.Errorf("%w: request body must be a JSON object", ErrInvalidInput)
	}

	raw := payload.CarbonData
	if isEmptyValue(raw) && !isAbsent(payload.ActivityData) {
		raw = payload.ActivityData
	}

	var entries []rawEntry
	if !isAbsent(raw) {
		var err error
		entries, err = decodeOrderedObject(raw)
		if err != nil {
			return models.CarbonProfile{}, fmt.Errorf("%w: category_carbon_data must be an object of category to number", ErrInvalidInput)
		}
	}
	if len(entries) == 0 {
		return models.CarbonProfile{}, fmt.Errorf("%w: at least one category value is required", ErrInvalidInput)
	}

	profile := models.CarbonProfile{Categories: make([]models.CategoryAmount, 0, len(entries))}
	coercionFailed := false
	for _, e := range entries {
		v, ok := coerceFloat(e.value)
		if !ok {
			coercionFailed = true
			v = 0
		}
		if v < 0 {
			return models.CarbonProfile{}, fmt.Errorf("%w: category %q must not be negative", ErrInvalidInput, e.key)
		}
		profile.Categories = append(profile.Categories, models.CategoryAmount{Category: e.key, KgCO2e: v})
	}
	if !profile.HasPositive() {
		return models.CarbonProfile{}, fmt.Errorf("%w: all category values are zero; at least one must be greater than zero", ErrInvalidInput)
	}

	declared, hasDeclared, err := declaredTotal(payload.TotalKg)
	if err != nil {
		return models.CarbonProfile{}, err
	}
	switch {
	case hasDeclared && n.Policy == DeclaredTotalWins:
		profile.Total = declared
	case coercionFailed:
		profile.Total = 0
	default:
		profile.Total = profile.CategorySum()
	}
	return profile, nil
}

func declaredTotal(raw json.RawMessage) (float64, bool, error) {
	if isAbsent(raw) {
		return 0, false, nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return 0, true, nil
	}
	total, ok := coerceFloat(v)
	if !ok {
		return 0, true, nil
	}
	if total < 0 {
		return 0, true, fmt.Errorf("%w: total_carbon_kg must not be negative", ErrInvalidInput)
	}
	return total, true, nil
}

type rawEntry struct {
	key   string
	value any
}

// decodeOrderedObject reads a JSON object keeping member order. A repeated
// key keeps its first position and its last value.
func decodeOrderedObject(raw json.RawMessage) ([]rawEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("not a JSON object")
	}

	var entries []rawEntry
	index := map[string]int{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errors.New("object key is not a string")
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		if i, seen := index[key]; seen {
			entries[i].value = v
			continue
		}
		index[key] = len(entries)
		entries = append(entries, rawEntry{key: key, value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}

func coerceFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if t {
			f = 1
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// isEmptyValue mirrors "falsy" mappings: absent, null or {}.
func isEmptyValue(raw json.RawMessage) bool {
	if isAbsent(raw) {
		return true
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return len(probe) == 0
}
