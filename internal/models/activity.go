package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Activity is the canonical activity record. Clients send either a flat
// record or a calculator result that nests the input under "activity"; both
// are folded into this shape when decoded.
type Activity struct {
	Category     string  `json:"category"`
	ActivityType string  `json:"activity_type"`
	CarbonKg     float64 `json:"carbon_emission_kg"`
}

type activityFields struct {
	Category     string   `json:"category"`
	ActivityType string   `json:"activity_type"`
	CarbonKg     *float64 `json:"carbon_emission_kg"`
}

func (a *Activity) UnmarshalJSON(b []byte) error {
	var raw struct {
		activityFields
		Nested json.RawMessage `json:"activity"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("activity record: %w", err)
	}

	out := Activity{Category: raw.Category, ActivityType: raw.ActivityType}
	if raw.CarbonKg != nil {
		out.CarbonKg = *raw.CarbonKg
	}

	nested := bytes.TrimSpace(raw.Nested)
	if len(nested) > 0 && nested[0] == '{' {
		var inner activityFields
		if err := json.Unmarshal(nested, &inner); err != nil {
			return fmt.Errorf("nested activity record: %w", err)
		}
		out.Category = inner.Category
		out.ActivityType = inner.ActivityType
		if raw.CarbonKg == nil && inner.CarbonKg != nil {
			out.CarbonKg = *inner.CarbonKg
		}
	}

	*a = out
	return nil
}
