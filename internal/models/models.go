package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// CategoryAmount is one category's emission in kg CO2e.
type CategoryAmount struct {
	Category string  `json:"category"`
	KgCO2e   float64 `json:"kg_co2e"`
}

// CarbonProfile is the normalized view of one reporting period. Categories
// keep the order in which they appeared in the request.
type CarbonProfile struct {
	Categories []CategoryAmount `json:"categories"`
	Total      float64          `json:"total"`
}

func (p CarbonProfile) CategorySum() float64 {
	var sum float64
	for _, c := range p.Categories {
		sum += c.KgCO2e
	}
	return sum
}

func (p CarbonProfile) HasPositive() bool {
	for _, c := range p.Categories {
		if c.KgCO2e > 0 {
			return true
		}
	}
	return false
}

type CoachingReport struct {
	ReportTitle       string      `json:"report_title" validate:"required"`
	TodayResultScreen TodayResult `json:"today_result_screen"`
	FinalReportScreen FinalReport `json:"final_report_screen"`
}

type TodayResult struct {
	UsageSummaryText  string `json:"usage_summary_text" validate:"required"`
	CategoryRatioText string `json:"category_ratio_text" validate:"required"`
	MoneySavingText   string `json:"money_saving_text" validate:"required"`
	EarthStatusText   string `json:"earth_status_text" validate:"required"`
}

type FinalReport struct {
	TotalSummaryText      string                 `json:"total_summary_text" validate:"required"`
	CategoryChartText     string                 `json:"category_chart_text" validate:"required"`
	FocusArea             string                 `json:"focus_area" validate:"required"`
	Recommendations       []Recommendation       `json:"recommendations" validate:"required,min=1,dive"`
	PolicyRecommendations []PolicyRecommendation `json:"policy_recommendations" validate:"required,dive"`
	ClosingMessage        string                 `json:"closing_message" validate:"required"`
}

type Recommendation struct {
	Action string `json:"action" validate:"required"`
	Detail string `json:"detail" validate:"required"`
	Impact string `json:"impact" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

type PolicyRecommendation struct {
	Name    string `json:"name" validate:"required"`
	Detail  string `json:"detail" validate:"required"`
	Benefit string `json:"benefit" validate:"required"`
}

type Badge struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	EarnedDate  time.Time `json:"earned_date"`
}

// Averages is the population reference used for ranks and comparisons.
type Averages struct {
	TotalKg    float64          `json:"total_average"`
	Categories []CategoryAmount `json:"category_averages"`
}

// MarshalJSON writes category_averages as an object keyed by category, in
// slice order.
func (a Averages) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"total_average":`)
	total, err := json.Marshal(a.TotalKg)
	if err != nil {
		return nil, err
	}
	buf.Write(total)
	buf.WriteString(`,"category_averages":{`)
	for i, c := range a.Categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Category)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.KgCO2e)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

func (a Averages) Category(name string) (float64, bool) {
	for _, c := range a.Categories {
		if c.Category == name {
			return c.KgCO2e, true
		}
	}
	return 0, false
}

type FeedbackRecord struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Model      string    `json:"model"`
	FocusArea  string    `json:"focus_area"`
	ReportJSON string    `json:"report_json"`
	LatencyMs  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

type Comparison struct {
	Category        string  `json:"category,omitempty"`
	AverageEmission float64 `json:"average_emission"`
	UserEmission    float64 `json:"user_emission"`
	Difference      float64 `json:"difference"`
	Percentage      float64 `json:"percentage"`
	IsBetter        bool    `json:"is_better"`
}

type AvatarState struct {
	HealthScore int    `json:"health_score"`
	Mood        string `json:"mood"`
	Message     string `json:"message"`
	VisualEmoji string `json:"visual_emoji"`
}
