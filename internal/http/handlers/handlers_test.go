package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ecojourney/backend/internal/ai"
	"github.com/ecojourney/backend/internal/metrics"
	"github.com/ecojourney/backend/internal/models"
	"github.com/ecojourney/backend/internal/rules"
	"github.com/ecojourney/backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestHandler(t *testing.T, gen ai.Generator) *Handler {
	t.Helper()
	rule, err := rules.Default()
	if err != nil {
		t.Fatalf("default rule: %v", err)
	}
	var gw *ai.Gateway
	if gen != nil {
		gw = ai.NewGateway(gen, nil)
	}
	return &Handler{
		Feedback: &service.FeedbackService{
			Compiler: service.PromptCompiler{Rule: rule},
			Gateway:  gw,
			Timeout:  time.Second,
			Logger:   zerolog.Nop(),
		},
		Reference: &service.ReferenceService{Logger: zerolog.Nop()},
		Badges:    service.BadgeEvaluator{},
		Metrics:   metrics.New(),
		Validator: validator.New(),
		Logger:    zerolog.Nop(),
	}
}

func testEngine(h *Handler) *gin.Engine {
	r := gin.New()
	r.GET("/healthz", h.Healthz)
	r.POST("/api/v1/generate-feedback", h.GenerateFeedback)
	r.POST("/api/v1/badges/check", h.CheckBadges)
	r.GET("/api/v1/categories", h.Categories)
	r.GET("/api/v1/average", h.Average)
	r.GET("/api/v1/average/:category", h.CategoryAverage)
	r.POST("/api/v1/compare", h.Compare)
	r.POST("/api/v1/avatar/state", h.AvatarState)
	r.GET("/api/v1/feedback/recent", h.RecentFeedback)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), into); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestGenerateFeedbackFallbackOnly(t *testing.T) {
	r := testEngine(newTestHandler(t, nil))

	w := do(r, http.MethodPost, "/api/v1/generate-feedback", `{"category_carbon_data": {"교통": 1.25, "식품": 0.80}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Feedback-Source") != service.SourceFallback {
		t.Fatalf("expected fallback source header, got %q", w.Header().Get("X-Feedback-Source"))
	}

	var resp FeedbackResponse
	decode(t, w, &resp)
	if resp.Status != "success" {
		t.Fatalf("unexpected status %q", resp.Status)
	}
	var report models.CoachingReport
	if err := json.Unmarshal([]byte(resp.Data), &report); err != nil {
		t.Fatalf("data is not a report: %v", err)
	}
	if report.FinalReportScreen.FocusArea != "교통" {
		t.Fatalf("expected focus 교통, got %q", report.FinalReportScreen.FocusArea)
	}
}

func TestGenerateFeedbackModelGarbageStillSucceeds(t *testing.T) {
	r := testEngine(newTestHandler(t, &ai.MockGenerator{Response: "I cannot help with that."}))
	w := do(r, http.MethodPost, "/api/v1/generate-feedback", `{"category_carbon_data": {"전기": 0.45}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with fallback, got %d", w.Code)
	}
}

func TestGenerateFeedbackRejectsInvalidInput(t *testing.T) {
	r := testEngine(newTestHandler(t, nil))
	for _, body := range []string{
		`{"category_carbon_data": {"교통": 0, "식품": 0}}`,
		`{"category_carbon_data": {}}`,
		`not json`,
	} {
		w := do(r, http.MethodPost, "/api/v1/generate-feedback", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, w.Code)
		}
		var resp ErrorResponse
		decode(t, w, &resp)
		if resp.Status != "error" || resp.ErrorMessage == "" {
			t.Fatalf("unexpected error body %+v", resp)
		}
	}
}

func TestCheckBadges(t *testing.T) {
	r := testEngine(newTestHandler(t, nil))
	body := `[
		{"category": "교통", "activity_type": "버스", "carbon_emission_kg": 0.3},
		{"activity": {"category": "교통", "activity_type": "지하철"}, "carbon_emission_kg": 0.2},
		{"activity": {"category": "교통", "activity_type": "버스", "carbon_emission_kg": 0.3}},
		{"category": "식품", "activity_type": "소고기", "carbon_emission_kg": 2.0}
	]`
	w := do(r, http.MethodPost, "/api/v1/badges/check", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp BadgesResponse
	decode(t, w, &resp)
	var ids []string
	for _, b := range resp.Badges {
		ids = append(ids, b.ID)
	}
	want := []string{"rank_s", "public_transport", "saver"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}

	if w := do(r, http.MethodPost, "/api/v1/badges/check", `{"category": "교통"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-array body, got %d", w.Code)
	}
}

func TestReferenceEndpoints(t *testing.T) {
	r := testEngine(newTestHandler(t, nil))

	w := do(r, http.MethodGet, "/api/v1/categories", "")
	var cats map[string][]string
	decode(t, w, &cats)
	if len(cats["categories"]) != 6 || cats["categories"][0] != "교통" {
		t.Fatalf("unexpected categories %v", cats)
	}

	w = do(r, http.MethodGet, "/api/v1/average", "")
	if !bytes.HasPrefix(w.Body.Bytes(), []byte(`{"total_average":10,"category_averages":{"교통":4,`)) {
		t.Fatalf("unexpected averages body %s", w.Body.String())
	}

	w = do(r, http.MethodGet, "/api/v1/average/"+url.PathEscape("식품"), "")
	var one map[string]any
	decode(t, w, &one)
	if one["average_emission"] != 3.0 {
		t.Fatalf("unexpected category average %v", one)
	}
	if w := do(r, http.MethodGet, "/api/v1/average/"+url.PathEscape("우주"), ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown category, got %d", w.Code)
	}
}

func TestCompare(t *testing.T) {
	r := testEngine(newTestHandler(t, nil))

	w := do(r, http.MethodPost, "/api/v1/compare", `{"category": "교통", "emission": 2.5}`)
	var cmp models.Comparison
	decode(t, w, &cmp)
	if cmp.AverageEmission != 4 || cmp.Difference != 1.5 || cmp.Percentage != 62.5 || !cmp.IsBetter {
		t.Fatalf("unexpected comparison %+v", cmp)
	}

	w = do(r, http.MethodPost, "/api/v1/compare", `{"total": 8}`)
	decode(t, w, &cmp)
	if cmp.AverageEmission != 10 || cmp.Percentage != 80 {
		t.Fatalf("unexpected total comparison %+v", cmp)
	}

	if w := do(r, http.MethodPost, "/api/v1/compare", `{"total": -3}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative total, got %d", w.Code)
	}
}

func TestAvatarState(t *testing.T) {
	r := testEngine(newTestHandler(t, nil))

	w := do(r, http.MethodPost, "/api/v1/avatar/state?total_carbon=12&daily_limit=10", "")
	var state models.AvatarState
	decode(t, w, &state)
	if state.HealthScore != 40 || state.Mood != "sad" {
		t.Fatalf("unexpected avatar %+v", state)
	}

	w = do(r, http.MethodPost, "/api/v1/avatar/state?total_carbon=4", "")
	decode(t, w, &state)
	if state.HealthScore != 100 {
		t.Fatalf("expected default limit of 10 to give 100, got %+v", state)
	}

	for _, q := range []string{"", "?total_carbon=abc", "?total_carbon=-1", "?total_carbon=1&daily_limit=0"} {
		if w := do(r, http.MethodPost, "/api/v1/avatar/state"+q, ""); w.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", q, w.Code)
		}
	}
}

type stubStore struct {
	pingErr error
	rows    []models.FeedbackRecord
	source  string
	limit   int
}

func (s *stubStore) Ping(context.Context) error { return s.pingErr }

func (s *stubStore) ListRecentFeedback(_ context.Context, source string, limit int) ([]models.FeedbackRecord, error) {
	s.source, s.limit = source, limit
	return s.rows, nil
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, nil)
	w := do(testEngine(h), http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"model":"fallback-only"`)) {
		t.Fatalf("unexpected health response %d %s", w.Code, w.Body.String())
	}

	h.DB = &stubStore{pingErr: errors.New("down")}
	if w := do(testEngine(h), http.MethodGet, "/healthz", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when db ping fails, got %d", w.Code)
	}
}

func TestRecentFeedback(t *testing.T) {
	h := newTestHandler(t, nil)
	if w := do(testEngine(h), http.MethodGet, "/api/v1/feedback/recent", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a feedback log, got %d", w.Code)
	}

	store := &stubStore{rows: []models.FeedbackRecord{{ID: "a", Source: "llm"}}}
	h.Log = store
	w := do(testEngine(h), http.MethodGet, "/api/v1/feedback/recent?source=llm&limit=500", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if store.source != "llm" || store.limit != maxRecentRecords {
		t.Fatalf("unexpected query args %q %d", store.source, store.limit)
	}
	if w := do(testEngine(h), http.MethodGet, "/api/v1/feedback/recent?limit=zero", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}
