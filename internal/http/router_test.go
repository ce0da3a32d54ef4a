package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ecojourney/backend/internal/config"
	"github.com/ecojourney/backend/internal/http/middleware"
	"github.com/ecojourney/backend/internal/metrics"
	"github.com/ecojourney/backend/internal/rules"
	"github.com/ecojourney/backend/internal/service"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rule, err := rules.Default()
	if err != nil {
		t.Fatalf("default rule: %v", err)
	}
	cfg := config.Config{Port: "8080", AdminKey: "secret", CORSAllowed: "*"}
	m := metrics.New()
	deps := Deps{
		Feedback:  &service.FeedbackService{Compiler: service.PromptCompiler{Rule: rule}, Metrics: m, Logger: zerolog.Nop()},
		Reference: &service.ReferenceService{Logger: zerolog.Nop()},
		Metrics:   m,
	}
	return Router(cfg, deps, zerolog.Nop())
}

func TestRouterRequestIDAndMetrics(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate-feedback", bytes.NewBufferString(`{"category_carbon_data": {"교통": 1}}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Fatalf("expected a generated request id")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(middleware.RequestIDHeader); got != "abc-123" {
		t.Fatalf("expected caller request id to be echoed, got %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	if !strings.Contains(body, `carbon_coach_http_requests_total{method="POST",path="/api/v1/generate-feedback",status="200"} 1`) {
		t.Fatalf("request not counted:\n%s", body)
	}
	if !strings.Contains(body, `carbon_coach_feedback_total{source="fallback"} 1`) {
		t.Fatalf("feedback not counted:\n%s", body)
	}
}

func TestRouterAdminKey(t *testing.T) {
	r := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/feedback/recent", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without admin key, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error_message":"Invalid admin key"`) {
		t.Fatalf("unexpected error body %s", w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feedback/recent", nil)
	req.Header.Set(middleware.AdminKeyHeader, "secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a database, got %d", w.Code)
	}
}
