package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ecojourney/backend/internal/metrics"
	"github.com/ecojourney/backend/internal/models"
	"github.com/ecojourney/backend/internal/service"
)

// Pinger is satisfied by *db.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FeedbackLog is satisfied by *db.Store.
type FeedbackLog interface {
	ListRecentFeedback(ctx context.Context, source string, limit int) ([]models.FeedbackRecord, error)
}

type Handler struct {
	Feedback  *service.FeedbackService
	Reference *service.ReferenceService
	Badges    service.BadgeEvaluator
	DB        Pinger
	Log       FeedbackLog
	Metrics   *metrics.Recorder
	Validator *validator.Validate
	Logger    zerolog.Logger
}

type ErrorResponse struct {
	Status       string `json:"status" example:"error"`
	ErrorMessage string `json:"error_message"`
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} ErrorResponse
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	resp := gin.H{"status": "ok", "model": "fallback-only", "database": "disabled"}
	if h.Feedback != nil && h.Feedback.Gateway.Configured() {
		resp["model"] = h.Feedback.Gateway.Model()
	}
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			h.Logger.Error().Err(err).Msg("database ping failed")
			writeError(c, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		resp["database"] = "ok"
	}
	c.JSON(http.StatusOK, resp)
}

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Status: "error", ErrorMessage: message})
}

// writeServiceError maps a service error to its status. Unclassified errors
// are logged and answered with a generic message.
func (h *Handler) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnknownCategory):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrGenerationTimeout):
		writeError(c, http.StatusGatewayTimeout, "Feedback generation timed out")
	case errors.Is(err, service.ErrGeneration):
		writeError(c, http.StatusBadGateway, "Could not generate feedback")
	default:
		h.Logger.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled error")
		writeError(c, http.StatusInternalServerError, "Internal server error")
	}
}
