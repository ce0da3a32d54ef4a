package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	maxFeedbackBody  = 1 << 20
	maxRecentRecords = 100
)

type FeedbackResponse struct {
	Status string `json:"status" example:"success"`
	Data   string `json:"data"`
}

// @Summary Generate a coaching report
// @Description Turns per-category kg CO2e figures into a coaching report. The report is returned as a JSON string in data; when the model is unavailable a template report of the same shape is returned instead.
// @Tags coaching
// @Accept json
// @Produce json
// @Param payload body object true "category_carbon_data (or category_activity_data) and optional total_carbon_kg"
// @Success 200 {object} FeedbackResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /api/v1/generate-feedback [post]
func (h *Handler) GenerateFeedback(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxFeedbackBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(c, http.StatusBadRequest, "Could not read request body")
		return
	}

	fb, err := h.Feedback.Generate(c.Request.Context(), body)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.Header("X-Feedback-Source", fb.Source)
	c.JSON(http.StatusOK, FeedbackResponse{Status: "success", Data: fb.JSON})
}

// @Summary Recent generated reports
// @Tags admin
// @Produce json
// @Param source query string false "llm or fallback"
// @Param limit query int false "max rows (default 20, max 100)"
// @Success 200 {object} map[string]any
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/feedback/recent [get]
func (h *Handler) RecentFeedback(c *gin.Context) {
	if h.Log == nil {
		writeError(c, http.StatusServiceUnavailable, "Feedback log is not configured")
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentRecords)
	}

	rows, err := h.Log.ListRecentFeedback(c.Request.Context(), c.Query("source"), limit)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}
