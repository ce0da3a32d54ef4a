package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecojourney/backend/internal/models"
	"github.com/ecojourney/backend/internal/service"
)

type CompareRequest struct {
	Category *string `json:"category"`
	Emission float64 `json:"emission" validate:"gte=0"`
	Total    float64 `json:"total" validate:"gte=0"`
}

type AvatarQuery struct {
	TotalCarbon *float64 `form:"total_carbon" validate:"required,gte=0"`
	DailyLimit  *float64 `form:"daily_limit" validate:"omitempty,gt=0"`
}

type BadgesResponse struct {
	Badges []models.Badge `json:"badges"`
}

// @Summary Supported categories
// @Tags reference
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/categories [get]
func (h *Handler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.Reference.Categories()})
}

// @Summary Average daily emission
// @Tags reference
// @Produce json
// @Success 200 {object} models.Averages
// @Router /api/v1/average [get]
func (h *Handler) Average(c *gin.Context) {
	c.JSON(http.StatusOK, h.Reference.Averages(c.Request.Context()))
}

// @Summary Average daily emission of one category
// @Tags reference
// @Produce json
// @Param category path string true "category name"
// @Success 200 {object} map[string]any
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/average/{category} [get]
func (h *Handler) CategoryAverage(c *gin.Context) {
	category := c.Param("category")
	v, err := h.Reference.CategoryAverage(c.Request.Context(), category)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category, "average_emission": v})
}

// @Summary Compare an emission with the average
// @Description Send {"category","emission"} for a category or {"total"} for the whole day.
// @Tags reference
// @Accept json
// @Produce json
// @Param payload body CompareRequest true "emission to compare"
// @Success 200 {object} models.Comparison
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/compare [post]
func (h *Handler) Compare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "emission and total must not be negative")
		return
	}

	category, emission := "", req.Total
	if req.Category != nil {
		category, emission = *req.Category, req.Emission
	}
	res, err := h.Reference.Compare(c.Request.Context(), category, emission)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Earth avatar state
// @Tags reference
// @Produce json
// @Param total_carbon query number true "today's total kg CO2e"
// @Param daily_limit query number false "daily limit kg CO2e (default 10)"
// @Success 200 {object} models.AvatarState
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/avatar/state [post]
func (h *Handler) AvatarState(c *gin.Context) {
	var q AvatarQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, http.StatusBadRequest, "total_carbon and daily_limit must be numbers")
		return
	}
	if err := h.Validator.Struct(q); err != nil {
		writeError(c, http.StatusBadRequest, "total_carbon is required and must not be negative")
		return
	}
	limit := service.DefaultAverageDailyKg
	if q.DailyLimit != nil {
		limit = *q.DailyLimit
	}
	c.JSON(http.StatusOK, service.AvatarFor(*q.TotalCarbon, limit))
}

// @Summary Check earned badges
// @Description Accepts flat activity records or records nested under "activity".
// @Tags badges
// @Accept json
// @Produce json
// @Param payload body []models.Activity true "activity list"
// @Success 200 {object} BadgesResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/badges/check [post]
func (h *Handler) CheckBadges(c *gin.Context) {
	var acts []models.Activity
	if err := c.ShouldBindJSON(&acts); err != nil {
		writeError(c, http.StatusBadRequest, "Body must be a JSON array of activities")
		return
	}

	avg := h.Reference.Averages(c.Request.Context())
	badges := h.Badges.Evaluate(acts, avg.TotalKg)
	for _, b := range badges {
		h.Metrics.BadgeAwarded(b.ID)
	}
	c.JSON(http.StatusOK, BadgesResponse{Badges: badges})
}
