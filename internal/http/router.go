package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ecojourney/backend/internal/config"
	"github.com/ecojourney/backend/internal/db"
	"github.com/ecojourney/backend/internal/http/handlers"
	"github.com/ecojourney/backend/internal/http/middleware"
	"github.com/ecojourney/backend/internal/metrics"
	"github.com/ecojourney/backend/internal/service"

	_ "github.com/ecojourney/backend/docs"
)

// Deps are the services the router wires into handlers. Store may be nil.
type Deps struct {
	Feedback  *service.FeedbackService
	Reference *service.ReferenceService
	Badges    service.BadgeEvaluator
	Store     *db.Store
	Metrics   *metrics.Recorder
}

func Router(cfg config.Config, deps Deps, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"status":        "error",
			"error_message": "Internal server error",
		})
	}))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(deps.Metrics))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.AdminKeyHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "X-Feedback-Source"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" || cfg.CORSAllowed == "" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		for _, origin := range strings.Split(cfg.CORSAllowed, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				corsCfg.AllowOrigins = append(corsCfg.AllowOrigins, origin)
			}
		}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Feedback:  deps.Feedback,
		Reference: deps.Reference,
		Badges:    deps.Badges,
		Metrics:   deps.Metrics,
		Validator: validator.New(),
		Logger:    logger,
	}
	if deps.Store != nil {
		h.DB = deps.Store
		h.Log = deps.Store
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	api := r.Group("/api/v1")
	if cfg.RequestTimeout > 0 {
		api.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	{
		api.POST("/generate-feedback", h.GenerateFeedback)
		api.POST("/badges/check", h.CheckBadges)
		api.GET("/categories", h.Categories)
		api.GET("/average", h.Average)
		api.GET("/average/:category", h.CategoryAverage)
		api.POST("/compare", h.Compare)
		api.POST("/avatar/state", h.AvatarState)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.GET("/feedback/recent", h.RecentFeedback)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
