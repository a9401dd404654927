package http

import (
	"github.com/gin-gonic/gin"

	"github.com/udopaints/storefront-backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	router.Use(SessionMiddleware())

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		upsell := v1.Group("/upsell")
		{
			upsell.POST("/evaluate", handler.EvaluateUpsells)
			upsell.POST("/dismiss", handler.DismissUpsell)
			upsell.GET("/dismissed", handler.ListDismissed)
		}

		cart := v1.Group("/cart")
		{
			cart.POST("/add", handler.AddToCart)
			cart.POST("/reset", handler.ResetCart)
		}

		editor := v1.Group("/editor")
		{
			editor.GET("/status", handler.EditorStatus)
			editor.POST("/upload", handler.TriggerUpload)
		}
	}

	return router
}
