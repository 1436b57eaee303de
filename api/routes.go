package api

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/killallgit/spectrogram-api/api/health"
	"github.com/killallgit/spectrogram-api/api/history"
	"github.com/killallgit/spectrogram-api/api/spectrograms"
	"github.com/killallgit/spectrogram-api/api/types"
	"github.com/killallgit/spectrogram-api/api/version"
	_ "github.com/killallgit/spectrogram-api/docs/swagger"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, opts Options, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) error {
	if deps == nil || deps.Spectrograms == nil {
		return errors.New("spectrogram service is required")
	}

	// Register public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	if deps.MetricsHandler != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		engine.GET(path, gin.WrapH(deps.MetricsHandler))
	}

	// Register Swagger documentation route
	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
	docsGroup := engine.Group("/docs")
	docsGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Setup 404 handler
	engine.NoRoute(NotFoundHandler())

	// API v1 routes
	v1 := engine.Group("/api/v1")

	// Rendering is CPU and network heavy, so only this group is rate limited
	spectrogramGroup := v1.Group("/spectrograms")
	if opts.RateLimitEnabled {
		spectrogramGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, opts.RatePerMinute, opts.RateBurst))
	}
	spectrograms.RegisterRoutes(spectrogramGroup, deps)

	// History is only served when a database is configured
	if deps.History != nil {
		history.RegisterRoutes(v1.Group("/history"), deps)
	}

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"code":    "NOT_FOUND",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
