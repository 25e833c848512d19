package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/yt-audio-extract/api/handlers"
	"github.com/yourusername/yt-audio-extract/api/middleware"
	"github.com/yourusername/yt-audio-extract/internal/app"
	"github.com/yourusername/yt-audio-extract/pkg/logger"
)

// SetupRouter sets up the HTTP router. Log endpoints are only mounted when
// multiLogger is set.
func SetupRouter(
	queueMgr *app.QueueManager,
	extractionMgr *app.ExtractionManager,
	hub *app.ProgressHub,
	db handlers.Pinger,
	log *zap.Logger,
	multiLogger *logger.MultiLogger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(log, multiLogger))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(queueMgr, hub, db)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		extractionHandler := handlers.NewExtractionHandler(queueMgr, extractionMgr, log)
		progressHandler := handlers.NewProgressHandler(queueMgr, hub, log)

		extractions := v1.Group("/extractions")
		{
			extractions.POST("", extractionHandler.AddExtraction)
			extractions.GET("", extractionHandler.ListExtractions)
			extractions.GET("/stats", extractionHandler.GetStats)
			extractions.GET("/:id", extractionHandler.GetExtraction)
			extractions.GET("/:id/events", progressHandler.Events)
			extractions.GET("/:id/ws", progressHandler.WebSocket)
			extractions.POST("/:id/cancel", extractionHandler.CancelExtraction)
			extractions.POST("/:id/retry", extractionHandler.RetryExtraction)
			extractions.DELETE("/:id/artifact", extractionHandler.DeleteArtifact)
			extractions.DELETE("/:id", extractionHandler.DeleteExtraction)
		}

		if multiLogger != nil {
			logHandler := handlers.NewLogHandler(multiLogger.GetLogsDir())
			extractions.GET("/:id/logs", logHandler.GetExtractionLogs)

			logs := v1.Group("/logs")
			{
				logs.GET("/categories", logHandler.GetCategories)
				logs.GET("/:category", logHandler.GetLogs)
				logs.GET("/:category/export", logHandler.ExportLogs)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
