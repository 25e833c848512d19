package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/yt-audio-extract/internal/app"
)

// Version is reported by /health; set at build time with -ldflags
var Version = "dev"

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping() error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	queueMgr *app.QueueManager
	hub      *app.ProgressHub
	db       Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(queueMgr *app.QueueManager, hub *app.ProgressHub, db Pinger) *HealthHandler {
	return &HealthHandler{
		queueMgr: queueMgr,
		hub:      hub,
		db:       db,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Queue   struct {
		Running bool `json:"running"`
	} `json:"queue"`
	Streams int `json:"streams"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
	}
	response.Queue.Running = h.queueMgr.IsRunning()
	if h.hub != nil {
		response.Streams = h.hub.Len()
	}

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.queueMgr.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "queue manager not running",
		})
		return
	}

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "database unavailable: " + err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
