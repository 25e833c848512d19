package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/yt-audio-extract/internal/app"
	"github.com/yourusername/yt-audio-extract/internal/domain"
)

// ExtractionHandler handles extraction-related HTTP requests
type ExtractionHandler struct {
	queueMgr      *app.QueueManager
	extractionMgr *app.ExtractionManager
	logger        *zap.Logger
}

// NewExtractionHandler creates a new extraction handler
func NewExtractionHandler(queueMgr *app.QueueManager, extractionMgr *app.ExtractionManager, logger *zap.Logger) *ExtractionHandler {
	return &ExtractionHandler{
		queueMgr:      queueMgr,
		extractionMgr: extractionMgr,
		logger:        logger,
	}
}

// AddExtractionRequest represents a request to queue an extraction
type AddExtractionRequest struct {
	URL string `json:"url" binding:"required"`
}

// AddExtraction handles POST /api/v1/extractions
func (h *ExtractionHandler) AddExtraction(c *gin.Context) {
	var req AddExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	extraction, err := h.queueMgr.AddExtraction(req.URL)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidReference) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      err.Error(),
				"error_kind": domain.KindInvalidReference,
			})
			return
		}
		h.logger.Error("Failed to add extraction", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, extraction)
}

// GetExtraction handles GET /api/v1/extractions/:id
func (h *ExtractionHandler) GetExtraction(c *gin.Context) {
	extraction, err := h.queueMgr.GetExtraction(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, extraction)
}

// ListExtractions handles GET /api/v1/extractions
func (h *ExtractionHandler) ListExtractions(c *gin.Context) {
	filters := make(map[string]interface{})

	if status := c.Query("status"); status != "" {
		if !domain.ValidateStatus(domain.ExtractionStatus(status)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status: " + status})
			return
		}
		filters["status"] = status
	}
	if videoID := c.Query("video_id"); videoID != "" {
		filters["video_id"] = videoID
	}
	if kind := c.Query("error_kind"); kind != "" {
		filters["error_kind"] = kind
	}

	extractions, err := h.queueMgr.ListExtractions(filters)
	if err != nil {
		h.logger.Error("Failed to list extractions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"extractions": extractions,
		"count":       len(extractions),
	})
}

// GetStats handles GET /api/v1/extractions/stats
func (h *ExtractionHandler) GetStats(c *gin.Context) {
	stats, err := h.queueMgr.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// CancelExtraction handles POST /api/v1/extractions/:id/cancel
func (h *ExtractionHandler) CancelExtraction(c *gin.Context) {
	id := c.Param("id")

	if err := h.extractionMgr.CancelExtraction(id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "extraction cancelled"})
}

// RetryExtraction handles POST /api/v1/extractions/:id/retry
func (h *ExtractionHandler) RetryExtraction(c *gin.Context) {
	id := c.Param("id")

	if err := h.extractionMgr.RetryExtraction(id); err != nil {
		h.respondError(c, err)
		return
	}
	h.queueMgr.Wake()

	c.JSON(http.StatusOK, gin.H{"message": "extraction queued for retry"})
}

// DeleteArtifact handles DELETE /api/v1/extractions/:id/artifact
func (h *ExtractionHandler) DeleteArtifact(c *gin.Context) {
	extraction, err := h.extractionMgr.DeleteArtifact(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, extraction)
}

// DeleteExtraction handles DELETE /api/v1/extractions/:id
func (h *ExtractionHandler) DeleteExtraction(c *gin.Context) {
	if err := h.queueMgr.DeleteExtraction(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "extraction deleted"})
}

// respondError maps manager errors onto status codes: 404 for unknown IDs,
// 409 for records with an attempt in flight, 400 for everything else the
// caller asked for in the wrong state
func (h *ExtractionHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrExtractionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "extraction not found"})
	case errors.Is(err, app.ErrExtractionRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
