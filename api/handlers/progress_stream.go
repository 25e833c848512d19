package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/yt-audio-extract/internal/app"
	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/internal/progress"
)

const pingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressHandler relays an extraction's progress stream to HTTP clients.
// Every request gets its own subscription.
type ProgressHandler struct {
	queueMgr *app.QueueManager
	hub      *app.ProgressHub
	logger   *zap.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(queueMgr *app.QueueManager, hub *app.ProgressHub, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		queueMgr: queueMgr,
		hub:      hub,
		logger:   logger,
	}
}

// Events handles GET /api/v1/extractions/:id/events as Server-Sent Events.
// Each event is named after its stage; the stream ends after "done".
func (h *ProgressHandler) Events(c *gin.Context) {
	sub, ok := h.subscribe(c)
	if !ok {
		return
	}
	defer sub.Cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Stage), ev)
			return !ev.IsSentinel()
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// WebSocket handles GET /api/v1/extractions/:id/ws. Events are sent as JSON
// text messages and the connection is closed normally after "done".
func (h *ProgressHandler) WebSocket(c *gin.Context) {
	sub, ok := h.subscribe(c)
	if !ok {
		return
	}
	defer sub.Cancel()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("WebSocket client connected",
		zap.String("id", c.Param("id")),
		zap.String("remote_addr", c.Request.RemoteAddr))

	// reads only to notice the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("Failed to send progress event", zap.Error(err))
				return
			}
			if ev.IsSentinel() {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				return
			}

		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-gone:
			return
		}
	}
}

// subscribe attaches to the record's live stream. Records whose stream is no
// longer held get a stream synthesized from the stored state, so followers
// of finished extractions still see the outcome and the sentinel.
func (h *ProgressHandler) subscribe(c *gin.Context) (*progress.Subscription, bool) {
	id := c.Param("id")

	if stream, ok := h.hub.Get(id); ok {
		return stream.Subscribe(), true
	}

	extraction, err := h.queueMgr.GetExtraction(id)
	if err != nil {
		if errors.Is(err, domain.ErrExtractionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "extraction not found"})
			return nil, false
		}
		h.logger.Error("Failed to load extraction for progress", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load extraction"})
		return nil, false
	}

	if !extraction.IsTerminal() {
		return h.hub.Open(id).Subscribe(), true
	}

	return replay(extraction).Subscribe(), true
}

// replay builds a closed stream describing a finished record
func replay(extraction *domain.Extraction) *progress.Stream {
	stream := progress.New()
	ev := domain.ExtractionEvent{Time: extraction.UpdatedAt}

	switch extraction.Status {
	case domain.StatusCompleted:
		ev.Stage = domain.StageCompleted
		ev.Message = extraction.ArtifactPath
		ev.Percent = 100
	case domain.StatusFailed:
		ev.Stage = domain.StageFailed
		if extraction.ErrorKind == domain.KindTimeout {
			ev.Stage = domain.StageTimedOut
		}
		ev.Message = extraction.ErrorMessage
		ev.ErrorKind = extraction.ErrorKind
	}

	if ev.Stage != "" {
		stream.Publish(ev)
	}
	stream.CloseWith(string(extraction.Status))
	return stream
}
