package app

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/internal/progress"
)

// ProgressHub keeps one progress stream per extraction record so HTTP clients
// can follow an attempt they did not start. Closed streams stay available for
// late followers until the retention period runs out.
type ProgressHub struct {
	config  *domain.ProgressConfig
	logger  *zap.Logger
	mu      sync.Mutex
	streams map[string]*hubEntry
}

type hubEntry struct {
	stream *progress.Stream
	timer  *time.Timer
}

// NewProgressHub creates an empty hub
func NewProgressHub(config *domain.ProgressConfig, logger *zap.Logger) *ProgressHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressHub{
		config:  config,
		logger:  logger,
		streams: make(map[string]*hubEntry),
	}
}

// NewStream builds a stream with the configured sizes without registering it
func (h *ProgressHub) NewStream() *progress.Stream {
	return progress.New(
		progress.WithBufferSize(h.config.BufferSize),
		progress.WithHistorySize(h.config.HistorySize),
	)
}

// Open returns the open stream for id, replacing a closed one
func (h *ProgressHub) Open(id string) *progress.Stream {
	h.mu.Lock()
	defer h.mu.Unlock()

	if entry, ok := h.streams[id]; ok {
		if !entry.stream.Closed() {
			return entry.stream
		}
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}

	stream := h.NewStream()
	entry := &hubEntry{stream: stream}
	h.streams[id] = entry
	go h.retain(id, entry)
	return stream
}

// Get returns the current stream for id
func (h *ProgressHub) Get(id string) (*progress.Stream, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.streams[id]
	if !ok {
		return nil, false
	}
	return entry.stream, true
}

// Release closes and forgets the stream for id
func (h *ProgressHub) Release(id string) {
	h.mu.Lock()
	entry, ok := h.streams[id]
	if ok {
		delete(h.streams, id)
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
	h.mu.Unlock()

	if ok {
		entry.stream.Close()
	}
}

// Close ends every stream, releasing anyone still following
func (h *ProgressHub) Close() {
	h.mu.Lock()
	entries := h.streams
	h.streams = make(map[string]*hubEntry)
	h.mu.Unlock()

	for _, entry := range entries {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		entry.stream.CloseWith("server shutting down")
	}
}

// Len returns the number of tracked streams
func (h *ProgressHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.streams)
}

// retain drops entry once its stream has closed and the retention period has
// passed, unless a newer stream took its place in the meantime
func (h *ProgressHub) retain(id string, entry *hubEntry) {
	<-entry.stream.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streams[id] != entry {
		return
	}
	entry.timer = time.AfterFunc(h.config.RetainFor, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.streams[id] == entry {
			delete(h.streams, id)
			h.logger.Debug("Released progress stream", zap.String("id", id))
		}
	})
}
