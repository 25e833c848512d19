package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/pkg/logger"
)

// QueueManager manages the extraction queue
type QueueManager struct {
	repo          domain.ExtractionRepository
	extractionMgr *ExtractionManager
	hub           *ProgressHub
	config        *domain.QueueConfig
	multiLogger   *logger.MultiLogger
	mu            sync.RWMutex
	running       bool
	stopChan      chan struct{}
	wake          chan struct{}
	workerWg      sync.WaitGroup
	dispatched    map[string]struct{}
}

// NewQueueManager creates a new queue manager
func NewQueueManager(
	repo domain.ExtractionRepository,
	extractionMgr *ExtractionManager,
	hub *ProgressHub,
	config *domain.QueueConfig,
	multiLogger *logger.MultiLogger,
) *QueueManager {
	return &QueueManager{
		repo:          repo,
		extractionMgr: extractionMgr,
		hub:           hub,
		config:        config,
		multiLogger:   multiLogger,
		stopChan:      make(chan struct{}),
		wake:          make(chan struct{}, 1),
		dispatched:    make(map[string]struct{}),
	}
}

// Start requeues records a previous run left processing and starts the queue
// processor
func (qm *QueueManager) Start(ctx context.Context) error {
	qm.mu.Lock()
	if qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager already running")
	}
	qm.running = true
	qm.mu.Unlock()

	if n, err := qm.repo.ResetProcessing(); err != nil {
		qm.logError("Failed to requeue interrupted extractions", zap.Error(err))
	} else if n > 0 {
		qm.logEvent("extractions_requeued", zap.Int64("count", n))
	}

	qm.logEvent("queue_started")

	qm.workerWg.Add(1)
	go qm.processQueue(ctx)

	qm.Wake()
	return nil
}

// Stop stops the queue processor and waits for running extractions
func (qm *QueueManager) Stop() error {
	qm.mu.Lock()
	if !qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager not running")
	}
	qm.running = false
	qm.mu.Unlock()

	qm.logEvent("queue_stopped")
	close(qm.stopChan)
	qm.workerWg.Wait()

	return nil
}

// IsRunning returns whether the queue manager is running
func (qm *QueueManager) IsRunning() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.running
}

// Wake makes the processor check for pending work without waiting for the
// next tick
func (qm *QueueManager) Wake() {
	select {
	case qm.wake <- struct{}{}:
	default:
	}
}

// AddExtraction validates url and queues an extraction for it. An invalid
// reference is rejected before anything is stored.
func (qm *QueueManager) AddExtraction(url string) (*domain.Extraction, error) {
	ref, err := domain.ParseReference(url)
	if err != nil {
		return nil, err
	}

	extraction := domain.NewExtraction(ref)
	if err := qm.repo.Create(extraction); err != nil {
		return nil, fmt.Errorf("failed to create extraction: %w", err)
	}

	if qm.hub != nil {
		qm.hub.Open(extraction.ID)
	}

	qm.logEvent("extraction_added",
		zap.String("id", extraction.ID),
		zap.String("url", extraction.SourceURL),
		zap.String("video_id", extraction.VideoID))

	qm.Wake()
	return extraction, nil
}

// GetExtraction retrieves an extraction by ID
func (qm *QueueManager) GetExtraction(id string) (*domain.Extraction, error) {
	return qm.repo.FindByID(id)
}

// ListExtractions lists all extractions with optional filters
func (qm *QueueManager) ListExtractions(filters map[string]interface{}) ([]*domain.Extraction, error) {
	return qm.repo.FindAll(filters)
}

// GetStats returns queue statistics
func (qm *QueueManager) GetStats() (*domain.ExtractionStats, error) {
	return qm.repo.GetStats()
}

// ErrExtractionRunning rejects changes to an extraction with an attempt in flight
var ErrExtractionRunning = errors.New("extraction is running")

// DeleteExtraction removes a record that is not running. The artifact on disk
// is left alone.
func (qm *QueueManager) DeleteExtraction(id string) error {
	extraction, err := qm.repo.FindByID(id)
	if err != nil {
		return err
	}

	if extraction.IsProcessing() || (!extraction.IsTerminal() && qm.extractionMgr.IsRunning(id)) {
		return fmt.Errorf("%w: cancel it before deleting", ErrExtractionRunning)
	}
	if extraction.IsPending() {
		if err := qm.extractionMgr.CancelExtraction(id); err != nil {
			return err
		}
	}

	if err := qm.repo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete extraction: %w", err)
	}
	if qm.hub != nil {
		qm.hub.Release(id)
	}

	qm.logEvent("extraction_deleted", zap.String("id", id))
	return nil
}

// processQueue dispatches pending extractions on every tick or wake-up
func (qm *QueueManager) processQueue(ctx context.Context) {
	defer qm.workerWg.Done()

	ticker := time.NewTicker(qm.config.CheckInterval)
	defer ticker.Stop()

	empty := false

	for {
		select {
		case <-ctx.Done():
			qm.logEvent("queue_processor_stopped", zap.String("reason", "context_cancelled"))
			return
		case <-qm.stopChan:
			qm.logEvent("queue_processor_stopped", zap.String("reason", "stop_signal"))
			return
		case <-ticker.C:
		case <-qm.wake:
		}

		pending, err := qm.repo.FindPending()
		if err != nil {
			qm.logError("Failed to fetch pending extractions", zap.Error(err))
			continue
		}

		if len(pending) == 0 {
			if !empty {
				empty = true
				qm.logEvent("queue_empty")
			}
			continue
		}
		empty = false

		for _, extraction := range pending {
			if !qm.claim(extraction.ID) {
				continue
			}

			qm.logEvent("extraction_dispatched",
				zap.String("id", extraction.ID),
				zap.String("url", extraction.SourceURL))

			// the semaphore in ExtractionManager bounds actual concurrency
			qm.workerWg.Add(1)
			go func(extraction *domain.Extraction) {
				defer qm.workerWg.Done()
				defer qm.release(extraction.ID)

				if err := qm.extractionMgr.ProcessExtraction(ctx, extraction); err != nil {
					qm.logEvent("extraction_failed",
						zap.String("id", extraction.ID),
						zap.String("kind", string(domain.KindOf(err))),
						zap.Error(err))
					qm.logError("Failed to process extraction",
						zap.String("id", extraction.ID),
						zap.Error(err))
					return
				}

				qm.logEvent("extraction_finished", zap.String("id", extraction.ID))
			}(extraction)
		}
	}
}

// claim marks id as dispatched so later ticks do not start it twice while it
// waits for a slot
func (qm *QueueManager) claim(id string) bool {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	if _, ok := qm.dispatched[id]; ok {
		return false
	}
	qm.dispatched[id] = struct{}{}
	return true
}

func (qm *QueueManager) release(id string) {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	delete(qm.dispatched, id)
}

func (qm *QueueManager) logEvent(event string, fields ...zap.Field) {
	if qm.multiLogger != nil {
		qm.multiLogger.LogExtractionEvent(event, fields...)
	}
}

func (qm *QueueManager) logError(msg string, fields ...zap.Field) {
	if qm.multiLogger != nil {
		qm.multiLogger.LogAppError(msg, fields...)
	}
}
