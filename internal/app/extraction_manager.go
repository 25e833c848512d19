package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yourusername/yt-audio-extract/internal/artifact"
	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/internal/progress"
)

// errCancelledByUser is the cancel cause for user requested cancellation, as
// opposed to server shutdown
var errCancelledByUser = errors.New("cancelled by user")

// Extractor runs a single extraction attempt
type Extractor interface {
	Extract(ctx context.Context, sourceURL, outputDir string, stream *progress.Stream) (string, error)
}

// Notifier announces extraction lifecycle changes to the desktop
type Notifier interface {
	NotifyExtractionStarted(url string)
	NotifyExtractionCompleted(url, artifactPath string)
	NotifyExtractionFailed(url string, err error)
}

// ExtractionManager runs extraction records through the extractor with
// bounded concurrency, throttled browser launches and retries
type ExtractionManager struct {
	repo      domain.ExtractionRepository
	extractor Extractor
	hub       *ProgressHub
	notifier  Notifier
	config    *domain.ExtractionConfig
	logger    *zap.Logger
	semaphore chan struct{}
	limiter   *rate.Limiter

	mu       sync.Mutex
	inflight map[string]context.CancelCauseFunc
}

// NewExtractionManager creates a new extraction manager
func NewExtractionManager(
	repo domain.ExtractionRepository,
	extractor Extractor,
	hub *ProgressHub,
	notifier Notifier,
	config *domain.ExtractionConfig,
	logger *zap.Logger,
) *ExtractionManager {
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := config.ConcurrentLimit
	if limit < 1 {
		limit = 1
	}

	// launches per minute, 0 for no throttling
	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.LaunchesPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.LaunchesPerMinute/60), 1)
	}

	return &ExtractionManager{
		repo:      repo,
		extractor: extractor,
		hub:       hub,
		notifier:  notifier,
		config:    config,
		logger:    logger,
		semaphore: make(chan struct{}, limit),
		limiter:   limiter,
		inflight:  make(map[string]context.CancelCauseFunc),
	}
}

// ProcessExtraction runs the record until it completes, fails for good or is
// cancelled. Each try gets a fresh browser session in the record's own
// directory; their progress is relayed onto the record's hub stream.
func (em *ExtractionManager) ProcessExtraction(ctx context.Context, extraction *domain.Extraction) error {
	select {
	case em.semaphore <- struct{}{}:
		defer func() { <-em.semaphore }()
	case <-ctx.Done():
		return ctx.Err()
	}

	attemptCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	extraction, claimed, err := em.claim(extraction.ID, cancel)
	if err != nil {
		return err
	}
	if !claimed {
		em.logger.Debug("Skipping extraction no longer queued",
			zap.String("id", extraction.ID),
			zap.String("status", string(extraction.Status)))
		return nil
	}
	defer em.untrack(extraction.ID)

	em.logger.Info("Processing extraction",
		zap.String("id", extraction.ID),
		zap.String("url", extraction.SourceURL),
		zap.String("output_dir", extraction.OutputDir))

	stream := em.hub.Open(extraction.ID)
	defer stream.Close()

	em.notify(func(n Notifier) { n.NotifyExtractionStarted(extraction.SourceURL) })

	var last domain.Result
	for attempt := 0; attempt <= em.config.MaxRetries; attempt++ {
		if attempt > 0 {
			em.logger.Info("Retrying extraction",
				zap.String("id", extraction.ID),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", em.config.MaxRetries))
			stream.Emit(domain.StageRetrying,
				fmt.Sprintf("Retrying (%d/%d) after: %v", attempt, em.config.MaxRetries, last.Err))

			select {
			case <-time.After(em.config.RetryDelay):
			case <-attemptCtx.Done():
				return em.interrupted(ctx, attemptCtx, extraction)
			}

			extraction.IncrementRetry()
			if err := em.repo.Update(extraction); err != nil {
				em.logger.Error("Failed to update retry count", zap.Error(err))
			}
		}

		if err := em.limiter.Wait(attemptCtx); err != nil {
			return em.interrupted(ctx, attemptCtx, extraction)
		}

		last = em.attempt(attemptCtx, extraction, stream)
		if last.Succeeded() {
			extraction.Settle(last)
			if err := em.repo.Update(extraction); err != nil {
				em.logger.Error("Failed to update extraction status", zap.Error(err))
			}

			em.logger.Info("Extraction completed",
				zap.String("id", extraction.ID),
				zap.String("artifact", last.ArtifactPath))
			em.notify(func(n Notifier) { n.NotifyExtractionCompleted(extraction.SourceURL, last.ArtifactPath) })
			return nil
		}

		if attemptCtx.Err() != nil {
			return em.interrupted(ctx, attemptCtx, extraction)
		}

		em.logger.Warn("Extraction attempt failed",
			zap.String("id", extraction.ID),
			zap.Int("attempt", attempt),
			zap.String("kind", string(last.Err.Kind)),
			zap.Error(last.Err))

		if !extraction.CanRetry(last.Err, em.config.MaxRetries) {
			break
		}
	}

	extraction.Settle(last)
	if err := em.repo.Update(extraction); err != nil {
		em.logger.Error("Failed to update extraction status", zap.Error(err))
	}

	em.logger.Error("Extraction failed after retries",
		zap.String("id", extraction.ID),
		zap.String("url", extraction.SourceURL),
		zap.Error(last.Err))

	em.notify(func(n Notifier) { n.NotifyExtractionFailed(extraction.SourceURL, last.Err) })
	return last.Err
}

// attempt runs one try on its own stream and relays everything but the
// sentinel onto the record stream
func (em *ExtractionManager) attempt(ctx context.Context, extraction *domain.Extraction, stream *progress.Stream) domain.Result {
	try := em.hub.NewStream()
	sub := try.Subscribe()

	relayed := make(chan struct{})
	go func() {
		defer close(relayed)
		for ev := range sub.Events() {
			if ev.IsSentinel() {
				continue
			}
			ev.Seq = 0
			stream.Publish(ev)
		}
	}()

	path, err := em.extractor.Extract(ctx, extraction.SourceURL, extraction.OutputDir, try)
	try.Close()
	<-relayed
	return domain.NewResult(path, err)
}

// interrupted settles a record whose attempt context ended. User cancellation
// is final; on shutdown the record stays processing and is requeued at the
// next start.
func (em *ExtractionManager) interrupted(ctx, attemptCtx context.Context, extraction *domain.Extraction) error {
	if errors.Is(context.Cause(attemptCtx), errCancelledByUser) {
		extraction.MarkCancelled()
		if err := em.repo.Update(extraction); err != nil {
			em.logger.Error("Failed to update extraction status", zap.Error(err))
		}
		em.logger.Info("Extraction cancelled", zap.String("id", extraction.ID))
		return nil
	}
	em.logger.Info("Extraction interrupted", zap.String("id", extraction.ID))
	return ctx.Err()
}

// CancelExtraction cancels a queued or running extraction
func (em *ExtractionManager) CancelExtraction(id string) error {
	// held across the status write so a worker cannot claim the record
	// between the inflight check and the update
	em.mu.Lock()
	defer em.mu.Unlock()

	extraction, err := em.repo.FindByID(id)
	if err != nil {
		return err
	}

	if extraction.IsTerminal() {
		return fmt.Errorf("extraction already in terminal state: %s", extraction.Status)
	}

	if cancel, running := em.inflight[id]; running {
		cancel(errCancelledByUser)
		em.logger.Info("Extraction cancellation requested", zap.String("id", id))
		return nil
	}

	extraction.MarkCancelled()
	if err := em.repo.Update(extraction); err != nil {
		return fmt.Errorf("failed to update extraction: %w", err)
	}
	if stream, ok := em.hub.Get(id); ok {
		stream.CloseWith("cancelled")
	}

	em.logger.Info("Extraction cancelled", zap.String("id", id))
	return nil
}

// RetryExtraction queues a failed or cancelled extraction again
func (em *ExtractionManager) RetryExtraction(id string) error {
	extraction, err := em.repo.FindByID(id)
	if err != nil {
		return err
	}

	if extraction.Status != domain.StatusFailed && extraction.Status != domain.StatusCancelled {
		return fmt.Errorf("extraction is not failed or cancelled: %s", extraction.Status)
	}

	extraction.ResetForRetry()
	if err := em.repo.Update(extraction); err != nil {
		return fmt.Errorf("failed to update extraction: %w", err)
	}
	em.hub.Open(id)

	em.logger.Info("Extraction queued for retry", zap.String("id", id))
	return nil
}

// DeleteArtifact removes the produced file and its attempt directory if empty
func (em *ExtractionManager) DeleteArtifact(id string) (*domain.Extraction, error) {
	extraction, err := em.repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	if !extraction.HasArtifact() {
		return extraction, nil
	}

	if err := artifact.Cleanup(extraction.ArtifactPath); err != nil {
		return nil, err
	}
	if extraction.OutputDir != "" {
		// only succeeds when nothing else is left in it
		_ = os.Remove(extraction.OutputDir)
	}

	extraction.MarkCleaned()
	if err := em.repo.Update(extraction); err != nil {
		return nil, fmt.Errorf("failed to update extraction: %w", err)
	}

	em.logger.Info("Artifact removed",
		zap.String("id", id),
		zap.String("path", extraction.ArtifactPath))
	return extraction, nil
}

// IsRunning reports whether id has an attempt in flight
func (em *ExtractionManager) IsRunning(id string) bool {
	em.mu.Lock()
	defer em.mu.Unlock()
	_, ok := em.inflight[id]
	return ok
}

// claim moves a queued record to processing and registers its cancel func.
// The record may have been cancelled or deleted while waiting for a slot; it
// is then returned unclaimed.
func (em *ExtractionManager) claim(id string, cancel context.CancelCauseFunc) (*domain.Extraction, bool, error) {
	em.mu.Lock()
	defer em.mu.Unlock()

	current, err := em.repo.FindByID(id)
	if err != nil {
		return nil, false, err
	}
	if !current.IsPending() {
		return current, false, nil
	}

	current.OutputDir = filepath.Join(em.config.OutputDir, current.ID)
	current.MarkProcessing()
	if err := em.repo.Update(current); err != nil {
		return nil, false, fmt.Errorf("failed to update extraction status: %w", err)
	}
	em.inflight[id] = cancel
	return current, true, nil
}

func (em *ExtractionManager) untrack(id string) {
	em.mu.Lock()
	defer em.mu.Unlock()
	delete(em.inflight, id)
}

func (em *ExtractionManager) notify(fn func(Notifier)) {
	if em.notifier != nil {
		fn(em.notifier)
	}
}
