// Package extractor runs one audio extraction attempt against the converter
// site: open a fresh browser, submit the video URL, trigger the conversion and
// wait for the converter's download to land in the attempt's directory.
//
// The attempt moves through navigated, reference_submitted,
// conversion_triggered and polling before ending in exactly one of completed,
// timed_out or failed. Each step is published on a progress.Stream.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/yt-audio-extract/internal/browser"
	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/internal/humanize"
	"github.com/yourusername/yt-audio-extract/internal/jitter"
	"github.com/yourusername/yt-audio-extract/internal/progress"
)

const (
	clearPauseMin  = 300 * time.Millisecond
	clearPauseMax  = 500 * time.Millisecond
	submitPauseMin = 700 * time.Millisecond
	submitPauseMax = 1200 * time.Millisecond
)

// ProfileSource hands out a fingerprint per attempt
type ProfileSource interface {
	Generate() domain.FingerprintProfile
}

// Extractor drives the converter site. It holds no per-attempt state, so a
// single Extractor serves any number of concurrent attempts.
type Extractor struct {
	opener    browser.Opener
	profiles  ProfileSource
	sim       *humanize.Simulator
	rnd       *jitter.Source
	converter domain.ConverterConfig
	config    domain.ExtractionConfig
	logger    *zap.Logger
}

// New creates an Extractor
func New(
	opener browser.Opener,
	profiles ProfileSource,
	sim *humanize.Simulator,
	rnd *jitter.Source,
	converter domain.ConverterConfig,
	config domain.ExtractionConfig,
	logger *zap.Logger,
) *Extractor {
	if rnd == nil {
		rnd = jitter.New()
	}
	return &Extractor{
		opener:    opener,
		profiles:  profiles,
		sim:       sim,
		rnd:       rnd,
		converter: converter,
		config:    config,
		logger:    logger,
	}
}

// Extract runs one attempt and returns the absolute path of the produced
// file. The returned error is always a *domain.Error. stream may be nil; when
// given, it is closed before Extract returns.
func (e *Extractor) Extract(ctx context.Context, sourceURL, outputDir string, stream *progress.Stream) (string, error) {
	if stream == nil {
		stream = progress.New(progress.WithHistorySize(0))
	}
	defer stream.Close()

	start := time.Now()
	path, err := e.run(ctx, sourceURL, outputDir, stream)
	if err != nil {
		err = classify(ctx, err)
	}
	e.finish(stream, path, err)

	if err != nil {
		e.logger.Warn("Extraction failed",
			zap.String("url", sourceURL),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", err
	}

	e.logger.Info("Extraction completed",
		zap.String("url", sourceURL),
		zap.String("artifact", path),
		zap.Duration("elapsed", time.Since(start)))
	return path, nil
}

// ExtractWithCallback is Extract with progress delivered to onProgress. All
// callbacks, the done event included, have run by the time it returns.
func (e *Extractor) ExtractWithCallback(ctx context.Context, sourceURL, outputDir string, onProgress func(domain.ExtractionEvent)) (string, error) {
	stream := progress.New()
	sub := stream.Subscribe()

	relayed := make(chan struct{})
	go func() {
		defer close(relayed)
		for ev := range sub.Events() {
			if onProgress != nil {
				onProgress(ev)
			}
		}
	}()

	path, err := e.Extract(ctx, sourceURL, outputDir, stream)
	<-relayed
	return path, err
}

func (e *Extractor) run(ctx context.Context, sourceURL, outputDir string, stream *progress.Stream) (string, error) {
	ref, err := domain.ParseReference(sourceURL)
	if err != nil {
		return "", err
	}

	dir, err := filepath.Abs(outputDir)
	if err != nil {
		return "", domain.NewError(domain.KindAutomation, "invalid output directory", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", domain.NewError(domain.KindAutomation, "failed to create output directory", err)
	}

	profile := e.profiles.Generate()
	e.logger.Info("Starting extraction",
		zap.String("video_id", ref.VideoID),
		zap.String("output_dir", dir),
		zap.String("viewport", profile.Viewport.String()))

	path, err := browser.WithSession(ctx, e.opener, profile, dir, e.logger,
		func(ctx context.Context, s browser.Session) (string, error) {
			return e.drive(ctx, s, ref, stream)
		})
	if err != nil {
		return "", err
	}
	return path, nil
}

func (e *Extractor) drive(ctx context.Context, s browser.Session, ref domain.SourceReference, stream *progress.Stream) (string, error) {
	navCtx, cancel := context.WithTimeout(ctx, e.config.NavigationTimeout)
	err := s.Navigate(navCtx, e.converter.URL)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", domain.NewError(domain.KindSiteUnreachable, "failed to load "+e.converter.URL, err)
	}
	stream.Emit(domain.StageNavigated, "Opened audio converter website")

	if err := e.sim.Pause(ctx, e.config.PageSettleMin, e.config.PageSettleMax); err != nil {
		return "", err
	}

	input, err := e.element(ctx, s, e.converter.InputSelector)
	if err != nil {
		return "", err
	}
	if err := input.Clear(ctx); err != nil {
		return "", automationError(ctx, "failed to clear input field", err)
	}
	if err := e.sim.Pause(ctx, clearPauseMin, clearPauseMax); err != nil {
		return "", err
	}
	e.sim.TypeLikeHuman(ctx, input, ref.Raw)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stream.Emit(domain.StageReferenceSubmitted, "Entered YouTube URL")

	if err := e.sim.Pause(ctx, submitPauseMin, submitPauseMax); err != nil {
		return "", err
	}

	button, err := e.element(ctx, s, e.converter.ConvertSelector)
	if err != nil {
		return "", err
	}
	e.sim.MoveAndClick(ctx, s, button)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stream.Emit(domain.StageConversionTriggered, "Started audio extraction")

	stream.Emit(domain.StagePolling, "Processing audio, this may take a minute")
	path, err := e.poll(ctx, s.DownloadDir(), stream)
	if err != nil {
		return "", err
	}

	// one more stretch of mouse movement before the session is torn down
	e.sim.Wander(ctx, s)
	return path, nil
}

// element waits for selector for at most the configured element timeout
func (e *Extractor) element(ctx context.Context, s browser.Session, selector string) (browser.Element, error) {
	elCtx, cancel := context.WithTimeout(ctx, e.config.ElementTimeout)
	defer cancel()

	el, err := s.Element(elCtx, selector)
	if err != nil {
		return nil, automationError(ctx, fmt.Sprintf("element %s not available", selector), err)
	}
	return el, nil
}

func (e *Extractor) finish(stream *progress.Stream, path string, err error) {
	switch {
	case err == nil:
		stream.Emit(domain.StageCompleted, "Audio download completed: "+filepath.Base(path))
	case errors.Is(err, domain.ErrTimeout):
		stream.Publish(domain.ExtractionEvent{
			Stage:     domain.StageTimedOut,
			Message:   "Timed out waiting for download",
			ErrorKind: domain.KindTimeout,
		})
	default:
		stream.Publish(domain.ExtractionEvent{
			Stage:     domain.StageFailed,
			Message:   err.Error(),
			ErrorKind: domain.KindOf(err),
		})
	}
}

func automationError(ctx context.Context, detail string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return domain.NewError(domain.KindAutomation, detail, err)
}

// classify maps any error leaving the attempt onto a *domain.Error. External
// cancellation wins over whatever the interrupted step reported.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrInvalidReference) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.NewError(domain.KindAutomation, "extraction cancelled", ctxErr)
	}
	if domain.KindOf(err) != "" {
		return err
	}
	return domain.NewError(domain.KindAutomation, "", err)
}
