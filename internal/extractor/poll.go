package extractor

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/yourusername/yt-audio-extract/internal/artifact"
	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/internal/progress"
)

// poll lists dir until a file with the artifact extension shows up or the
// poll timeout passes. The last wait is clipped to the deadline, so a timeout
// is reported no later than one poll interval after it.
func (e *Extractor) poll(ctx context.Context, dir string, stream *progress.Stream) (string, error) {
	timeout := e.config.PollTimeout
	ext := e.converter.ArtifactExt
	start := time.Now()
	deadline := start.Add(timeout)

	var wake <-chan struct{}
	if e.config.WatchDownloads {
		w, err := watchDir(dir, ext, e.logger)
		if err != nil {
			e.logger.Debug("Download watcher unavailable, polling only", zap.Error(err))
		} else {
			defer w.Close()
			wake = w.C
		}
	}

	lastReported := 0
	for {
		path, err := artifact.Latest(dir, ext)
		if err != nil {
			e.logger.Warn("Failed to list download directory", zap.String("dir", dir), zap.Error(err))
		} else if path != "" {
			return path, nil
		}

		now := time.Now()
		if !now.Before(deadline) {
			return "", domain.NewError(domain.KindTimeout,
				fmt.Sprintf("no %s file in %s after %s", ext, dir, timeout), nil)
		}

		if timeout > 0 {
			percent := int(now.Sub(start) * 100 / timeout)
			if percent >= lastReported+10 {
				lastReported = percent
				if percent < 90 {
					stream.Publish(domain.ExtractionEvent{
						Stage:   domain.StageWaiting,
						Message: fmt.Sprintf("Still working... %d%% of timeout", percent),
						Percent: percent,
					})
				}
			}
		}

		wait := e.rnd.Duration(e.config.PollIntervalMin, e.config.PollIntervalMax)
		if remaining := deadline.Sub(now); wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// dirWatcher signals C whenever a file with the wanted extension is created
// or renamed into the watched directory
type dirWatcher struct {
	C chan struct{}

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func watchDir(dir, ext string, logger *zap.Logger) (*dirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	d := &dirWatcher{
		C:       make(chan struct{}, 1),
		watcher: w,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(d.done)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if !artifact.MatchesExt(ev.Name, ext) {
					continue
				}
				select {
				case d.C <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Debug("Download watcher error", zap.Error(err))
			}
		}
	}()

	return d, nil
}

func (d *dirWatcher) Close() {
	d.watcher.Close()
	<-d.done
}
