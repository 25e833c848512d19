// Package browser owns the lifecycle of the automated Chrome sessions used for
// extraction. A session is opened per attempt and never reused.
package browser

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/yt-audio-extract/internal/domain"
)

// Element is a located DOM node
type Element interface {
	Focus(ctx context.Context) error
	// Type commits text to the focused field as user input
	Type(ctx context.Context, text string) error
	Value(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
	// Center is the element's visible centre in viewport coordinates
	Center(ctx context.Context) (x, y float64, err error)
	Click(ctx context.Context) error
}

// Session is one live browser bound to a download directory
type Session interface {
	Navigate(ctx context.Context, url string) error
	// Element waits for selector until ctx expires
	Element(ctx context.Context, selector string) (Element, error)
	Viewport(ctx context.Context) (width, height int, err error)
	MoveMouse(ctx context.Context, x, y float64) error
	Click(ctx context.Context) error

	Profile() domain.FingerprintProfile
	DownloadDir() string
	Close() error
}

// Opener launches sessions. Implementations must apply the profile's
// navigator overrides before the first navigation.
type Opener interface {
	Open(ctx context.Context, profile domain.FingerprintProfile, downloadDir string) (Session, error)
}

// WithSession opens a session, runs body with it and closes it exactly once
// on every exit path: return, error, panic in body, or ctx cancellation. On
// cancellation the session is closed immediately so in-flight browser calls
// fail fast, and WithSession still waits for body to unwind.
//
// Close failures are logged as session teardown failures and never replace
// body's result.
func WithSession[T any](
	ctx context.Context,
	opener Opener,
	profile domain.FingerprintProfile,
	downloadDir string,
	logger *zap.Logger,
	body func(ctx context.Context, s Session) (T, error),
) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	session, err := opener.Open(ctx, profile, downloadDir)
	if err != nil {
		return zero, fmt.Errorf("failed to open browser session: %w", err)
	}

	var once sync.Once
	teardown := func() {
		once.Do(func() {
			if err := session.Close(); err != nil {
				logger.Warn("Browser session teardown failed",
					zap.String("kind", string(domain.KindSessionTeardownFailure)),
					zap.String("download_dir", downloadDir),
					zap.Error(err))
				return
			}
			logger.Debug("Browser session closed", zap.String("download_dir", downloadDir))
		})
	}
	defer teardown()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		var out outcome
		defer func() {
			if r := recover(); r != nil {
				out = outcome{err: fmt.Errorf("session body panicked: %v", r)}
			}
			done <- out
		}()
		out.val, out.err = body(ctx, session)
	}()

	select {
	case out := <-done:
		return out.val, out.err
	case <-ctx.Done():
		logger.Info("Extraction cancelled, closing browser session",
			zap.String("download_dir", downloadDir))
		teardown()
		<-done
		return zero, ctx.Err()
	}
}
