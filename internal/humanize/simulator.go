// Package humanize drives input devices with randomized, human-looking timing.
// Failures here never abort an extraction: they are logged and the caller
// carries on.
package humanize

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/internal/jitter"
)

const (
	fallbackWidth  = 800
	fallbackHeight = 600
	retypePause    = 500 * time.Millisecond
)

// Field is a text input
type Field interface {
	Focus(ctx context.Context) error
	Type(ctx context.Context, text string) error
	Value(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// Pointer is the page-level mouse
type Pointer interface {
	Viewport(ctx context.Context) (width, height int, err error)
	MoveMouse(ctx context.Context, x, y float64) error
	Click(ctx context.Context) error
}

// Target is something the pointer can be moved onto and clicked
type Target interface {
	Center(ctx context.Context) (x, y float64, err error)
	Click(ctx context.Context) error
}

// SleepFunc waits for d or until ctx ends
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a Simulator
type Option func(*Simulator)

// WithSleep replaces the real sleep, typically with a recorder in tests
func WithSleep(fn SleepFunc) Option {
	return func(s *Simulator) {
		s.sleep = fn
	}
}

// Simulator types and moves the mouse like a person would
type Simulator struct {
	config domain.HumanizeConfig
	rnd    *jitter.Source
	sleep  SleepFunc
	logger *zap.Logger
}

// New creates a Simulator
func New(config domain.HumanizeConfig, rnd *jitter.Source, logger *zap.Logger, opts ...Option) *Simulator {
	if rnd == nil {
		rnd = jitter.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Simulator{
		config: config,
		rnd:    rnd,
		sleep:  jitter.Sleep,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pause sleeps for a uniform random duration in [min, max]
func (s *Simulator) Pause(ctx context.Context, min, max time.Duration) error {
	return s.sleep(ctx, s.rnd.Duration(min, max))
}

// TypeLikeHuman enters text one rune at a time. If the field does not read
// back exactly text afterwards it is cleared and typed once more in one go.
func (s *Simulator) TypeLikeHuman(ctx context.Context, field Field, text string) {
	if err := field.Focus(ctx); err != nil {
		s.logger.Debug("Failed to focus field", zap.Error(err))
	}

	for _, r := range text {
		if err := field.Type(ctx, string(r)); err != nil {
			s.logger.Warn("Keystroke failed", zap.Error(err))
			break
		}
		if err := s.Pause(ctx, s.config.KeystrokeMin, s.config.KeystrokeMax); err != nil {
			return
		}
	}

	got, err := field.Value(ctx)
	if err != nil {
		s.logger.Warn("Failed to read back typed value", zap.Error(err))
		return
	}
	if got == text {
		return
	}

	s.logger.Info("Typed value mismatch, retyping",
		zap.Int("expected_len", len(text)),
		zap.Int("actual_len", len(got)))

	if err := field.Clear(ctx); err != nil {
		s.logger.Warn("Failed to clear field", zap.Error(err))
		return
	}
	if err := s.sleep(ctx, retypePause); err != nil {
		return
	}
	if err := field.Type(ctx, text); err != nil {
		s.logger.Warn("Retype failed", zap.Error(err))
	}
}

// Wander moves the pointer through a few random points inside the central
// region of the viewport. Failures are logged and swallowed.
func (s *Simulator) Wander(ctx context.Context, pointer Pointer) {
	w, h, err := pointer.Viewport(ctx)
	if err != nil || w <= 0 || h <= 0 {
		if err != nil {
			s.logger.Debug("Viewport unavailable, using fallback", zap.Error(err))
		}
		w, h = fallbackWidth, fallbackHeight
	}

	regionW := minInt(w/2, s.config.RegionWidth)
	regionH := minInt(h/2, s.config.RegionHeight)
	cx, cy := w/2, h/2
	left, top := cx-regionW/2, cy-regionH/2

	waypoints := s.rnd.IntRange(s.config.WaypointsMin, s.config.WaypointsMax)
	points := make([][2]int, 0, waypoints)
	for i := 0; i < waypoints; i++ {
		points = append(points, [2]int{
			s.rnd.IntRange(left, left+regionW),
			s.rnd.IntRange(top, top+regionH),
		})
	}

	if err := pointer.MoveMouse(ctx, float64(cx), float64(cy)); err != nil {
		s.logger.Warn("Mouse movement failed", zap.Error(err))
		return
	}
	if err := s.Pause(ctx, s.config.StartMin, s.config.StartMax); err != nil {
		return
	}

	curX, curY := cx, cy
	for _, p := range points {
		steps := s.rnd.IntRange(s.config.StepsMin, s.config.StepsMax)
		if steps < 1 {
			steps = 1
		}
		stepX, stepY := (p[0]-curX)/steps, (p[1]-curY)/steps
		for i := 0; i < steps; i++ {
			curX += stepX
			curY += stepY
			if err := pointer.MoveMouse(ctx, float64(curX), float64(curY)); err != nil {
				s.logger.Warn("Mouse movement failed", zap.Error(err))
				return
			}
			if err := s.Pause(ctx, s.config.StepPauseMin, s.config.StepPauseMax); err != nil {
				return
			}
		}
		curX, curY = p[0], p[1]
	}

	_ = s.Pause(ctx, s.config.SettleMin, s.config.SettleMax)
}

// MoveAndClick wanders, then moves onto target's centre and clicks it. When
// the pointer click fails the target's own click is tried instead.
func (s *Simulator) MoveAndClick(ctx context.Context, pointer Pointer, target Target) {
	s.Wander(ctx, pointer)
	if ctx.Err() != nil {
		return
	}

	x, y, err := target.Center(ctx)
	if err == nil {
		err = pointer.MoveMouse(ctx, x, y)
	}
	if err == nil {
		if err = s.Pause(ctx, s.config.PreClickMin, s.config.PreClickMax); err != nil {
			return
		}
		err = pointer.Click(ctx)
	}
	if err == nil {
		return
	}

	s.logger.Warn("Pointer click failed, clicking element directly", zap.Error(err))
	if err := target.Click(ctx); err != nil {
		s.logger.Warn("Element click failed", zap.Error(err))
	}
}

func minInt(a, b int) int {
	if b > 0 && b < a {
		return b
	}
	return a
}
