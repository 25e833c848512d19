package humanize

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/yt-audio-extract/internal/browser/browsertest"
	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/internal/jitter"
)

type sleepRecorder struct {
	mu    sync.Mutex
	total time.Duration
	calls []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total += d
	r.calls = append(r.calls, d)
	return ctx.Err()
}

func newSimulator(t *testing.T) (*Simulator, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	return New(domain.DefaultConfig().Humanize, jitter.NewWithSeed(7), zap.NewNop(), WithSleep(rec.sleep)), rec
}

func TestTypeLikeHuman_TypesRuneByRune(t *testing.T) {
	sim, rec := newSimulator(t)
	field := &browsertest.Element{Selector: "input"}
	text := "https://youtu.be/dQw4w9WgXcQ"

	sim.TypeLikeHuman(context.Background(), field, text)

	got, err := field.Value(context.Background())
	require.NoError(t, err)
	assert.Equal(t, text, got)
	assert.Equal(t, len(text), field.TypedRunes())

	cfg := domain.DefaultConfig().Humanize
	require.Len(t, rec.calls, len(text))
	for _, d := range rec.calls {
		assert.GreaterOrEqual(t, d, cfg.KeystrokeMin)
		assert.LessOrEqual(t, d, cfg.KeystrokeMax)
	}
	assert.Greater(t, rec.total, time.Duration(0))
}

func TestTypeLikeHuman_RetypesOnMismatch(t *testing.T) {
	sim, _ := newSimulator(t)
	field := &browsertest.Element{Selector: "input", DropRunes: 3}
	text := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

	sim.TypeLikeHuman(context.Background(), field, text)

	got, _ := field.Value(context.Background())
	assert.Equal(t, text, got)
	assert.Equal(t, 2*len(text), field.TypedRunes())
}

func TestTypeLikeHuman_SwallowsErrors(t *testing.T) {
	sim, _ := newSimulator(t)
	field := &browsertest.Element{Selector: "input", TypeErr: errors.New("detached")}

	assert.NotPanics(t, func() {
		sim.TypeLikeHuman(context.Background(), field, "abc")
	})
}

func TestWander_StaysInsideCentralRegion(t *testing.T) {
	tests := []struct {
		name        string
		w, h        int
		viewportErr error
		wantW       int
		wantH       int
	}{
		{name: "large viewport", w: 1366, h: 768, wantW: 1366, wantH: 768},
		{name: "small viewport", w: 600, h: 400, wantW: 600, wantH: 400},
		{name: "viewport failure", viewportErr: errors.New("eval failed"), wantW: 800, wantH: 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, rec := newSimulator(t)
			session := browsertest.NewSession()
			session.ViewportW, session.ViewportH, session.ViewportErr = tt.w, tt.h, tt.viewportErr

			sim.Wander(context.Background(), session)

			moves := session.Moves()
			require.NotEmpty(t, moves)
			assert.Equal(t, browsertest.Point{X: float64(tt.wantW / 2), Y: float64(tt.wantH / 2)}, moves[0])

			regionW := minInt(tt.wantW/2, 400)
			regionH := minInt(tt.wantH/2, 300)
			left := float64(tt.wantW/2 - regionW/2)
			top := float64(tt.wantH/2 - regionH/2)
			for _, p := range moves {
				assert.GreaterOrEqual(t, p.X, left)
				assert.LessOrEqual(t, p.X, left+float64(regionW))
				assert.GreaterOrEqual(t, p.Y, top)
				assert.LessOrEqual(t, p.Y, top+float64(regionH))
			}

			// centre + 2..3 waypoints of 2..3 steps
			assert.GreaterOrEqual(t, len(moves), 1+2*2)
			assert.LessOrEqual(t, len(moves), 1+3*3)
			assert.Greater(t, rec.total, time.Duration(0))
		})
	}
}

func TestMoveAndClick_ClicksTargetCentre(t *testing.T) {
	sim, _ := newSimulator(t)
	button := &browsertest.Element{Selector: "#convert", X: 640, Y: 420}
	session := browsertest.NewSession(button)

	var clicked *browsertest.Element
	session.OnClick = func(_ *browsertest.Session, el *browsertest.Element) { clicked = el }

	sim.MoveAndClick(context.Background(), session, button)

	moves := session.Moves()
	assert.Equal(t, browsertest.Point{X: 640, Y: 420}, moves[len(moves)-1])
	assert.Equal(t, 1, session.MouseClicks())
	assert.Zero(t, button.Clicks())
	assert.Same(t, button, clicked)
}

func TestMoveAndClick_FallsBackToElementClick(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(s *browsertest.Session, el *browsertest.Element)
	}{
		{
			name:    "pointer click fails",
			prepare: func(s *browsertest.Session, _ *browsertest.Element) { s.MouseClickErr = errors.New("no input") },
		},
		{
			name:    "target has no box",
			prepare: func(_ *browsertest.Session, el *browsertest.Element) { el.CenterErr = errors.New("not visible") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, _ := newSimulator(t)
			button := &browsertest.Element{Selector: "#convert", X: 10, Y: 10}
			session := browsertest.NewSession(button)
			tt.prepare(session, button)

			sim.MoveAndClick(context.Background(), session, button)

			assert.Equal(t, 1, button.Clicks())
		})
	}
}

func TestMoveAndClick_StopsWhenCancelled(t *testing.T) {
	sim, _ := newSimulator(t)
	button := &browsertest.Element{Selector: "#convert", X: 10, Y: 10}
	session := browsertest.NewSession(button)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sim.MoveAndClick(ctx, session, button)

	assert.Zero(t, session.MouseClicks())
	assert.Zero(t, button.Clicks())
}
