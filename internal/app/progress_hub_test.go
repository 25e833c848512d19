package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/yt-audio-extract/internal/domain"
)

func newTestHub(retain time.Duration) *ProgressHub {
	return NewProgressHub(&domain.ProgressConfig{BufferSize: 8, HistorySize: 16, RetainFor: retain}, nil)
}

func TestProgressHub_OpenReusesOpenStream(t *testing.T) {
	hub := newTestHub(time.Minute)
	defer hub.Close()

	first := hub.Open("a")
	assert.Same(t, first, hub.Open("a"))

	first.Close()
	second := hub.Open("a")
	assert.NotSame(t, first, second)
	assert.False(t, second.Closed())

	got, ok := hub.Get("a")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestProgressHub_ClosedStreamRetainedThenReleased(t *testing.T) {
	hub := newTestHub(20 * time.Millisecond)
	defer hub.Close()

	stream := hub.Open("a")
	stream.Emit(domain.StageNavigated, "loaded")
	stream.Close()

	// still there for late followers
	_, ok := hub.Get("a")
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := hub.Get("a")
		return !ok
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.Len())
}

func TestProgressHub_ReopenedStreamSurvivesOldRetention(t *testing.T) {
	hub := newTestHub(10 * time.Millisecond)
	defer hub.Close()

	hub.Open("a").Close()
	fresh := hub.Open("a")

	time.Sleep(50 * time.Millisecond)
	got, ok := hub.Get("a")
	require.True(t, ok)
	assert.Same(t, fresh, got)
}

func TestProgressHub_ReleaseAndClose(t *testing.T) {
	hub := newTestHub(time.Minute)

	a := hub.Open("a")
	b := hub.Open("b")
	sub := b.Subscribe()
	assert.Equal(t, 2, hub.Len())

	hub.Release("a")
	assert.True(t, a.Closed())
	assert.Equal(t, 1, hub.Len())

	hub.Close()
	assert.True(t, b.Closed())
	assert.Zero(t, hub.Len())

	var last domain.ExtractionEvent
	for ev := range sub.Events() {
		last = ev
	}
	assert.True(t, last.IsSentinel())
	assert.Equal(t, "server shutting down", last.Message)
}
