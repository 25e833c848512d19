package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/yt-audio-extract/internal/browser/browsertest"
	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/internal/fingerprint"
	"github.com/yourusername/yt-audio-extract/internal/humanize"
	"github.com/yourusername/yt-audio-extract/internal/jitter"
	"github.com/yourusername/yt-audio-extract/internal/progress"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func testConfig() *domain.Config {
	cfg := domain.DefaultConfig()
	cfg.Extraction.NavigationTimeout = time.Second
	cfg.Extraction.ElementTimeout = 200 * time.Millisecond
	cfg.Extraction.PollTimeout = 2 * time.Second
	cfg.Extraction.PollIntervalMin = 10 * time.Millisecond
	cfg.Extraction.PollIntervalMax = 30 * time.Millisecond
	cfg.Extraction.WatchDownloads = false
	return cfg
}

func newTestExtractor(t *testing.T, cfg *domain.Config, opener *browsertest.Opener) *Extractor {
	t.Helper()
	rnd := jitter.NewWithSeed(42)
	noSleep := func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	sim := humanize.New(cfg.Humanize, rnd, zap.NewNop(), humanize.WithSleep(noSleep))
	gen, err := fingerprint.NewGenerator(cfg.Fingerprint, rnd)
	require.NoError(t, err)
	return New(opener, gen, sim, rnd, cfg.Converter, cfg.Extraction, zap.NewNop())
}

// converterSite builds sessions that look like the converter page. produce,
// when set, runs once the convert button is clicked.
func converterSite(cfg *domain.Config, produce func(dir string)) func(domain.FingerprintProfile, string) *browsertest.Session {
	return func(_ domain.FingerprintProfile, _ string) *browsertest.Session {
		input := &browsertest.Element{Selector: cfg.Converter.InputSelector, X: 300, Y: 200}
		button := &browsertest.Element{Selector: cfg.Converter.ConvertSelector, X: 640, Y: 420}
		input.SetValue("stale text")

		s := browsertest.NewSession(input, button)
		s.OnClick = func(s *browsertest.Session, el *browsertest.Element) {
			if el == button && produce != nil {
				produce(s.DownloadDir())
			}
		}
		return s
	}
}

func writeArtifact(name string) func(dir string) {
	return func(dir string) {
		_ = os.WriteFile(filepath.Join(dir, name), []byte("ID3"), 0644)
	}
}

func drain(t *testing.T, sub *progress.Subscription) []domain.ExtractionEvent {
	t.Helper()
	var events []domain.ExtractionEvent
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-time.After(5 * time.Second):
			t.Fatal("stream never closed")
		}
	}
}

func stagesOf(events []domain.ExtractionEvent) []domain.Stage {
	var out []domain.Stage
	for _, ev := range events {
		if ev.Stage == domain.StageWaiting {
			continue
		}
		out = append(out, ev.Stage)
	}
	return out
}

func TestExtract_Success(t *testing.T) {
	cfg := testConfig()
	opener := &browsertest.Opener{NewSession: converterSite(cfg, writeArtifact("Never Gonna Give You Up.mp3"))}
	ex := newTestExtractor(t, cfg, opener)

	dir := t.TempDir()
	stream := progress.New()
	sub := stream.Subscribe()

	path, err := ex.Extract(context.Background(), testURL, dir, stream)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Never Gonna Give You Up.mp3"), path)
	assert.FileExists(t, path)
	assert.True(t, filepath.IsAbs(path))

	assert.Equal(t, []domain.Stage{
		domain.StageNavigated,
		domain.StageReferenceSubmitted,
		domain.StageConversionTriggered,
		domain.StagePolling,
		domain.StageCompleted,
		domain.StageDone,
	}, stagesOf(drain(t, sub)))

	sessions := opener.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, 1, sessions[0].Closes())
	assert.Equal(t, []string{cfg.Converter.URL}, sessions[0].Navigated())
	assert.Equal(t, dir, sessions[0].DownloadDir())

	input := sessions[0].Elements[cfg.Converter.InputSelector]
	value, _ := input.Value(context.Background())
	assert.Equal(t, testURL, value)

	// the pointer keeps moving after the convert click
	button := sessions[0].Elements[cfg.Converter.ConvertSelector]
	moves := sessions[0].Moves()
	clickedAt := -1
	for i, p := range moves {
		if p.X == button.X && p.Y == button.Y {
			clickedAt = i
		}
	}
	require.GreaterOrEqual(t, clickedAt, 0)
	assert.Less(t, clickedAt, len(moves)-1)
}

func TestExtract_PicksNewestArtifact(t *testing.T) {
	cfg := testConfig()
	produce := func(dir string) {
		old := filepath.Join(dir, "old.mp3")
		_ = os.WriteFile(old, []byte("a"), 0644)
		past := time.Now().Add(-time.Minute)
		_ = os.Chtimes(old, past, past)
		_ = os.WriteFile(filepath.Join(dir, "new.mp3"), []byte("b"), 0644)
		_ = os.WriteFile(filepath.Join(dir, "partial.mp3.crdownload"), []byte("c"), 0644)
	}
	ex := newTestExtractor(t, cfg, &browsertest.Opener{NewSession: converterSite(cfg, produce)})

	dir := t.TempDir()
	path, err := ex.Extract(context.Background(), testURL, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "new.mp3"), path)
}

func TestExtract_InvalidReferenceNeverOpensBrowser(t *testing.T) {
	inputs := []string{"", "   ", "not a url", "https://vimeo.com/12345", "https://www.youtube.com/"}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			cfg := testConfig()
			opener := &browsertest.Opener{NewSession: converterSite(cfg, nil)}
			ex := newTestExtractor(t, cfg, opener)

			stream := progress.New()
			sub := stream.Subscribe()

			path, err := ex.Extract(context.Background(), raw, t.TempDir(), stream)

			assert.Empty(t, path)
			assert.ErrorIs(t, err, domain.ErrInvalidReference)
			assert.Zero(t, opener.Opens())

			events := drain(t, sub)
			require.Len(t, events, 2)
			assert.Equal(t, domain.StageFailed, events[0].Stage)
			assert.Equal(t, domain.KindInvalidReference, events[0].ErrorKind)
			assert.True(t, events[1].IsSentinel())
		})
	}
}

func TestExtract_TimesOutWithinOneInterval(t *testing.T) {
	cfg := testConfig()
	cfg.Extraction.PollTimeout = 300 * time.Millisecond
	cfg.Extraction.PollIntervalMin = 20 * time.Millisecond
	cfg.Extraction.PollIntervalMax = 60 * time.Millisecond

	opener := &browsertest.Opener{NewSession: converterSite(cfg, nil)}
	ex := newTestExtractor(t, cfg, opener)

	stream := progress.New()
	sub := stream.Subscribe()

	start := time.Now()
	_, err := ex.Extract(context.Background(), testURL, t.TempDir(), stream)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, cfg.Extraction.PollTimeout)
	assert.Less(t, elapsed, cfg.Extraction.PollTimeout+cfg.Extraction.PollIntervalMax+250*time.Millisecond)

	events := drain(t, sub)
	stages := stagesOf(events)
	assert.Equal(t, []domain.Stage{
		domain.StageNavigated,
		domain.StageReferenceSubmitted,
		domain.StageConversionTriggered,
		domain.StagePolling,
		domain.StageTimedOut,
		domain.StageDone,
	}, stages)

	for _, ev := range events {
		if ev.Stage == domain.StageWaiting {
			assert.Less(t, ev.Percent, 90)
		}
	}
	assert.Equal(t, 1, opener.Sessions()[0].Closes())
}

func TestExtract_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		prepare    func(cfg *domain.Config, o *browsertest.Opener)
		wantErr    error
		wantStages []domain.Stage
	}{
		{
			name: "site unreachable",
			prepare: func(cfg *domain.Config, o *browsertest.Opener) {
				site := converterSite(cfg, nil)
				o.NewSession = func(p domain.FingerprintProfile, dir string) *browsertest.Session {
					s := site(p, dir)
					s.NavigateErr = assert.AnError
					return s
				}
			},
			wantErr:    domain.ErrSiteUnreachable,
			wantStages: []domain.Stage{domain.StageFailed, domain.StageDone},
		},
		{
			name: "missing convert button",
			prepare: func(cfg *domain.Config, o *browsertest.Opener) {
				site := converterSite(cfg, nil)
				o.NewSession = func(p domain.FingerprintProfile, dir string) *browsertest.Session {
					s := site(p, dir)
					delete(s.Elements, cfg.Converter.ConvertSelector)
					return s
				}
			},
			wantErr: domain.ErrAutomation,
			wantStages: []domain.Stage{
				domain.StageNavigated,
				domain.StageReferenceSubmitted,
				domain.StageFailed,
				domain.StageDone,
			},
		},
		{
			name: "input cannot be cleared",
			prepare: func(cfg *domain.Config, o *browsertest.Opener) {
				site := converterSite(cfg, nil)
				o.NewSession = func(p domain.FingerprintProfile, dir string) *browsertest.Session {
					s := site(p, dir)
					s.Elements[cfg.Converter.InputSelector].ClearErr = assert.AnError
					return s
				}
			},
			wantErr:    domain.ErrAutomation,
			wantStages: []domain.Stage{domain.StageNavigated, domain.StageFailed, domain.StageDone},
		},
		{
			name: "browser fails to start",
			prepare: func(_ *domain.Config, o *browsertest.Opener) {
				o.OpenErr = assert.AnError
			},
			wantErr:    domain.ErrAutomation,
			wantStages: []domain.Stage{domain.StageFailed, domain.StageDone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			opener := &browsertest.Opener{}
			tt.prepare(cfg, opener)
			ex := newTestExtractor(t, cfg, opener)

			stream := progress.New()
			sub := stream.Subscribe()

			_, err := ex.Extract(context.Background(), testURL, t.TempDir(), stream)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			events := drain(t, sub)
			assert.Equal(t, tt.wantStages, stagesOf(events))
			assert.Equal(t, domain.KindOf(err), events[len(events)-2].ErrorKind)

			for _, s := range opener.Sessions() {
				assert.Equal(t, 1, s.Closes())
			}
		})
	}
}

func TestExtract_CancellationTearsDownSession(t *testing.T) {
	cfg := testConfig()
	site := converterSite(cfg, nil)
	opener := &browsertest.Opener{NewSession: func(p domain.FingerprintProfile, dir string) *browsertest.Session {
		s := site(p, dir)
		s.BlockNavigate = true
		return s
	}}
	ex := newTestExtractor(t, cfg, opener)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := ex.Extract(ctx, testURL, t.TempDir(), nil)

	assert.ErrorIs(t, err, domain.ErrAutomation)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, opener.Sessions(), 1)
	assert.Equal(t, 1, opener.Sessions()[0].Closes())
}

func TestExtract_ConcurrentAttemptsStayIsolated(t *testing.T) {
	cfg := testConfig()
	produce := func(dir string) {
		// each attempt names its file after its own directory
		writeArtifact(filepath.Base(dir) + ".mp3")(dir)
	}
	opener := &browsertest.Opener{NewSession: converterSite(cfg, produce)}
	ex := newTestExtractor(t, cfg, opener)

	root := t.TempDir()
	dirs := []string{filepath.Join(root, "a"), filepath.Join(root, "b"), filepath.Join(root, "c")}
	paths := make([]string, len(dirs))

	var g errgroup.Group
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			p, err := ex.Extract(context.Background(), testURL, dir, nil)
			paths[i] = p
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i, dir := range dirs {
		assert.Equal(t, filepath.Join(dir, filepath.Base(dir)+".mp3"), paths[i])
	}
	assert.Equal(t, len(dirs), opener.Opens())
}

func TestExtractWithCallback(t *testing.T) {
	cfg := testConfig()
	ex := newTestExtractor(t, cfg, &browsertest.Opener{NewSession: converterSite(cfg, writeArtifact("song.mp3"))})

	var events []domain.ExtractionEvent
	path, err := ex.ExtractWithCallback(context.Background(), "https://youtu.be/dQw4w9WgXcQ", t.TempDir(), func(ev domain.ExtractionEvent) {
		events = append(events, ev)
	})

	require.NoError(t, err)
	assert.Equal(t, "song.mp3", filepath.Base(path))
	require.NotEmpty(t, events)
	assert.True(t, events[len(events)-1].IsSentinel())
	assert.Equal(t, domain.StageCompleted, events[len(events)-2].Stage)
}

func TestExtract_WatcherWakesPollEarly(t *testing.T) {
	cfg := testConfig()
	cfg.Extraction.WatchDownloads = true
	cfg.Extraction.PollTimeout = 20 * time.Second
	cfg.Extraction.PollIntervalMin = 10 * time.Second
	cfg.Extraction.PollIntervalMax = 10 * time.Second

	written := make(chan struct{})
	produce := func(dir string) {
		go func() {
			defer close(written)
			time.Sleep(100 * time.Millisecond)
			writeArtifact("late.mp3")(dir)
		}()
	}
	ex := newTestExtractor(t, cfg, &browsertest.Opener{NewSession: converterSite(cfg, produce)})

	start := time.Now()
	path, err := ex.Extract(context.Background(), testURL, t.TempDir(), nil)
	<-written

	require.NoError(t, err)
	assert.Equal(t, "late.mp3", filepath.Base(path))
	assert.Less(t, time.Since(start), 5*time.Second)
}
