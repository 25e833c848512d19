package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/yt-audio-extract/internal/domain"
)

func withServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	old := serverURL
	serverURL = srv.URL
	t.Cleanup(func() { serverURL = old })
}

func TestReadEvents(t *testing.T) {
	body := "event:navigated\ndata:{\"seq\":1,\"stage\":\"navigated\",\"message\":\"loaded\"}\n\n" +
		": comment line\n\n" +
		"event:completed\ndata: {\"seq\":2,\"stage\":\"completed\",\"message\":\"/tmp/a.mp3\"}\n\n" +
		"event:done\ndata:{\"seq\":3,\"stage\":\"done\"}\n\n" +
		"event:ignored\ndata:{\"seq\":4,\"stage\":\"failed\"}\n\n"

	var got []domain.Stage
	err := readEvents(strings.NewReader(body), func(ev domain.ExtractionEvent) {
		got = append(got, ev.Stage)
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Stage{domain.StageNavigated, domain.StageCompleted, domain.StageDone}, got)
}

func TestReadEvents_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"ends without sentinel", "event:navigated\ndata:{\"stage\":\"navigated\"}\n\n"},
		{"malformed json", "event:navigated\ndata:{nope\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := readEvents(strings.NewReader(tt.body), func(domain.ExtractionEvent) {})
			assert.Error(t, err)
		})
	}
}

func TestFollowExtraction(t *testing.T) {
	tests := []struct {
		name    string
		events  string
		wantErr error
	}{
		{
			name: "completed",
			events: "event:completed\ndata:{\"stage\":\"completed\",\"message\":\"/tmp/a.mp3\"}\n\n" +
				"event:done\ndata:{\"stage\":\"done\"}\n\n",
		},
		{
			name: "timed out",
			events: "event:timed_out\ndata:{\"stage\":\"timed_out\",\"error_kind\":\"timeout\"}\n\n" +
				"event:done\ndata:{\"stage\":\"done\"}\n\n",
			wantErr: errExtractionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/extractions/abc/events", r.URL.Path)
				w.Header().Set("Content-Type", "text/event-stream")
				_, _ = w.Write([]byte(tt.events))
			})

			var out bytes.Buffer
			err := followExtraction(context.Background(), &out, "abc")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NotEmpty(t, out.String())
		})
	}
}

func TestCall_MapsServerErrors(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"no recognizable video id","error_kind":"invalid_reference"}`))
	})

	err := call(http.MethodPost, "/api/v1/extractions", map[string]string{"url": "x"}, nil)
	require.Error(t, err)
	assert.Equal(t, "no recognizable video id (invalid_reference)", err.Error())
}

func TestCall_DecodesResponse(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"id":"abc","video_id":"dQw4w9WgXcQ","status":"completed"}`))
	})

	var e domain.Extraction
	require.NoError(t, call(http.MethodGet, extractionPath("abc"), nil, &e))
	assert.Equal(t, domain.StatusCompleted, e.Status)
	assert.Equal(t, "dQw4w9WgXcQ", e.VideoID)
}

type fakeCallbackExtractor struct {
	mu   sync.Mutex
	dirs []string
}

func (f *fakeCallbackExtractor) ExtractWithCallback(ctx context.Context, sourceURL, outputDir string, onProgress func(domain.ExtractionEvent)) (string, error) {
	f.mu.Lock()
	f.dirs = append(f.dirs, outputDir)
	f.mu.Unlock()

	if _, err := domain.ParseReference(sourceURL); err != nil {
		return "", err
	}
	onProgress(domain.ExtractionEvent{Stage: domain.StageNavigated, Time: time.Now()})
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(outputDir, "a.mp3")
	return path, os.WriteFile(path, nil, 0644)
}

func TestRunExtractions(t *testing.T) {
	out := t.TempDir()
	ext := &fakeCallbackExtractor{}

	err := runExtractions(context.Background(), ext, []string{
		"https://youtu.be/aaaaaaaaaaa",
		"https://www.youtube.com/watch?v=bbbbbbbbbbb",
	}, out, 2, zap.NewNop())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(out, "01-aaaaaaaaaaa"),
		filepath.Join(out, "02-bbbbbbbbbbb"),
	}, ext.dirs)
	assert.FileExists(t, filepath.Join(out, "01-aaaaaaaaaaa", "a.mp3"))
}

func TestRunExtractions_ReportsFailures(t *testing.T) {
	ext := &fakeCallbackExtractor{}

	err := runExtractions(context.Background(), ext, []string{
		"https://youtu.be/aaaaaaaaaaa",
		"not a video",
	}, t.TempDir(), 1, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.False(t, errors.Is(err, context.Canceled))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "héé...", truncate("hééééééé", 6))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
