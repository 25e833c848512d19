package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSweepOrphanProfiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	active := filepath.Join(dir, ProfileDirPrefix+"active")
	orphan := filepath.Join(dir, ProfileDirPrefix+"orphan")
	unrelated := filepath.Join(dir, "some_other_folder")
	for _, p := range []string{active, orphan, unrelated} {
		require.NoError(t, os.Mkdir(p, 0755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(orphan, "Cookies"), []byte("x"), 0644))

	require.NoError(t, os.Chtimes(active, now.Add(-5*time.Minute), now.Add(-5*time.Minute)))
	require.NoError(t, os.Chtimes(orphan, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))
	require.NoError(t, os.Chtimes(unrelated, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))

	removed := SweepOrphanProfiles(dir, 30*time.Minute, zap.NewNop())

	assert.Equal(t, 1, removed)
	assert.DirExists(t, active)
	assert.DirExists(t, unrelated)
	assert.NoDirExists(t, orphan)
}

func TestSweepOrphanProfiles_MissingDir(t *testing.T) {
	removed := SweepOrphanProfiles(filepath.Join(t.TempDir(), "missing"), time.Minute, zap.NewNop())
	assert.Zero(t, removed)
}

func TestStartProfileSweeper_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	orphan := filepath.Join(dir, ProfileDirPrefix+"old")
	require.NoError(t, os.Mkdir(orphan, 0755))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(orphan, old, old))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		StartProfileSweeper(ctx, dir, time.Minute, time.Hour, zap.NewNop())
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(orphan)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
