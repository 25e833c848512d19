package infrastructure

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/yt-audio-extract/internal/domain"
)

func setupTestRepo(t *testing.T) *SQLiteExtractionRepository {
	t.Helper()
	repo, err := NewSQLiteExtractionRepository(filepath.Join(t.TempDir(), "db", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newRecord(t *testing.T, url string) *domain.Extraction {
	t.Helper()
	ref, err := domain.ParseReference(url)
	require.NoError(t, err)
	return domain.NewExtraction(ref)
}

func TestRepository_CreateFindUpdate(t *testing.T) {
	repo := setupTestRepo(t)

	ex := newRecord(t, "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, repo.Create(ex))

	found, err := repo.FindByID(ex.ID)
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", found.VideoID)
	assert.Equal(t, domain.StatusQueued, found.Status)

	found.MarkProcessing()
	found.MarkFailed(domain.NewError(domain.KindTimeout, "no file", nil))
	require.NoError(t, repo.Update(found))

	again, err := repo.FindByID(ex.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, again.Status)
	assert.Equal(t, domain.KindTimeout, again.ErrorKind)
	assert.NotNil(t, again.StartedAt)
	assert.NotNil(t, again.CompletedAt)
}

func TestRepository_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.FindByID("missing")
	assert.ErrorIs(t, err, domain.ErrExtractionNotFound)

	assert.ErrorIs(t, repo.Delete("missing"), domain.ErrExtractionNotFound)
}

func TestRepository_FindPendingOldestFirst(t *testing.T) {
	repo := setupTestRepo(t)

	first := newRecord(t, "https://youtu.be/aaaaaaaaaaa")
	second := newRecord(t, "https://youtu.be/bbbbbbbbbbb")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	done := newRecord(t, "https://youtu.be/ccccccccccc")
	done.MarkCompleted("/tmp/c.mp3")

	require.NoError(t, repo.Create(second))
	require.NoError(t, repo.Create(first))
	require.NoError(t, repo.Create(done))

	pending, err := repo.FindPending()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)
}

func TestRepository_FindAllFilters(t *testing.T) {
	repo := setupTestRepo(t)

	a := newRecord(t, "https://youtu.be/aaaaaaaaaaa")
	b := newRecord(t, "https://youtu.be/bbbbbbbbbbb")
	b.MarkCompleted("/tmp/b.mp3")
	require.NoError(t, repo.Create(a))
	require.NoError(t, repo.Create(b))

	all, err := repo.FindAll(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	completed, err := repo.FindAll(map[string]interface{}{"status": domain.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, b.ID, completed[0].ID)

	_, err = repo.FindAll(map[string]interface{}{"1=1; DROP TABLE extractions; --": 1})
	assert.Error(t, err)
}

func TestRepository_ResetProcessingAndStats(t *testing.T) {
	repo := setupTestRepo(t)

	running := newRecord(t, "https://youtu.be/aaaaaaaaaaa")
	running.MarkProcessing()
	queued := newRecord(t, "https://youtu.be/bbbbbbbbbbb")
	failed := newRecord(t, "https://youtu.be/ccccccccccc")
	failed.MarkFailed(assert.AnError)
	for _, ex := range []*domain.Extraction{running, queued, failed} {
		require.NoError(t, repo.Create(ex))
	}

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, &domain.ExtractionStats{Total: 3, Queued: 1, Processing: 1, Failed: 1}, stats)

	n, err := repo.ResetProcessing()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := repo.CountByStatus(domain.StatusQueued)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	found, err := repo.FindByID(running.ID)
	require.NoError(t, err)
	assert.Nil(t, found.StartedAt)
}
