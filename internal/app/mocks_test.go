package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/internal/progress"
)

// mockRepo implements domain.ExtractionRepository in memory. Records are
// stored by value so callers never share a pointer with the store.
type mockRepo struct {
	mu      sync.Mutex
	records map[string]domain.Extraction
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[string]domain.Extraction)}
}

func (m *mockRepo) Create(e *domain.Extraction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[e.ID] = *e
	return nil
}

func (m *mockRepo) Update(e *domain.Extraction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[e.ID] = *e
	return nil
}

func (m *mockRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrExtractionNotFound, id)
	}
	delete(m.records, id)
	return nil
}

func (m *mockRepo) FindByID(id string) (*domain.Extraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrExtractionNotFound, id)
	}
	return &e, nil
}

func (m *mockRepo) FindByStatus(status domain.ExtractionStatus) ([]*domain.Extraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Extraction
	for _, e := range m.records {
		if e.Status == status {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockRepo) FindPending() ([]*domain.Extraction, error) {
	return m.FindByStatus(domain.StatusQueued)
}

func (m *mockRepo) FindAll(filters map[string]interface{}) ([]*domain.Extraction, error) {
	switch status := filters["status"].(type) {
	case domain.ExtractionStatus:
		return m.FindByStatus(status)
	case string:
		return m.FindByStatus(domain.ExtractionStatus(status))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Extraction
	for _, e := range m.records {
		e := e
		out = append(out, &e)
	}
	return out, nil
}

func (m *mockRepo) CountByStatus(status domain.ExtractionStatus) (int64, error) {
	found, _ := m.FindByStatus(status)
	return int64(len(found)), nil
}

func (m *mockRepo) ResetProcessing() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.records {
		if e.Status == domain.StatusProcessing {
			e.Status = domain.StatusQueued
			m.records[id] = e
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) GetStats() (*domain.ExtractionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.ExtractionStats{Total: int64(len(m.records))}
	for _, e := range m.records {
		switch e.Status {
		case domain.StatusQueued:
			stats.Queued++
		case domain.StatusProcessing:
			stats.Processing++
		case domain.StatusCompleted:
			stats.Completed++
		case domain.StatusFailed:
			stats.Failed++
		case domain.StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

func (m *mockRepo) get(id string) domain.Extraction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id]
}

// gatedRepo holds the first Update that writes a cancelled status until
// release is closed
type gatedRepo struct {
	*mockRepo
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedRepo(repo *mockRepo) *gatedRepo {
	return &gatedRepo{
		mockRepo: repo,
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (g *gatedRepo) Update(e *domain.Extraction) error {
	if e.Status == domain.StatusCancelled {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	return g.mockRepo.Update(e)
}

// fakeExtractor runs fn for every attempt and tracks how many run at once
type fakeExtractor struct {
	fn func(ctx context.Context, call int, dir string, stream *progress.Stream) (string, error)

	mu        sync.Mutex
	calls     int
	active    int
	maxActive int
}

func (f *fakeExtractor) Extract(ctx context.Context, sourceURL, outputDir string, stream *progress.Stream) (string, error) {
	defer stream.Close()

	f.mu.Lock()
	f.calls++
	call := f.calls
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	return f.fn(ctx, call, outputDir, stream)
}

func (f *fakeExtractor) stats() (calls, maxActive int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.maxActive
}

// recordingNotifier remembers which notifications were sent
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) NotifyExtractionStarted(string)           { r.add("started") }
func (r *recordingNotifier) NotifyExtractionCompleted(string, string) { r.add("completed") }
func (r *recordingNotifier) NotifyExtractionFailed(string, error)     { r.add("failed") }

func (r *recordingNotifier) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}
