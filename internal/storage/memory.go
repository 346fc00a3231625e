package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"flickfusion-tg-bot/internal/catalog"
)

// Memory is an in-memory Store. It backs the test suites and is safe for
// concurrent use; reads always observe a complete pre- or post-write state.
type Memory struct {
	mu       sync.Mutex
	nextID   int64
	movies   map[int64]catalog.MovieRecord
	users    map[int64]time.Time
	requests int64
}

func NewMemory() *Memory {
	return &Memory{
		movies: make(map[int64]catalog.MovieRecord),
		users:  make(map[int64]time.Time),
	}
}

func (m *Memory) CreateMovie(_ context.Context, rec catalog.MovieRecord) (catalog.MovieRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = m.nextID
	rec.SearchKey = catalog.NormalizeTitle(rec.Title)
	rec.CreatedAt = time.Now().UTC()
	m.movies[rec.ID] = rec
	return rec, nil
}

func (m *Memory) MovieByID(_ context.Context, id int64) (catalog.MovieRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.movies[id]
	if !ok {
		return catalog.MovieRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) All(_ context.Context) ([]catalog.MovieRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]catalog.MovieRecord, 0, len(m.movies))
	for _, rec := range m.movies {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (m *Memory) DeleteMovie(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.movies[id]; !ok {
		return ErrNotFound
	}
	delete(m.movies, id)
	return nil
}

func (m *Memory) LogRequest(_ context.Context, _, _, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
	return nil
}

func (m *Memory) UpsertUser(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = time.Now().UTC()
	return nil
}

func (m *Memory) UserIDs(_ context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Movies:   int64(len(m.movies)),
		Users:    int64(len(m.users)),
		Requests: m.requests,
	}, nil
}
