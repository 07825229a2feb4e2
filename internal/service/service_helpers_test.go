package service

import (
	"context"
	"sync"
	"time"

	"lorewiki/internal/model"
)

// memStore is an in-memory EntryStore that copies on every load and save.
type memStore struct {
	mu      sync.Mutex
	entries []model.Entry
	saveErr error
	saves   int
}

func (m *memStore) LoadAll(ctx context.Context) []model.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Clone())
	}
	return out
}

func (m *memStore) SaveAll(ctx context.Context, entries []model.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.entries = make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		m.entries = append(m.entries, e.Clone())
	}
	return nil
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}
