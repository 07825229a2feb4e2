package service

import (
	"context"
	"fmt"
	"sync"

	"lorewiki/internal/model"
	"lorewiki/internal/repository"
)

// Collection serializes access to the entry store. Every mutation is a
// load-modify-save cycle run while holding one process-wide lock, so two
// requests can no longer overwrite each other's changes.
type Collection struct {
	mu      sync.Mutex
	store   repository.EntryStore
	metrics *Metrics
}

// NewCollection wraps store. metrics may be nil.
func NewCollection(store repository.EntryStore, metrics *Metrics) *Collection {
	return &Collection{store: store, metrics: metrics}
}

// Snapshot returns the current collection.
func (c *Collection) Snapshot(ctx context.Context) []model.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// Mutate loads the collection, applies fn and saves the result. When fn
// returns an error nothing is written.
func (c *Collection) Mutate(ctx context.Context, fn func([]model.Entry) ([]model.Entry, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fn(c.load(ctx))
	if err != nil {
		return err
	}
	err = c.store.SaveAll(ctx, next)
	c.metrics.storeWrite(err)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// Ping reports whether the backing store is reachable.
func (c *Collection) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

func (c *Collection) load(ctx context.Context) []model.Entry {
	entries := c.store.LoadAll(ctx)
	if entries == nil {
		return []model.Entry{}
	}
	return entries
}

func indexOf(entries []model.Entry, id string) int {
	for i := range entries {
		if entries[i].ID == id {
			return i
		}
	}
	return -1
}
