// Package repository contains the persistence contract for the entry collection.
// Implementations live in subpackages (jsonfile, postgres) inside this directory.
package repository

import (
	"context"

	"lorewiki/internal/model"
)

// EntryStore persists the whole entry collection as one document.
// There are no partial updates and no indexes: callers load everything,
// change it, and save everything back.
type EntryStore interface {
	// LoadAll returns the stored collection in storage order.
	// A missing or unreadable document yields an empty collection; the
	// implementation logs the condition instead of returning an error.
	LoadAll(ctx context.Context) []model.Entry

	// SaveAll overwrites the stored collection.
	SaveAll(ctx context.Context, entries []model.Entry) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
