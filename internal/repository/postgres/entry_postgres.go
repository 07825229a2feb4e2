package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"lorewiki/internal/model"
	"lorewiki/internal/repository"
)

// collectionRowID is the single row holding the whole collection.
const collectionRowID = 1

// EntryPostgres is a PostgreSQL implementation of repository.EntryStore.
// The collection is kept as one JSONB document in a single row, matching the
// whole-document semantics of the file store.
type EntryPostgres struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewEntryPostgres creates a new EntryPostgres store.
func NewEntryPostgres(db *sql.DB, log zerolog.Logger) *EntryPostgres {
	return &EntryPostgres{db: db, log: log}
}

var _ repository.EntryStore = (*EntryPostgres)(nil)

// LoadAll fetches the collection document. No row means an empty collection.
func (r *EntryPostgres) LoadAll(ctx context.Context) []model.Entry {
	const q = `SELECT doc FROM lore_collection WHERE id = $1`

	var raw []byte
	if err := r.db.QueryRowContext(ctx, q, collectionRowID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []model.Entry{}
		}
		r.log.Error().Err(err).Msg("load collection")
		return []model.Entry{}
	}

	var entries []model.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		r.log.Error().Err(err).Msg("decode collection")
		return []model.Entry{}
	}
	if entries == nil {
		return []model.Entry{}
	}
	for i := range entries {
		entries[i].Normalize()
	}
	return entries
}

// SaveAll upserts the collection document.
func (r *EntryPostgres) SaveAll(ctx context.Context, entries []model.Entry) error {
	if entries == nil {
		entries = []model.Entry{}
	}
	doc, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}

	const q = `
		INSERT INTO lore_collection (id, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, q, collectionRowID, doc); err != nil {
		return err
	}
	return nil
}

// Ping checks database connectivity.
func (r *EntryPostgres) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
