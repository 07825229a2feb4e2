// Package app runs client actions against the server and hands back the
// state to show afterwards. Every mutation is followed by a full re-fetch so
// the client never renders a collection the server does not have.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lorewiki/internal/client/view"
	"lorewiki/internal/model"
)

var (
	ErrNoSelection = errors.New("select or create a lore entry first, then upload")
	ErrNoFile      = errors.New("choose a file first")
)

// API is the slice of the server API a Session needs.
type API interface {
	List(ctx context.Context) ([]model.Entry, error)
	Create(ctx context.Context, in model.EntryInput) (*model.Entry, error)
	Update(ctx context.Context, id string, patch model.EntryPatch) (*model.Entry, error)
	Delete(ctx context.Context, id string) error
	Upload(ctx context.Context, filename string, r io.Reader) (*model.MediaRef, error)
	AttachMedia(ctx context.Context, id string, ref model.MediaRef) (*model.Entry, error)
	DetachMedia(ctx context.Context, id, filename string) (*model.Entry, error)
}

// Snapshot is the result of one action: the re-fetched collection and what
// to select in it.
type Snapshot struct {
	Entries []model.Entry
	// Select is the id to make active. Empty clears the selection.
	Select string
}

// ApplyTo replaces the collection in st and updates its selection.
func (s Snapshot) ApplyTo(st *view.State) {
	st.Replace(s.Entries)
	if s.Select == "" || !st.Select(s.Select) {
		st.ClearSelection()
	}
}

// Session performs actions for one client.
type Session struct {
	api API
}

func NewSession(api API) *Session {
	return &Session{api: api}
}

// Load fetches the collection, keeping keep selected if it still exists.
func (s *Session) Load(ctx context.Context, keep string) (Snapshot, error) {
	return s.refetch(ctx, keep)
}

// Save creates the entry when the form has no id and updates it otherwise.
// The saved entry is selected afterwards.
func (s *Session) Save(ctx context.Context, f view.Form) (Snapshot, error) {
	id := f.ID
	if f.Editing() {
		if _, err := s.api.Update(ctx, id, f.Patch()); err != nil {
			return Snapshot{}, fmt.Errorf("save entry: %w", err)
		}
	} else {
		created, err := s.api.Create(ctx, f.Input())
		if err != nil {
			return Snapshot{}, fmt.Errorf("create entry: %w", err)
		}
		id = created.ID
	}
	return s.refetch(ctx, id)
}

// Delete removes id and clears the selection.
func (s *Session) Delete(ctx context.Context, id string) (Snapshot, error) {
	if err := s.api.Delete(ctx, id); err != nil {
		return Snapshot{}, fmt.Errorf("delete entry: %w", err)
	}
	return s.refetch(ctx, "")
}

// Upload sends r to the blob area, attaches the result to entryID and keeps
// that entry selected.
func (s *Session) Upload(ctx context.Context, entryID, filename string, r io.Reader) (Snapshot, error) {
	if entryID == "" {
		return Snapshot{}, ErrNoSelection
	}
	if r == nil || filename == "" {
		return Snapshot{}, ErrNoFile
	}
	ref, err := s.api.Upload(ctx, filename, r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("upload failed: %w", err)
	}
	if _, err := s.api.AttachMedia(ctx, entryID, *ref); err != nil {
		return Snapshot{}, fmt.Errorf("upload failed: %w", err)
	}
	return s.refetch(ctx, entryID)
}

// UploadFile is Upload for a file on disk.
func (s *Session) UploadFile(ctx context.Context, entryID, path string) (Snapshot, error) {
	if entryID == "" {
		return Snapshot{}, ErrNoSelection
	}
	if path == "" {
		return Snapshot{}, ErrNoFile
	}
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("upload failed: %w", err)
	}
	defer f.Close()
	return s.Upload(ctx, entryID, filepath.Base(path), f)
}

// Detach removes filename from entryID and keeps the entry selected.
func (s *Session) Detach(ctx context.Context, entryID, filename string) (Snapshot, error) {
	if _, err := s.api.DetachMedia(ctx, entryID, filename); err != nil {
		return Snapshot{}, fmt.Errorf("detach media: %w", err)
	}
	return s.refetch(ctx, entryID)
}

func (s *Session) refetch(ctx context.Context, selectID string) (Snapshot, error) {
	entries, err := s.api.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("refresh entries: %w", err)
	}
	return Snapshot{Entries: entries, Select: selectID}, nil
}
