package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"lorewiki/internal/model"
	"lorewiki/internal/repository"
)

// EntryFile stores the collection as a pretty-printed JSON array in one file.
// Writes go to a temp file in the same directory and are renamed into place,
// so a failed write never truncates the previous document.
type EntryFile struct {
	path string
	log  zerolog.Logger
	now  func() time.Time
}

// NewEntryFile creates a file-backed store. The parent directory is created
// if it does not exist yet.
func NewEntryFile(path string, log zerolog.Logger) (*EntryFile, error) {
	if path == "" {
		return nil, fmt.Errorf("data file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &EntryFile{path: path, log: log, now: time.Now}, nil
}

var _ repository.EntryStore = (*EntryFile)(nil)

// LoadAll reads the whole document. A corrupt document is moved aside to
// <path>.corrupt-<unixms> so the next save does not overwrite it.
func (f *EntryFile) LoadAll(ctx context.Context) []model.Entry {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f.log.Info().Str("path", f.path).Msg("data file missing, starting with empty collection")
		} else {
			f.log.Error().Err(err).Str("path", f.path).Msg("read data file")
		}
		return []model.Entry{}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []model.Entry{}
	}

	var entries []model.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		aside := f.path + ".corrupt-" + strconv.FormatInt(f.now().UnixMilli(), 10)
		if mvErr := os.Rename(f.path, aside); mvErr != nil {
			f.log.Error().Err(err).AnErr("rename_error", mvErr).Str("path", f.path).Msg("data file corrupt")
		} else {
			f.log.Error().Err(err).Str("path", f.path).Str("moved_to", aside).Msg("data file corrupt")
		}
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

// SaveAll replaces the document with the given collection.
func (f *EntryFile) SaveAll(ctx context.Context, entries []model.Entry) error {
	if entries == nil {
		entries = []model.Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}

// Ping checks that the data directory is still there.
func (f *EntryFile) Ping(ctx context.Context) error {
	dir := filepath.Dir(f.path)
	st, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
