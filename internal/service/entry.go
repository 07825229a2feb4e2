package service

import (
	"context"
	"strings"
	"time"

	"lorewiki/internal/model"
	"lorewiki/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EntryService manages lore entries.
type EntryService interface {
	List(ctx context.Context) ([]model.Entry, error)
	Create(ctx context.Context, in model.EntryInput) (*model.Entry, error)
	Update(ctx context.Context, id string, patch model.EntryPatch) (*model.Entry, error)
	Delete(ctx context.Context, id string) error
}

type entryService struct {
	coll    *Collection
	blobs   storage.Storage
	cascade bool
	log     zerolog.Logger
	now     func() time.Time
	newID   func() string
}

// NewEntryService returns an EntryService over coll. When cascade is set,
// deleting an entry also removes the blobs no remaining entry references.
func NewEntryService(coll *Collection, blobs storage.Storage, cascade bool, log zerolog.Logger) EntryService {
	return &entryService{
		coll:    coll,
		blobs:   blobs,
		cascade: cascade,
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (s *entryService) List(ctx context.Context) ([]model.Entry, error) {
	return s.coll.Snapshot(ctx), nil
}

func (s *entryService) Create(ctx context.Context, in model.EntryInput) (*model.Entry, error) {
	entry := model.Entry{
		ID:        s.newID(),
		Title:     model.CleanTitle(in.Title),
		Type:      strings.TrimSpace(in.Type),
		Tags:      model.CleanTags(in.Tags),
		Body:      strings.TrimSpace(in.Body),
		Media:     []model.MediaRef{},
		UpdatedAt: s.now().UnixMilli(),
	}
	err := s.coll.Mutate(ctx, func(entries []model.Entry) ([]model.Entry, error) {
		return append(entries, entry), nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("entry_id", entry.ID).Msg("entry created")
	return &entry, nil
}

func (s *entryService) Update(ctx context.Context, id string, patch model.EntryPatch) (*model.Entry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrIDRequired
	}
	var updated model.Entry
	err := s.coll.Mutate(ctx, func(entries []model.Entry) ([]model.Entry, error) {
		i := indexOf(entries, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		e := &entries[i]
		if patch.Title != nil {
			e.Title = model.CleanTitle(*patch.Title)
		}
		if patch.Type != nil {
			e.Type = strings.TrimSpace(*patch.Type)
		}
		if patch.Tags != nil {
			e.Tags = model.CleanTags(*patch.Tags)
		}
		if patch.Body != nil {
			e.Body = strings.TrimSpace(*patch.Body)
		}
		e.UpdatedAt = s.now().UnixMilli()
		updated = e.Clone()
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *entryService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrIDRequired
	}
	var orphans []string
	err := s.coll.Mutate(ctx, func(entries []model.Entry) ([]model.Entry, error) {
		i := indexOf(entries, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		removed := entries[i]
		rest := append(entries[:i:i], entries[i+1:]...)
		if s.cascade {
			orphans = unreferenced(removed.Media, rest)
		}
		return rest, nil
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("entry_id", id).Msg("entry deleted")

	for _, name := range orphans {
		if err := s.blobs.Delete(ctx, name); err != nil {
			s.log.Warn().Err(err).Str("filename", name).Msg("cascade media delete failed")
		}
	}
	return nil
}

// unreferenced returns the filenames in media that no entry in rest still uses.
func unreferenced(media []model.MediaRef, rest []model.Entry) []string {
	used := make(map[string]struct{})
	for _, e := range rest {
		for _, m := range e.Media {
			used[m.Filename] = struct{}{}
		}
	}
	var out []string
	for _, m := range media {
		if _, ok := used[m.Filename]; ok {
			continue
		}
		used[m.Filename] = struct{}{}
		out = append(out, m.Filename)
	}
	return out
}
