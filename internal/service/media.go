package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"lorewiki/internal/model"
	"lorewiki/internal/storage"

	"github.com/rs/zerolog"
)

// AllowedMimetypes lists the upload types the blob area accepts.
var AllowedMimetypes = map[string]struct{}{
	"image/png":   {},
	"image/jpeg":  {},
	"image/jpg":   {},
	"image/webp":  {},
	"audio/mpeg":  {},
	"audio/mp3":   {},
	"audio/wav":   {},
	"audio/x-wav": {},
	"audio/m4a":   {},
	"audio/mp4":   {},
	"audio/ogg":   {},
}

// MediaService stores uploaded blobs and manages the media references
// attached to entries.
type MediaService interface {
	Upload(ctx context.Context, r io.Reader, originalFilename, mimetype string, size int64) (*model.MediaRef, error)
	Attach(ctx context.Context, entryID string, ref model.MediaRef) (*model.Entry, error)
	Detach(ctx context.Context, entryID, filename string) (*model.Entry, error)
	Open(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error)
	DownloadURL(ctx context.Context, filename string) (string, error)
}

// MediaConfig tunes a MediaService.
type MediaConfig struct {
	MaxUploadBytes int64
	URLPrefix      string
	Presign        bool
	PresignExpiry  time.Duration
}

type mediaService struct {
	coll    *Collection
	blobs   storage.Storage
	cfg     MediaConfig
	metrics *Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// NewMediaService returns a MediaService. metrics may be nil.
func NewMediaService(coll *Collection, blobs storage.Storage, cfg MediaConfig, metrics *Metrics, log zerolog.Logger) MediaService {
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = "/uploads/"
	}
	if !strings.HasSuffix(cfg.URLPrefix, "/") {
		cfg.URLPrefix += "/"
	}
	return &mediaService{
		coll:    coll,
		blobs:   blobs,
		cfg:     cfg,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

// declaredMimetype trims a content type and drops its parameters, keeping the
// type as the client sent it.
func declaredMimetype(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.TrimSpace(ct)
}

// NormalizeMimetype is the lower-cased declared type, used for allow-list
// lookups and kind detection.
func NormalizeMimetype(ct string) string {
	return strings.ToLower(declaredMimetype(ct))
}

var (
	spaceRun  = regexp.MustCompile(`\s+`)
	unsafeRun = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	extUnsafe = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// StoredFilename derives the blob key for an upload: the sanitized base name,
// an underscore, the upload time in Unix milliseconds and the original
// extension.
func StoredFilename(original string, at time.Time) string {
	original = path.Base(strings.ReplaceAll(original, `\`, "/"))
	ext := path.Ext(original)
	base := strings.TrimSuffix(original, ext)

	base = spaceRun.ReplaceAllString(base, "_")
	base = unsafeRun.ReplaceAllString(base, "")
	if base == "" {
		base = "file"
	}
	if ext != "" {
		ext = "." + extUnsafe.ReplaceAllString(ext[1:], "")
		if ext == "." {
			ext = ""
		}
	}
	return fmt.Sprintf("%s_%d%s", base, at.UnixMilli(), ext)
}

func (s *mediaService) Upload(ctx context.Context, r io.Reader, originalFilename, mimetype string, size int64) (*model.MediaRef, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	mimetype = declaredMimetype(mimetype)
	if _, ok := AllowedMimetypes[NormalizeMimetype(mimetype)]; !ok {
		s.metrics.upload("unsupported_type")
		return nil, ErrUnsupportedType
	}
	if size > s.cfg.MaxUploadBytes {
		s.metrics.upload("too_large")
		return nil, ErrPayloadTooLarge
	}
	if size <= 0 {
		size = -1
	}

	name := StoredFilename(originalFilename, s.now())
	lr := &limitedReader{r: r, remaining: s.cfg.MaxUploadBytes}
	_, err := s.blobs.Put(ctx, name, lr, storage.PutObjectOptions{
		Size:        size,
		ContentType: mimetype,
		Metadata:    map[string]string{"original-filename": originalFilename},
	})
	if lr.exceeded {
		s.metrics.upload("too_large")
		if delErr := s.blobs.Delete(ctx, name); delErr != nil {
			s.log.Warn().Err(delErr).Str("filename", name).Msg("cleanup of oversized upload failed")
		}
		return nil, ErrPayloadTooLarge
	}
	if err != nil {
		s.metrics.upload("error")
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	s.metrics.upload("ok")
	s.log.Info().Str("filename", name).Str("mimetype", mimetype).Msg("file uploaded")
	return &model.MediaRef{
		Filename: name,
		URL:      s.cfg.URLPrefix + name,
		Mimetype: mimetype,
		Kind:     model.KindFor(NormalizeMimetype(mimetype)),
	}, nil
}

func (s *mediaService) Attach(ctx context.Context, entryID string, ref model.MediaRef) (*model.Entry, error) {
	if strings.TrimSpace(entryID) == "" {
		return nil, ErrIDRequired
	}
	ref, err := validateRef(ref)
	if err != nil {
		return nil, err
	}
	var updated model.Entry
	err = s.coll.Mutate(ctx, func(entries []model.Entry) ([]model.Entry, error) {
		i := indexOf(entries, entryID)
		if i < 0 {
			return nil, ErrNotFound
		}
		e := &entries[i]
		e.Media = append(e.Media, ref)
		e.UpdatedAt = s.now().UnixMilli()
		updated = e.Clone()
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *mediaService) Detach(ctx context.Context, entryID, filename string) (*model.Entry, error) {
	if strings.TrimSpace(entryID) == "" {
		return nil, ErrIDRequired
	}
	var updated model.Entry
	err := s.coll.Mutate(ctx, func(entries []model.Entry) ([]model.Entry, error) {
		i := indexOf(entries, entryID)
		if i < 0 {
			return nil, ErrNotFound
		}
		e := &entries[i]
		kept := make([]model.MediaRef, 0, len(e.Media))
		for _, m := range e.Media {
			if m.Filename != filename {
				kept = append(kept, m)
			}
		}
		if len(kept) == len(e.Media) {
			return nil, ErrMediaNotFound
		}
		e.Media = kept
		e.UpdatedAt = s.now().UnixMilli()
		updated = e.Clone()
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *mediaService) Open(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error) {
	rc, info, err := s.blobs.Get(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			return nil, storage.ObjectInfo{}, ErrBlobNotFound
		}
		return nil, storage.ObjectInfo{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return rc, info, nil
}

// DownloadURL returns a presigned URL for filename, or
// storage.ErrPresignNotSupported when the caller should stream via Open.
func (s *mediaService) DownloadURL(ctx context.Context, filename string) (string, error) {
	if !s.cfg.Presign {
		return "", storage.ErrPresignNotSupported
	}
	return s.blobs.PresignGet(ctx, filename, s.cfg.PresignExpiry)
}

func validateRef(ref model.MediaRef) (model.MediaRef, error) {
	ref.Filename = strings.TrimSpace(ref.Filename)
	ref.Mimetype = declaredMimetype(ref.Mimetype)
	switch {
	case ref.Filename == "":
		return ref, fmt.Errorf("%w: filename is required", ErrValidation)
	case strings.ContainsAny(ref.Filename, `/\`):
		return ref, fmt.Errorf("%w: filename must not contain path separators", ErrValidation)
	case strings.TrimSpace(ref.URL) == "":
		return ref, fmt.Errorf("%w: url is required", ErrValidation)
	case ref.Mimetype == "":
		return ref, fmt.Errorf("%w: mimetype is required", ErrValidation)
	}
	kind := model.KindFor(NormalizeMimetype(ref.Mimetype))
	if ref.Kind != "" && ref.Kind != kind {
		return ref, fmt.Errorf("%w: kind %q does not match mimetype %q", ErrValidation, ref.Kind, ref.Mimetype)
	}
	ref.Kind = kind
	return ref, nil
}

// limitedReader fails once more than remaining bytes have been read.
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.exceeded {
		return 0, ErrPayloadTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return 0, ErrPayloadTooLarge
	}
	return n, err
}
