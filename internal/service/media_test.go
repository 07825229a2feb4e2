package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"lorewiki/internal/model"
	"lorewiki/internal/storage"
	storeMocks "lorewiki/internal/storage/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testMaxUpload = 20 << 20

func newTestMediaService(t *testing.T, store *memStore, blobs storage.Storage, cfg MediaConfig) (*mediaService, *Metrics) {
	t.Helper()
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = testMaxUpload
	}
	svc := NewMediaService(NewCollection(store, nil), blobs, cfg, m, zerolog.Nop()).(*mediaService)
	svc.now = fixedClock(1700000000000)
	return svc, m
}

func TestStoredFilename(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	tests := []struct {
		in   string
		want string
	}{
		{"Red Dragon.png", "Red_Dragon_1700000000000.png"},
		{"roar!!.mp3", "roar_1700000000000.mp3"},
		{"../../etc/passwd", "passwd_1700000000000"},
		{`C:\fakepath\map.webp`, "map_1700000000000.webp"},
		{"???.gif", "file_1700000000000.gif"},
		{"", "file_1700000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StoredFilename(tt.in, at))
		})
	}
}

func TestNormalizeMimetype(t *testing.T) {
	assert.Equal(t, "image/png", NormalizeMimetype(" Image/PNG ; charset=binary"))
	assert.Equal(t, "", NormalizeMimetype(""))
	assert.Equal(t, "audio/x-wav", NormalizeMimetype("audio/x-wav"))
	assert.Equal(t, "image/jpg", NormalizeMimetype("image/jpg"))
}

func TestMediaService_UploadAllowList(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		mimetype string
		allowed  bool
		kind     string
	}{
		{"image/png", true, model.KindImage},
		{"image/jpeg", true, model.KindImage},
		{"image/jpg", true, model.KindImage},
		{"image/webp", true, model.KindImage},
		{"audio/mpeg", true, model.KindAudio},
		{"audio/mp3", true, model.KindAudio},
		{"audio/wav", true, model.KindAudio},
		{"audio/x-wav", true, model.KindAudio},
		{"audio/m4a", true, model.KindAudio},
		{"audio/mp4", true, model.KindAudio},
		{"audio/ogg", true, model.KindAudio},
		{"Audio/MP4; codecs=mp4a", true, model.KindAudio},
		{"image/gif", false, ""},
		{"audio/webm", false, ""},
		{"text/plain", false, ""},
		{"application/octet-stream", false, ""},
		{"", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.mimetype, func(t *testing.T) {
			blobs, err := storage.NewDisk(t.TempDir())
			require.NoError(t, err)
			svc, _ := newTestMediaService(t, &memStore{}, blobs, MediaConfig{})

			got, err := svc.Upload(ctx, strings.NewReader("abc"), "clip.bin", tt.mimetype, 3)
			if !tt.allowed {
				assert.ErrorIs(t, err, ErrUnsupportedType)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, got.Kind)
		})
	}
}

func TestMediaService_UploadKeepsDeclaredMimetype(t *testing.T) {
	ctx := context.Background()
	blobs, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)
	store := &memStore{entries: []model.Entry{{ID: "e1", Media: []model.MediaRef{}}}}
	svc, _ := newTestMediaService(t, store, blobs, MediaConfig{})

	ref, err := svc.Upload(ctx, strings.NewReader("abc"), "roar.mp3", " audio/mp3 ; rate=44100", 3)
	require.NoError(t, err)
	assert.Equal(t, "audio/mp3", ref.Mimetype)
	assert.Equal(t, model.KindAudio, ref.Kind)

	e, err := svc.Attach(ctx, "e1", model.MediaRef{Filename: "a.jpg", URL: "/uploads/a.jpg", Mimetype: "image/jpg"})
	require.NoError(t, err)
	assert.Equal(t, "image/jpg", e.Media[0].Mimetype)
	assert.Equal(t, model.KindImage, e.Media[0].Kind)
}

func TestMediaService_Upload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		filename   string
		mimetype   string
		body       []byte
		size       int64
		setupMocks func(mStore *storeMocks.MockStorage)
		wantErr    error
		wantErrMsg string
		wantResult string
		want       *model.MediaRef
	}{
		{
			name:     "image accepted",
			filename: "map.png",
			mimetype: "image/png",
			body:     bytes.Repeat([]byte{1}, 1<<20),
			size:     1 << 20,
			setupMocks: func(mStore *storeMocks.MockStorage) {
				mStore.On("Put", ctx, "map_1700000000000.png", mock.Anything, storage.PutObjectOptions{
					Size:        1 << 20,
					ContentType: "image/png",
					Metadata:    map[string]string{"original-filename": "map.png"},
				}).Return(storage.ObjectInfo{Key: "map_1700000000000.png"}, nil)
			},
			wantResult: "ok",
			want: &model.MediaRef{
				Filename: "map_1700000000000.png",
				URL:      "/uploads/map_1700000000000.png",
				Mimetype: "image/png",
				Kind:     model.KindImage,
			},
		},
		{
			name:       "text is rejected",
			filename:   "notes.txt",
			mimetype:   "text/plain",
			body:       []byte("hi"),
			size:       2,
			wantErr:    ErrUnsupportedType,
			wantResult: "unsupported_type",
		},
		{
			name:       "declared size over limit",
			filename:   "big.png",
			mimetype:   "image/png",
			body:       []byte("x"),
			size:       25 << 20,
			wantErr:    ErrPayloadTooLarge,
			wantResult: "too_large",
		},
		{
			name:     "storage error",
			filename: "a.mp3",
			mimetype: "audio/mpeg",
			body:     []byte("abc"),
			size:     3,
			setupMocks: func(mStore *storeMocks.MockStorage) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
			},
			wantErrMsg: "upload to storage: storage fail",
			wantResult: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			if tt.setupMocks != nil {
				tt.setupMocks(mStore)
			}
			svc, m := newTestMediaService(t, &memStore{}, mStore, MediaConfig{})

			got, err := svc.Upload(ctx, bytes.NewReader(tt.body), tt.filename, tt.mimetype, tt.size)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			case tt.wantErrMsg != "":
				assert.EqualError(t, err, tt.wantErrMsg)
				assert.Nil(t, got)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues(tt.wantResult)))
			mStore.AssertExpectations(t)
		})
	}
}

func TestMediaService_UploadNilReader(t *testing.T) {
	svc, _ := newTestMediaService(t, &memStore{}, new(storeMocks.MockStorage), MediaConfig{})
	_, err := svc.Upload(context.Background(), nil, "a.png", "image/png", 1)
	assert.ErrorIs(t, err, ErrReaderNil)
}

func TestMediaService_UploadStreamOverLimit(t *testing.T) {
	dir := t.TempDir()
	blobs, err := storage.NewDisk(dir)
	require.NoError(t, err)
	svc, _ := newTestMediaService(t, &memStore{}, blobs, MediaConfig{MaxUploadBytes: 10})

	// Declared size lies; the reader carries more than the limit.
	got, err := svc.Upload(context.Background(), strings.NewReader(strings.Repeat("x", 64)), "a.png", "image/png", 5)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Nil(t, got)

	_, _, err = blobs.Get(context.Background(), "a_1700000000000.png")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMediaService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	blobs, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)
	store := &memStore{entries: []model.Entry{{ID: "e1", Tags: []string{}, Media: []model.MediaRef{}}}}
	svc, _ := newTestMediaService(t, store, blobs, MediaConfig{})

	payload := []byte("RIFF....WAVEfmt ")
	ref, err := svc.Upload(ctx, bytes.NewReader(payload), "howl.wav", "audio/wav", int64(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, model.KindAudio, ref.Kind)

	rc, _, err := svc.Open(ctx, ref.Filename)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	e, err := svc.Attach(ctx, "e1", *ref)
	require.NoError(t, err)
	assert.Equal(t, []model.MediaRef{*ref}, e.Media)

	_, _, err = svc.Open(ctx, "missing.png")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestMediaService_Attach(t *testing.T) {
	ref := model.MediaRef{Filename: "a.png", URL: "/uploads/a.png", Mimetype: "image/png"}

	t.Run("twice keeps order and duplicates", func(t *testing.T) {
		store := &memStore{entries: []model.Entry{{ID: "e1", Media: []model.MediaRef{}}}}
		svc, _ := newTestMediaService(t, store, nil, MediaConfig{})
		other := model.MediaRef{Filename: "b.mp3", URL: "/uploads/b.mp3", Mimetype: "audio/mpeg"}

		_, err := svc.Attach(context.Background(), "e1", ref)
		require.NoError(t, err)
		_, err = svc.Attach(context.Background(), "e1", other)
		require.NoError(t, err)
		e, err := svc.Attach(context.Background(), "e1", ref)
		require.NoError(t, err)

		names := []string{}
		for _, m := range e.Media {
			names = append(names, m.Filename)
		}
		assert.Equal(t, []string{"a.png", "b.mp3", "a.png"}, names)
		assert.Equal(t, model.KindImage, e.Media[0].Kind)
		assert.Equal(t, model.KindAudio, e.Media[1].Kind)
		assert.Equal(t, int64(1700000000000), e.UpdatedAt)
	})

	tests := []struct {
		name    string
		id      string
		ref     model.MediaRef
		wantErr error
	}{
		{"missing entry", "nope", ref, ErrNotFound},
		{"blank id", "", ref, ErrIDRequired},
		{"no filename", "e1", model.MediaRef{URL: "/u", Mimetype: "image/png"}, ErrValidation},
		{"filename with separator", "e1", model.MediaRef{Filename: "../a.png", URL: "/u", Mimetype: "image/png"}, ErrValidation},
		{"no url", "e1", model.MediaRef{Filename: "a.png", Mimetype: "image/png"}, ErrValidation},
		{"no mimetype", "e1", model.MediaRef{Filename: "a.png", URL: "/u"}, ErrValidation},
		{"kind mismatch", "e1", model.MediaRef{Filename: "a.png", URL: "/u", Mimetype: "image/png", Kind: "audio"}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{entries: []model.Entry{{ID: "e1", Media: []model.MediaRef{}}}}
			svc, _ := newTestMediaService(t, store, nil, MediaConfig{})

			_, err := svc.Attach(context.Background(), tt.id, tt.ref)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, store.saves)
		})
	}
}

func TestMediaService_Detach(t *testing.T) {
	seed := func() []model.Entry {
		return []model.Entry{{ID: "e1", Media: []model.MediaRef{
			{Filename: "a.png"}, {Filename: "b.mp3"}, {Filename: "a.png"},
		}}}
	}

	t.Run("removes every match", func(t *testing.T) {
		store := &memStore{entries: seed()}
		svc, _ := newTestMediaService(t, store, nil, MediaConfig{})

		e, err := svc.Detach(context.Background(), "e1", "a.png")
		require.NoError(t, err)
		assert.Equal(t, []model.MediaRef{{Filename: "b.mp3"}}, e.Media)
	})

	t.Run("unknown filename", func(t *testing.T) {
		store := &memStore{entries: seed()}
		svc, _ := newTestMediaService(t, store, nil, MediaConfig{})

		_, err := svc.Detach(context.Background(), "e1", "zzz.png")
		assert.ErrorIs(t, err, ErrMediaNotFound)
		assert.Equal(t, seed(), store.entries)
	})

	t.Run("unknown entry", func(t *testing.T) {
		svc, _ := newTestMediaService(t, &memStore{}, nil, MediaConfig{})
		_, err := svc.Detach(context.Background(), "nope", "a.png")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMediaService_DownloadURL(t *testing.T) {
	ctx := context.Background()

	t.Run("presign disabled", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		svc, _ := newTestMediaService(t, &memStore{}, mStore, MediaConfig{})
		_, err := svc.DownloadURL(ctx, "a.png")
		assert.ErrorIs(t, err, storage.ErrPresignNotSupported)
		mStore.AssertNotCalled(t, "PresignGet", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("presign enabled", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("PresignGet", ctx, "a.png", 15*time.Minute).Return("https://s3/a.png?sig", nil)
		svc, _ := newTestMediaService(t, &memStore{}, mStore, MediaConfig{Presign: true, PresignExpiry: 15 * time.Minute})
		url, err := svc.DownloadURL(ctx, "a.png")
		require.NoError(t, err)
		assert.Equal(t, "https://s3/a.png?sig", url)
	})
}
