package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"lorewiki/internal/model"
	"lorewiki/internal/service"
	serviceMocks "lorewiki/internal/service/mocks"
	"lorewiki/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(stubPinger{}))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(stubPinger{err: errors.New("disk gone")}))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListEntries(t *testing.T) {
	mockSvc := new(serviceMocks.MockEntryService)
	app := fiber.New()
	app.Get("/api/lore", ListEntries(mockSvc))

	t.Run("success", func(t *testing.T) {
		entries := []model.Entry{{ID: "e1", Title: "Dragon", Tags: []string{}, Media: []model.MediaRef{}}}
		mockSvc.On("List", mock.Anything).Return(entries, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/lore", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got []model.Entry
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, entries, got)
		mockSvc.AssertExpectations(t)
	})

	t.Run("empty collection is an array", func(t *testing.T) {
		mockSvc.On("List", mock.Anything).Return([]model.Entry{}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/lore", nil))
		require.NoError(t, err)
		raw, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "[]", string(raw))
	})
}

func TestCreateEntry(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(m *serviceMocks.MockEntryService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "created",
			body: `{"title":"Dragon","type":"npc","tags":["a"],"body":"b"}`,
			setup: func(m *serviceMocks.MockEntryService) {
				m.On("Create", mock.Anything, model.EntryInput{Title: "Dragon", Type: "npc", Tags: []string{"a"}, Body: "b"}).
					Return(&model.Entry{ID: "e1", Title: "Dragon"}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "empty body defaults",
			body: "",
			setup: func(m *serviceMocks.MockEntryService) {
				m.On("Create", mock.Anything, model.EntryInput{}).Return(&model.Entry{ID: "e1", Title: "Untitled"}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "malformed json",
			body:       `{"title":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_BODY",
		},
		{
			name:       "tags of wrong type",
			body:       `{"tags":"a,b"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_BODY",
		},
		{
			name:       "array body",
			body:       `[]`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_BODY",
		},
		{
			name: "storage failure",
			body: `{}`,
			setup: func(m *serviceMocks.MockEntryService) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("%w: read-only", service.ErrStorage))
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "STORAGE_FAILURE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(serviceMocks.MockEntryService)
			if tt.setup != nil {
				tt.setup(mockSvc)
			}
			app := fiber.New()
			app.Post("/api/lore", CreateEntry(mockSvc))

			req := httptest.NewRequest(http.MethodPost, "/api/lore", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, resp).Error.Code)
			}
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestUpdateEntry(t *testing.T) {
	t.Run("present fields become pointers", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockEntryService)
		mockSvc.On("Update", mock.Anything, "e1", mock.MatchedBy(func(p model.EntryPatch) bool {
			return p.Title == nil && p.Body == nil && p.Type != nil && *p.Type == "" &&
				p.Tags != nil && len(*p.Tags) == 0
		})).Return(&model.Entry{ID: "e1"}, nil)

		app := fiber.New()
		app.Put("/api/lore/:id", UpdateEntry(mockSvc))

		req := httptest.NewRequest(http.MethodPut, "/api/lore/e1", strings.NewReader(`{"type":"","tags":[],"title":null}`))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockEntryService)
		mockSvc.On("Update", mock.Anything, "nope", mock.Anything).Return(nil, service.ErrNotFound)

		app := fiber.New()
		app.Put("/api/lore/:id", UpdateEntry(mockSvc))

		resp, err := app.Test(httptest.NewRequest(http.MethodPut, "/api/lore/nope", strings.NewReader(`{"title":"x"}`)))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "NOT_FOUND", body.Error.Code)
		assert.Equal(t, "entry not found", body.Error.Message)
	})
}

func TestDeleteEntry(t *testing.T) {
	mockSvc := new(serviceMocks.MockEntryService)
	mockSvc.On("Delete", mock.Anything, "e1").Return(nil).Once()
	mockSvc.On("Delete", mock.Anything, "e2").Return(service.ErrNotFound).Once()

	app := fiber.New()
	app.Delete("/api/lore/:id", DeleteEntry(mockSvc))

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/lore/e1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var ok map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ok))
	assert.True(t, ok["ok"])

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/lore/e2", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	mockSvc.AssertExpectations(t)
}

func multipartBody(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadMedia(t *testing.T) {
	tests := []struct {
		name       string
		mimetype   string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{name: "created", mimetype: "image/png", wantStatus: http.StatusCreated},
		{name: "unsupported", mimetype: "text/plain", svcErr: service.ErrUnsupportedType, wantStatus: http.StatusUnsupportedMediaType, wantCode: "UNSUPPORTED_TYPE"},
		{name: "too large", mimetype: "image/png", svcErr: service.ErrPayloadTooLarge, wantStatus: http.StatusRequestEntityTooLarge, wantCode: "PAYLOAD_TOO_LARGE"},
		{name: "storage error", mimetype: "image/png", svcErr: errors.New("upload to storage: boom"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(serviceMocks.MockMediaService)
			ref := &model.MediaRef{Filename: "map_1.png", URL: "/uploads/map_1.png", Mimetype: "image/png", Kind: "image"}
			if tt.svcErr != nil {
				mockSvc.On("Upload", mock.Anything, mock.Anything, "map.png", tt.mimetype, int64(5)).Return(nil, tt.svcErr)
			} else {
				mockSvc.On("Upload", mock.Anything, mock.Anything, "map.png", tt.mimetype, int64(5)).Return(ref, nil)
			}

			app := fiber.New()
			app.Post("/api/upload", UploadMedia(mockSvc))

			body, ct := multipartBody(t, "map.png", tt.mimetype, []byte("12345"))
			req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
			req.Header.Set("Content-Type", ct)
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, resp).Error.Code)
			} else {
				var got model.MediaRef
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
				assert.Equal(t, *ref, got)
			}
			mockSvc.AssertExpectations(t)
		})
	}

	t.Run("no file", func(t *testing.T) {
		app := fiber.New()
		app.Post("/api/upload", UploadMedia(new(serviceMocks.MockMediaService)))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/upload", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Error.Code)
	})
}

func TestAttachMedia(t *testing.T) {
	ref := model.MediaRef{Filename: "a.png", URL: "/uploads/a.png", Mimetype: "image/png", Kind: "image"}

	t.Run("attached", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockMediaService)
		mockSvc.On("Attach", mock.Anything, "e1", ref).Return(&model.Entry{ID: "e1", Media: []model.MediaRef{ref}}, nil)

		app := fiber.New()
		app.Post("/api/lore/:id/media", AttachMedia(mockSvc))

		payload, _ := json.Marshal(ref)
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/lore/e1/media", bytes.NewReader(payload)))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got model.Entry
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, []model.MediaRef{ref}, got.Media)
	})

	t.Run("validation error carries message", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockMediaService)
		mockSvc.On("Attach", mock.Anything, "e1", model.MediaRef{}).
			Return(nil, fmt.Errorf("%w: filename is required", service.ErrValidation))

		app := fiber.New()
		app.Post("/api/lore/:id/media", AttachMedia(mockSvc))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/lore/e1/media", strings.NewReader(`{}`)))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
		assert.Equal(t, "validation error: filename is required", body.Error.Message)
	})
}

func TestDetachMedia(t *testing.T) {
	mockSvc := new(serviceMocks.MockMediaService)
	mockSvc.On("Detach", mock.Anything, "e1", "a b.png").Return(&model.Entry{ID: "e1", Media: []model.MediaRef{}}, nil).Once()
	mockSvc.On("Detach", mock.Anything, "e1", "zzz.png").Return(nil, service.ErrMediaNotFound).Once()

	app := fiber.New(fiber.Config{UnescapePath: true})
	app.Delete("/api/lore/:id/media/:filename", DetachMedia(mockSvc))

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/lore/e1/media/a%20b.png", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/lore/e1/media/zzz.png", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "MEDIA_NOT_FOUND", decodeError(t, resp).Error.Code)
	mockSvc.AssertExpectations(t)
}

func TestServeUpload(t *testing.T) {
	t.Run("streams when presign unsupported", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockMediaService)
		mockSvc.On("DownloadURL", mock.Anything, "a.png").Return("", storage.ErrPresignNotSupported)
		mockSvc.On("Open", mock.Anything, "a.png").
			Return(io.NopCloser(strings.NewReader("PNGDATA")), storage.ObjectInfo{Key: "a.png", Size: 7, ContentType: "image/png"}, nil)

		app := fiber.New()
		app.Get("/uploads/:filename", ServeUpload(mockSvc))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/uploads/a.png", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "PNGDATA", string(raw))
	})

	t.Run("redirects to presigned url", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockMediaService)
		mockSvc.On("DownloadURL", mock.Anything, "a.png").Return("https://s3.local/lore/uploads/a.png?X-Amz-Signature=x", nil)

		app := fiber.New()
		app.Get("/uploads/:filename", ServeUpload(mockSvc))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/uploads/a.png", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "https://s3.local/lore/uploads/a.png?X-Amz-Signature=x", resp.Header.Get("Location"))
		mockSvc.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
	})

	t.Run("missing blob", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockMediaService)
		mockSvc.On("DownloadURL", mock.Anything, "gone.png").Return("", storage.ErrPresignNotSupported)
		mockSvc.On("Open", mock.Anything, "gone.png").Return(nil, storage.ObjectInfo{}, service.ErrBlobNotFound)

		app := fiber.New()
		app.Get("/uploads/:filename", ServeUpload(mockSvc))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/uploads/gone.png", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestRegisterRoutes_UnknownRouteUsesEnvelope(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	RegisterRoutes(app, stubPinger{}, new(serviceMocks.MockEntryService), new(serviceMocks.MockMediaService))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/nothing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{fiber.ErrRequestEntityTooLarge, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{fiber.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{fiber.ErrBadRequest, http.StatusBadRequest, "BAD_REQUEST"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
			app.Get("/x", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, decodeError(t, resp).Error.Code)
		})
	}
}
