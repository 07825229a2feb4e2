package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"lorewiki/internal/model"
	"lorewiki/internal/service"
	"lorewiki/internal/storage"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, health Pinger, entrySvc service.EntryService, mediaSvc service.MediaService) {
	app.Get("/health", HealthCheck(health))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")
	api.Get("/lore", ListEntries(entrySvc))
	api.Post("/lore", CreateEntry(entrySvc))
	api.Put("/lore/:id", UpdateEntry(entrySvc))
	api.Delete("/lore/:id", DeleteEntry(entrySvc))
	api.Post("/lore/:id/media", AttachMedia(mediaSvc))
	api.Delete("/lore/:id/media/:filename", DetachMedia(mediaSvc))
	api.Post("/upload", UploadMedia(mediaSvc))

	app.Get("/uploads/:filename", ServeUpload(mediaSvc))
}

// HealthCheck pings the entry store.
func HealthCheck(p Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe always answers 200.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListEntries godoc
// @Summary List lore entries
// @Tags lore
// @Produce json
// @Success 200 {array} model.Entry
// @Router /api/lore [get]
func ListEntries(svc service.EntryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entries, err := svc.List(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(entries)
	}
}

// CreateEntry godoc
// @Summary Create a lore entry
// @Tags lore
// @Accept json
// @Produce json
// @Param entry body model.EntryInput true "entry"
// @Success 201 {object} model.Entry
// @Failure 400 {object} errorPayload
// @Router /api/lore [post]
func CreateEntry(svc service.EntryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in model.EntryInput
		if err := decodeBody(c, &in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object with string title, type, body and string array tags")
		}
		entry, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	}
}

// UpdateEntry godoc
// @Summary Partially update a lore entry
// @Tags lore
// @Accept json
// @Produce json
// @Param id path string true "entry id"
// @Param patch body model.EntryPatch true "fields to replace"
// @Success 200 {object} model.Entry
// @Failure 404 {object} errorPayload
// @Router /api/lore/{id} [put]
func UpdateEntry(svc service.EntryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var patch model.EntryPatch
		if err := decodeBody(c, &patch); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object with string title, type, body and string array tags")
		}
		entry, err := svc.Update(c.UserContext(), c.Params("id"), patch)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(entry)
	}
}

// DeleteEntry godoc
// @Summary Delete a lore entry
// @Tags lore
// @Param id path string true "entry id"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} errorPayload
// @Router /api/lore/{id} [delete]
func DeleteEntry(svc service.EntryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

// UploadMedia godoc
// @Summary Upload an image or audio file
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "file"
// @Success 201 {object} model.MediaRef
// @Failure 413 {object} errorPayload
// @Failure 415 {object} errorPayload
// @Router /api/upload [post]
func UploadMedia(svc service.MediaService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		ref, err := svc.Upload(c.UserContext(), f, fh.Filename, ct, fh.Size)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(ref)
	}
}

// AttachMedia godoc
// @Summary Attach an uploaded file to an entry
// @Tags media
// @Accept json
// @Produce json
// @Param id path string true "entry id"
// @Param media body model.MediaRef true "media reference"
// @Success 200 {object} model.Entry
// @Failure 404 {object} errorPayload
// @Router /api/lore/{id}/media [post]
func AttachMedia(svc service.MediaService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var ref model.MediaRef
		if err := decodeBody(c, &ref); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object with string filename, url, mimetype and kind")
		}
		entry, err := svc.Attach(c.UserContext(), c.Params("id"), ref)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(entry)
	}
}

// DetachMedia godoc
// @Summary Remove a media reference from an entry
// @Tags media
// @Produce json
// @Param id path string true "entry id"
// @Param filename path string true "stored filename"
// @Success 200 {object} model.Entry
// @Failure 404 {object} errorPayload
// @Router /api/lore/{id}/media/{filename} [delete]
func DetachMedia(svc service.MediaService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entry, err := svc.Detach(c.UserContext(), c.Params("id"), c.Params("filename"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(entry)
	}
}

// ServeUpload redirects to a presigned URL when the blob backend hands them
// out, and streams the blob otherwise.
func ServeUpload(svc service.MediaService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params("filename")
		url, err := svc.DownloadURL(c.UserContext(), name)
		if err == nil {
			return c.Redirect(url, fiber.StatusFound)
		}
		if !errors.Is(err, storage.ErrPresignNotSupported) {
			return writeServiceError(c, err)
		}

		rc, info, err := svc.Open(c.UserContext(), name)
		if err != nil {
			return writeServiceError(c, err)
		}
		if info.ContentType != "" {
			c.Set(fiber.HeaderContentType, info.ContentType)
		}
		if info.Size > 0 {
			return c.SendStream(rc, int(info.Size))
		}
		return c.SendStream(rc)
	}
}

// decodeBody unmarshals a JSON object body into v. An empty body decodes as {}.
func decodeBody(c *fiber.Ctx, v any) error {
	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 {
		return nil
	}
	if body[0] != '{' {
		return errors.New("body is not a JSON object")
	}
	return json.Unmarshal(body, v)
}
