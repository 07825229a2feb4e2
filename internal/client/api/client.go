// Package api is the HTTP client for the lore server. Every method is one
// round trip; failures come back as *Error carrying the server's message.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"lorewiki/internal/model"
)

// DefaultServer is used when no server URL is configured.
const DefaultServer = "http://localhost:3000"

// Error is a non-2xx response.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusNotFound
}

// Client talks to one lore server.
type Client struct {
	base string
	http *http.Client
}

// New returns a Client for baseURL. A nil hc gets a client with a timeout
// and a traced transport.
func New(baseURL string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultServer
	}
	if hc == nil {
		hc = &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string { return c.base }

func (c *Client) List(ctx context.Context) ([]model.Entry, error) {
	var out []model.Entry
	if err := c.doJSON(ctx, http.MethodGet, "/api/lore", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Entry{}
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, in model.EntryInput) (*model.Entry, error) {
	var out model.Entry
	if err := c.doJSON(ctx, http.MethodPost, "/api/lore", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Update(ctx context.Context, id string, patch model.EntryPatch) (*model.Entry, error) {
	var out model.Entry
	if err := c.doJSON(ctx, http.MethodPut, "/api/lore/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/lore/"+url.PathEscape(id), nil, nil)
}

func (c *Client) AttachMedia(ctx context.Context, id string, ref model.MediaRef) (*model.Entry, error) {
	var out model.Entry
	if err := c.doJSON(ctx, http.MethodPost, "/api/lore/"+url.PathEscape(id)+"/media", ref, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DetachMedia(ctx context.Context, id, filename string) (*model.Entry, error) {
	var out model.Entry
	p := "/api/lore/" + url.PathEscape(id) + "/media/" + url.PathEscape(filename)
	if err := c.doJSON(ctx, http.MethodDelete, p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload sends r as the multipart field "file". The part's content type is
// derived from the filename extension.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*model.MediaRef, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", ContentTypeFor(filename))
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out model.MediaRef
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var mediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
}

// ContentTypeFor guesses a MIME type from a filename extension. Media
// extensions the server accepts use a fixed table since the system MIME
// database differs between hosts.
func ContentTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(resp *http.Response) error {
	e := &Error{Status: resp.StatusCode, Message: "request failed"}
	var body errorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		e.Code = body.Error.Code
		if body.Error.Message != "" {
			e.Message = body.Error.Message
		}
	}
	return e
}
