package view

import (
	"strings"
	"time"

	"lorewiki/internal/model"
)

// TimeLayout formats entry timestamps for display.
const TimeLayout = "2006-01-02 15:04"

// MediaBlock is one attachment in the preview.
type MediaBlock struct {
	Kind     string
	Filename string
	URL      string
}

// Preview is the detail pane for one entry.
type Preview struct {
	Title string
	Meta  string
	Body  string
	Media []MediaBlock
}

// FormatUpdated renders an epoch-millisecond timestamp in loc.
func FormatUpdated(ms int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ms).In(loc).Format(TimeLayout)
}

// NewPreview builds the detail pane. The meta line joins the type, the tags
// as hashtags and the update time with " | ", skipping the parts that are
// empty.
func NewPreview(e model.Entry, loc *time.Location) Preview {
	var meta []string
	if e.Type != "" {
		meta = append(meta, e.Type)
	}
	if len(e.Tags) > 0 {
		meta = append(meta, "#"+strings.Join(e.Tags, " #"))
	}
	meta = append(meta, "Updated: "+FormatUpdated(e.UpdatedAt, loc))

	blocks := make([]MediaBlock, 0, len(e.Media))
	for _, m := range e.Media {
		kind := m.Kind
		if kind == "" {
			kind = model.KindFor(m.Mimetype)
		}
		blocks = append(blocks, MediaBlock{Kind: kind, Filename: m.Filename, URL: m.URL})
	}

	return Preview{
		Title: e.Title,
		Meta:  strings.Join(meta, " | "),
		Body:  e.Body,
		Media: blocks,
	}
}

// Excerpt flattens body onto one line and cuts it to at most n runes.
func Excerpt(body string, n int) string {
	flat := strings.Join(strings.Fields(body), " ")
	r := []rune(flat)
	if len(r) <= n {
		return flat
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// TagPreview returns at most the first three tags.
func TagPreview(tags []string) []string {
	if len(tags) > 3 {
		return tags[:3]
	}
	return tags
}
