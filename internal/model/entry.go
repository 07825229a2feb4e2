package model

import "strings"

// Media kinds derived from the uploaded MIME type.
const (
	KindImage = "image"
	KindAudio = "audio"
	KindOther = "other"
)

// DefaultTitle replaces a blank title.
const DefaultTitle = "Untitled"

// Entry is a single lore record. The whole collection of entries is persisted
// as one document, so the JSON field names double as the storage schema.
type Entry struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Type      string     `json:"type"`
	Tags      []string   `json:"tags"`
	Body      string     `json:"body"`
	Media     []MediaRef `json:"media"`
	UpdatedAt int64      `json:"updatedAt"`
}

// MediaRef describes an uploaded blob attached to an entry.
type MediaRef struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Mimetype string `json:"mimetype"`
	Kind     string `json:"kind"`
}

// EntryInput carries the fields accepted when creating an entry.
type EntryInput struct {
	Title string   `json:"title"`
	Type  string   `json:"type"`
	Tags  []string `json:"tags"`
	Body  string   `json:"body"`
}

// EntryPatch carries a partial update. A nil field was absent from the
// request and leaves the stored value untouched; a non-nil field replaces it,
// even when it points at an empty value.
type EntryPatch struct {
	Title *string   `json:"title,omitempty"`
	Type  *string   `json:"type,omitempty"`
	Tags  *[]string `json:"tags,omitempty"`
	Body  *string   `json:"body,omitempty"`
}

// Empty reports whether the patch carries no field at all.
func (p EntryPatch) Empty() bool {
	return p.Title == nil && p.Type == nil && p.Tags == nil && p.Body == nil
}

// KindFor classifies a MIME type.
func KindFor(mimetype string) string {
	switch {
	case strings.HasPrefix(mimetype, "image/"):
		return KindImage
	case strings.HasPrefix(mimetype, "audio/"):
		return KindAudio
	default:
		return KindOther
	}
}

// CleanTags trims every tag and drops the empty ones. The result is never nil.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// CleanTitle trims a title and falls back to DefaultTitle when it is blank.
func CleanTitle(title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return DefaultTitle
}

// Normalize fills the slices a stored entry must always carry.
func (e *Entry) Normalize() {
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if e.Media == nil {
		e.Media = []MediaRef{}
	}
}

// Clone returns a deep copy so callers cannot alias the stored slices.
func (e Entry) Clone() Entry {
	out := e
	out.Tags = append([]string{}, e.Tags...)
	out.Media = append([]MediaRef{}, e.Media...)
	return out
}
