package view

import (
	"strings"

	"lorewiki/internal/model"
)

// Form is the create/edit form. Tags are edited as one comma-separated
// string.
type Form struct {
	ID    string
	Title string
	Type  string
	Tags  string
	Body  string
}

// FormFromEntry fills a form for editing e.
func FormFromEntry(e model.Entry) Form {
	return Form{
		ID:    e.ID,
		Title: e.Title,
		Type:  e.Type,
		Tags:  strings.Join(e.Tags, ", "),
		Body:  e.Body,
	}
}

// Editing reports whether the form targets an existing entry.
func (f Form) Editing() bool { return strings.TrimSpace(f.ID) != "" }

// ParseTags splits a comma-separated list, trimming and dropping blanks.
func ParseTags(s string) []string {
	return model.CleanTags(strings.Split(s, ","))
}

// Input returns the create payload.
func (f Form) Input() model.EntryInput {
	return model.EntryInput{
		Title: model.CleanTitle(f.Title),
		Type:  strings.TrimSpace(f.Type),
		Tags:  ParseTags(f.Tags),
		Body:  strings.TrimSpace(f.Body),
	}
}

// Patch returns an update payload that replaces every field, since the form
// always shows the full entry.
func (f Form) Patch() model.EntryPatch {
	in := f.Input()
	return model.EntryPatch{
		Title: &in.Title,
		Type:  &in.Type,
		Tags:  &in.Tags,
		Body:  &in.Body,
	}
}
