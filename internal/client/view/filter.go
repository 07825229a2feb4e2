package view

import (
	"sort"
	"strings"

	"lorewiki/internal/model"
)

// Filter returns the entries that match the type filter and search query,
// in collection order. The type filter is an exact case-insensitive match on
// the entry type; the query is a case-insensitive substring match against
// title, type, body, tags and media filenames. Blank values match
// everything.
func Filter(entries []model.Entry, query, typeFilter string) []model.Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	tf := strings.ToLower(strings.TrimSpace(typeFilter))

	out := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if tf != "" && strings.ToLower(e.Type) != tf {
			continue
		}
		if q != "" && !strings.Contains(haystack(e), q) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func haystack(e model.Entry) string {
	files := make([]string, 0, len(e.Media))
	for _, m := range e.Media {
		files = append(files, m.Filename)
	}
	return strings.ToLower(strings.Join([]string{
		e.Title,
		e.Type,
		e.Body,
		strings.Join(e.Tags, " "),
		strings.Join(files, " "),
	}, " "))
}

// TypeOptions returns the distinct non-empty entry types, sorted.
func TypeOptions(entries []model.Entry) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entries {
		if e.Type == "" {
			continue
		}
		if _, ok := seen[e.Type]; ok {
			continue
		}
		seen[e.Type] = struct{}{}
		out = append(out, e.Type)
	}
	sort.Strings(out)
	return out
}
