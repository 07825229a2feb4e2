package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindFor(t *testing.T) {
	tests := []struct {
		mimetype string
		want     string
	}{
		{"image/png", KindImage},
		{"image/webp", KindImage},
		{"audio/mpeg", KindAudio},
		{"audio/x-wav", KindAudio},
		{"application/pdf", KindOther},
		{"", KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.mimetype, func(t *testing.T) {
			assert.Equal(t, tt.want, KindFor(tt.mimetype))
		})
	}
}

func TestCleanTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "a"}, CleanTags([]string{" a ", "", "b c", "   ", "a"}))
	assert.NotNil(t, CleanTags(nil))
	assert.Empty(t, CleanTags(nil))
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Untitled", CleanTitle(""))
	assert.Equal(t, "Untitled", CleanTitle("   "))
	assert.Equal(t, "Dragon", CleanTitle("  Dragon "))
}

func TestEntryPatch_PresenceFromJSON(t *testing.T) {
	var p EntryPatch
	require.NoError(t, json.Unmarshal([]byte(`{"tags":[],"body":""}`), &p))

	assert.Nil(t, p.Title)
	assert.Nil(t, p.Type)
	require.NotNil(t, p.Tags)
	assert.Empty(t, *p.Tags)
	require.NotNil(t, p.Body)
	assert.Equal(t, "", *p.Body)
	assert.False(t, p.Empty())

	var empty EntryPatch
	require.NoError(t, json.Unmarshal([]byte(`{}`), &empty))
	assert.True(t, empty.Empty())
}

func TestEntry_CloneDoesNotAlias(t *testing.T) {
	e := Entry{ID: "1", Tags: []string{"x"}, Media: []MediaRef{{Filename: "a.png"}}}
	c := e.Clone()
	c.Tags[0] = "y"
	c.Media[0].Filename = "b.png"

	assert.Equal(t, "x", e.Tags[0])
	assert.Equal(t, "a.png", e.Media[0].Filename)
}

func TestEntry_Normalize(t *testing.T) {
	e := Entry{ID: "1"}
	e.Normalize()
	assert.NotNil(t, e.Tags)
	assert.NotNil(t, e.Media)

	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"media":[]`)
}
