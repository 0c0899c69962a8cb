package dedup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakaocal/internal/model"
)

func TestLoad_MissingFile(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "missing.json"))

	require.NotNil(t, s)
	assert.Equal(t, 0, s.Len())
}

func TestLoad_MalformedFile(t *testing.T) {
	tests := map[string]string{
		"not json":      "{{{",
		"missing field": `{"other": ["a"]}`,
		"wrong type":    `{"knownIds": "abc"}`,
		"empty":         "",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			s := Load(path)
			require.NotNil(t, s)
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	s := New()
	s.Add("bbb")
	s.Add("aaa")
	s.Add("bbb")
	require.NoError(t, s.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string][]string
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []string{"bbb", "aaa"}, raw["knownIds"])

	loaded := Load(path)
	assert.Equal(t, []string{"bbb", "aaa"}, loaded.IDs())
	assert.True(t, loaded.Contains("aaa"))
	assert.False(t, loaded.Contains("ccc"))
}

func TestSave_EmptyStoreWritesEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, New().Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"knownIds": []}`, string(data))
}

func TestFilter_DropsKnownAndInRunDuplicates(t *testing.T) {
	s := New()
	s.Add("old")

	msgs := []model.Message{
		{ID: "old", Body: "seen last run"},
		{ID: "new1", Body: "first"},
		{ID: "new1", Body: "same line from another export"},
		{ID: "new2", Body: "second"},
	}

	fresh := s.Filter(msgs)
	require.Len(t, fresh, 2)
	assert.Equal(t, "first", fresh[0].Body)
	assert.Equal(t, "second", fresh[1].Body)

	assert.Equal(t, []string{"old", "new1", "new2"}, s.IDs())
	assert.Empty(t, s.Filter(msgs))
}
