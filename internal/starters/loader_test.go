package starters

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/survey-admin/internal/authoring"
)

func TestLoadBundledStarters(t *testing.T) {
	// Use the repository's starters directory
	dir := filepath.Join("..", "..", "starters")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Skip("starters directory not found, skipping")
	}

	loader, err := NewLoader()
	require.NoError(t, err)
	require.NoError(t, loader.LoadFromDir(dir))

	list := loader.List()
	require.GreaterOrEqual(t, len(list), 2)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Name, list[i].Name)
	}

	exit, err := loader.Get("employee-exit")
	require.NoError(t, err)
	assert.Equal(t, "Employee Exit Interview", exit.Title)

	d, err := exit.Draft()
	require.NoError(t, err)
	assert.True(t, d.Ready())
	assert.Equal(t, 10, d.Questions()[0].Scale)
}

func TestParseRejectsInvalid(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)

	cases := map[string]string{
		"missing title": "name: a\nquestions: []\n",
		"bad type":      "name: a\ntitle: A\nquestions:\n  - type: matrix\n    prompt: x\n",
		"scale too big": "name: a\ntitle: A\nquestions:\n  - type: rating\n    prompt: x\n    scale: 11\n",
		"empty options": "name: a\ntitle: A\nquestions:\n  - type: category\n    prompt: x\n    options: []\n",
		"rating options": "name: a\ntitle: A\nquestions:\n  - type: rating\n    prompt: x\n    options: [a]\n",
		"unknown field": "name: a\ntitle: A\nowner: me\nquestions: []\n",
		"bad name":      "name: Has Spaces\ntitle: A\nquestions: []\n",
		"not yaml":      "name: [unclosed\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loader.Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseJSONAndBuildDraft(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)

	s, err := loader.Parse([]byte(`{
		"name": "quick",
		"title": "Quick check",
		"questions": [
			{"type": "rating", "prompt": "Mood"},
			{"type": "category", "prompt": "Team", "options": ["Red", ""]}
		]
	}`))
	require.NoError(t, err)

	d, err := s.Draft()
	require.NoError(t, err)
	qs := d.Questions()
	require.Len(t, qs, 2)
	assert.Equal(t, authoring.DefaultScale, qs[0].Scale)
	assert.Equal(t, []string{"Red", ""}, qs[1].Options)
	assert.False(t, d.Ready())

	again, err := s.Draft()
	require.NoError(t, err)
	assert.NotEqual(t, qs[0].ID, again.Questions()[0].ID)
}

func TestLoadFromDirSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.yaml"),
		[]byte("name: good\ntitle: Good\nquestions:\n  - type: rating\n    prompt: Q\n    scale: 6\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yml"),
		[]byte("name: bad\nquestions: 3\n"), 0o644))

	loader, err := NewLoader()
	require.NoError(t, err)
	require.NoError(t, loader.LoadFromDir(dir))

	assert.Len(t, loader.List(), 1)
	_, err = loader.Get("bad")
	assert.True(t, errors.Is(err, ErrStarterNotFound))
}
