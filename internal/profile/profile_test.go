package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, files map[string][]string) string {
	t.Helper()
	dir := t.TempDir()
	for folder, names := range files {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, folder), 0o755))
		for _, n := range names {
			require.NoError(t, os.WriteFile(filepath.Join(dir, folder, n), []byte("png"), 0o644))
		}
	}
	return dir
}

func TestPicker_Pick(t *testing.T) {
	dir := seed(t, map[string][]string{
		"Male":   {"1.png", "2.png", ".DS_Store"},
		"Female": {"a.png"},
	})
	p := NewPicker(dir)

	got, err := p.Pick("female")
	require.NoError(t, err)
	assert.Equal(t, "Female/a.png", got)

	got, err = p.Pick("FEMALE")
	require.NoError(t, err)
	assert.Equal(t, "Female/a.png", got)

	for _, g := range []string{"male", "", "unspecified"} {
		got, err = p.Pick(g)
		require.NoError(t, err)
		assert.Contains(t, []string{"Male/1.png", "Male/2.png"}, got)
	}
}

func TestPicker_Deterministic(t *testing.T) {
	dir := seed(t, map[string][]string{"Male": {"1.png", "2.png", "3.png"}})
	p := NewPicker(dir)
	p.intn = func(n int) int { return n - 1 }

	got, err := p.Pick("male")
	require.NoError(t, err)
	assert.Equal(t, "Male/3.png", got)
}

func TestPicker_Errors(t *testing.T) {
	_, err := NewPicker(t.TempDir()).Pick("male")
	assert.Error(t, err)

	dir := seed(t, map[string][]string{"Female": {}})
	_, err = NewPicker(dir).Pick("female")
	assert.ErrorContains(t, err, "no Female profiles")
}
