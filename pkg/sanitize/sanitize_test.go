package sanitize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"My Document.PDF", "my-document.pdf"},
		{"already-clean.txt", "already-clean.txt"},
		{"  spaces   everywhere .png", "spaces-everywhere.png"},
		{"weird!@#chars$%.jpg", "weird-chars.jpg"},
		{"Trailing---.txt", "trailing.txt"},
		{"---Leading.txt", "leading.txt"},
		{"no extension", "no-extension"},
		{"ünïcode café.txt", "n-code-caf.txt"},
		{"version 2.5 notes.md", "version-2.5-notes.md"},
		{"UPPER.TAR.GZ", "upper.tar.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, Name(tt.in))
		})
	}
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	dirty := filepath.Join(dir, "My Report (final).txt")
	clean := filepath.Join(dir, "fine.txt")
	require.NoError(t, os.WriteFile(dirty, []byte("a"), 0644))
	require.NoError(t, os.WriteFile(clean, []byte("b"), 0644))

	renames, err := Files([]string{dirty, clean}, false)
	require.NoError(t, err)

	// Only the dirty name is touched
	require.Len(t, renames, 1)
	assert.Equal(t, filepath.Join(dir, "my-report-final.txt"), renames[0].To)
	assert.FileExists(t, renames[0].To)
	assert.NoFileExists(t, dirty)
	assert.FileExists(t, clean)
}

func TestFilesDryRun(t *testing.T) {
	dir := t.TempDir()
	dirty := filepath.Join(dir, "Messy Name.txt")
	require.NoError(t, os.WriteFile(dirty, []byte("a"), 0644))

	renames, err := Files([]string{dirty}, true)
	require.NoError(t, err)
	require.Len(t, renames, 1)

	// Nothing actually moved
	assert.FileExists(t, dirty)
	assert.NoFileExists(t, renames[0].To)
}

func TestFilesRefusesToClobber(t *testing.T) {
	dir := t.TempDir()
	dirty := filepath.Join(dir, "Taken Name.txt")
	taken := filepath.Join(dir, "taken-name.txt")
	require.NoError(t, os.WriteFile(dirty, []byte("a"), 0644))
	require.NoError(t, os.WriteFile(taken, []byte("b"), 0644))

	_, err := Files([]string{dirty}, false)
	require.Error(t, err)
	assert.FileExists(t, dirty)
}

func TestFilesMissingFile(t *testing.T) {
	_, err := Files([]string{filepath.Join(t.TempDir(), "ghost.txt")}, false)
	require.Error(t, err)
}
