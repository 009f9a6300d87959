package dotfiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dotkeep/dotkeep/pkg/errors"
	"github.com/dotkeep/dotkeep/pkg/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestManager builds a Manager over a temp home and temp storage root
func newTestManager(t *testing.T) (*Manager, string, string) {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DOTKEEP_DATA_DIR", filepath.Join(home, ".local", "share", "dotkeep"))

	root := filepath.Join(home, "dotfiles")
	p, err := paths.New(root)
	require.NoError(t, err)

	return NewManager(p), home, root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestInit(t *testing.T) {
	m, _, root := newTestManager(t)

	result, err := m.Init()
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.DirExists(t, root)
	assert.FileExists(t, filepath.Join(root, ".manifest"))

	// Second init is a no-op
	result, err = m.Init()
	require.NoError(t, err)
	assert.False(t, result.Created)
}

func TestAdd(t *testing.T) {
	m, home, root := newTestManager(t)
	_, err := m.Init()
	require.NoError(t, err)

	vimrc := filepath.Join(home, ".vimrc")
	writeFile(t, vimrc, "set nocompatible\n")

	result, err := m.Add(AddOptions{Path: vimrc})
	require.NoError(t, err)
	assert.Equal(t, "vimrc", result.Entry.Name)
	assert.Equal(t, "~/.vimrc", result.Entry.Target)

	// The real file now lives in storage
	stored := filepath.Join(root, "vimrc")
	content, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "set nocompatible\n", string(content))

	// The original path is a symlink to storage
	info, err := os.Lstat(vimrc)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)
	dest, err := os.Readlink(vimrc)
	require.NoError(t, err)
	assert.Equal(t, stored, dest)
}

func TestAddErrors(t *testing.T) {
	m, home, _ := newTestManager(t)
	_, err := m.Init()
	require.NoError(t, err)

	t.Run("missing file", func(t *testing.T) {
		_, err := m.Add(AddOptions{Path: filepath.Join(home, ".nope")})
		assert.True(t, errors.IsErrorCode(err, errors.ErrFileNotFound))
	})

	t.Run("already managed", func(t *testing.T) {
		f := filepath.Join(home, ".zshrc")
		writeFile(t, f, "x")
		_, err := m.Add(AddOptions{Path: f})
		require.NoError(t, err)

		_, err = m.Add(AddOptions{Path: f})
		assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyExists))
	})

	t.Run("duplicate name", func(t *testing.T) {
		f := filepath.Join(home, "other", ".zshrc")
		writeFile(t, f, "y")
		_, err := m.Add(AddOptions{Path: f})
		assert.True(t, errors.IsErrorCode(err, errors.ErrManifestDuplicate))
	})

	t.Run("foreign symlink", func(t *testing.T) {
		real := filepath.Join(home, "realfile")
		writeFile(t, real, "z")
		link := filepath.Join(home, ".link")
		require.NoError(t, os.Symlink(real, link))

		_, err := m.Add(AddOptions{Path: link})
		assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
	})
}

func TestAddDryRun(t *testing.T) {
	m, home, _ := newTestManager(t)
	_, err := m.Init()
	require.NoError(t, err)

	f := filepath.Join(home, ".gitconfig")
	writeFile(t, f, "[user]\n")

	result, err := m.Add(AddOptions{Path: f, DryRun: true})
	require.NoError(t, err)
	assert.True(t, result.DryRun)

	// Nothing moved, nothing recorded
	info, err := os.Lstat(f)
	require.NoError(t, err)
	assert.Zero(t, info.Mode()&os.ModeSymlink)
	entries, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAddRemoveRoundTrip(t *testing.T) {
	m, home, _ := newTestManager(t)
	_, err := m.Init()
	require.NoError(t, err)

	f := filepath.Join(home, ".gitconfig")
	writeFile(t, f, "[user]\nname = someone\n")

	_, err = m.Add(AddOptions{Path: f})
	require.NoError(t, err)

	result, err := m.Remove(RemoveOptions{Name: "gitconfig"})
	require.NoError(t, err)
	assert.Equal(t, f, result.Restored)

	// Original file is back in place as a regular file
	info, err := os.Lstat(f)
	require.NoError(t, err)
	assert.Zero(t, info.Mode()&os.ModeSymlink)
	content, err := os.ReadFile(f)
	require.NoError(t, err)
	assert.Equal(t, "[user]\nname = someone\n", string(content))

	// Manifest is empty again
	entries, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRemoveUnknownEntry(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.Init()
	require.NoError(t, err)

	_, err = m.Remove(RemoveOptions{Name: "ghost"})
	assert.True(t, errors.IsErrorCode(err, errors.ErrEntryNotFound))
}

func TestRemoveRefusesForeignOccupant(t *testing.T) {
	m, home, _ := newTestManager(t)
	_, err := m.Init()
	require.NoError(t, err)

	f := filepath.Join(home, ".vimrc")
	writeFile(t, f, "a")
	_, err = m.Add(AddOptions{Path: f})
	require.NoError(t, err)

	// Replace the managed symlink with a plain file behind dotkeep's back
	require.NoError(t, os.Remove(f))
	writeFile(t, f, "someone else's vimrc")

	_, err = m.Remove(RemoveOptions{Name: "vimrc"})
	assert.True(t, errors.IsErrorCode(err, errors.ErrLinkConflict))
}

func TestLinkIdempotent(t *testing.T) {
	m, home, _ := newTestManager(t)
	_, err := m.Init()
	require.NoError(t, err)

	for _, name := range []string{".vimrc", ".zshrc"} {
		writeFile(t, filepath.Join(home, name), name)
		_, err = m.Add(AddOptions{Path: filepath.Join(home, name)})
		require.NoError(t, err)
	}

	// add already created the links, so the first explicit link is all no-ops
	result, err := m.Link(LinkOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 2, result.Skipped)

	// Remove one link, relink, run again: second pass must be a no-op
	require.NoError(t, os.Remove(filepath.Join(home, ".vimrc")))

	result, err = m.Link(LinkOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	result, err = m.Link(LinkOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 2, result.Skipped)
}

func TestLinkConflict(t *testing.T) {
	m, home, _ := newTestManager(t)
	_, err := m.Init()
	require.NoError(t, err)

	f := filepath.Join(home, ".vimrc")
	writeFile(t, f, "mine")
	_, err = m.Add(AddOptions{Path: f})
	require.NoError(t, err)

	// An unmanaged file takes the destination
	require.NoError(t, os.Remove(f))
	writeFile(t, f, "intruder")

	result, err := m.Link(LinkOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	require.Len(t, result.Statuses, 1)
	assert.Equal(t, StateConflict, result.Statuses[0].State)

	// Force backs the intruder up and links
	result, err = m.Link(LinkOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	dest, err := os.Readlink(f)
	require.NoError(t, err)
	assert.Contains(t, dest, "dotfiles")
}

func TestLinkSelectsNames(t *testing.T) {
	m, home, _ := newTestManager(t)
	_, err := m.Init()
	require.NoError(t, err)

	writeFile(t, filepath.Join(home, ".vimrc"), "a")
	_, err = m.Add(AddOptions{Path: filepath.Join(home, ".vimrc")})
	require.NoError(t, err)

	_, err = m.Link(LinkOptions{Names: []string{"ghost"}})
	assert.True(t, errors.IsErrorCode(err, errors.ErrEntryNotFound))
}

func TestUnlink(t *testing.T) {
	m, home, root := newTestManager(t)
	_, err := m.Init()
	require.NoError(t, err)

	f := filepath.Join(home, ".vimrc")
	writeFile(t, f, "a")
	_, err = m.Add(AddOptions{Path: f})
	require.NoError(t, err)

	result, err := m.Unlink(UnlinkOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)

	// Symlink gone, stored file untouched
	_, err = os.Lstat(f)
	assert.True(t, os.IsNotExist(err))
	assert.FileExists(t, filepath.Join(root, "vimrc"))

	// Unlink again: nothing to do
	result, err = m.Unlink(UnlinkOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Removed)
	assert.Equal(t, 1, result.Skipped)
}

func TestUnlinkLeavesForeignFilesAlone(t *testing.T) {
	m, home, _ := newTestManager(t)
	_, err := m.Init()
	require.NoError(t, err)

	f := filepath.Join(home, ".vimrc")
	writeFile(t, f, "a")
	_, err = m.Add(AddOptions{Path: f})
	require.NoError(t, err)

	require.NoError(t, os.Remove(f))
	writeFile(t, f, "not ours")

	result, err := m.Unlink(UnlinkOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Removed)
	assert.FileExists(t, f)
}

func TestStatus(t *testing.T) {
	m, home, root := newTestManager(t)
	_, err := m.Init()
	require.NoError(t, err)

	// linked entry
	writeFile(t, filepath.Join(home, ".vimrc"), "a")
	_, err = m.Add(AddOptions{Path: filepath.Join(home, ".vimrc")})
	require.NoError(t, err)

	// unlinked entry
	writeFile(t, filepath.Join(home, ".zshrc"), "b")
	_, err = m.Add(AddOptions{Path: filepath.Join(home, ".zshrc")})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(home, ".zshrc")))

	// stale entry
	writeFile(t, filepath.Join(home, ".stale"), "c")
	_, err = m.Add(AddOptions{Path: filepath.Join(home, ".stale")})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(home, ".stale")))
	require.NoError(t, os.Remove(filepath.Join(root, "stale")))

	result, err := m.Status()
	require.NoError(t, err)
	require.Len(t, result.Statuses, 3)

	states := map[string]State{}
	for _, s := range result.Statuses {
		states[s.Entry.Name] = s.State
	}
	assert.Equal(t, StateLinked, states["vimrc"])
	assert.Equal(t, StateUnlinked, states["zshrc"])
	assert.Equal(t, StateStale, states["stale"])
}

func TestListRequiresInit(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.List()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrManifestLoad))
	assert.Contains(t, err.Error(), "dotkeep init")
}
