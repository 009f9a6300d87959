package style

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dotkeep/dotkeep/pkg/dotfiles"
	"github.com/dotkeep/dotkeep/pkg/manifest"
)

func entryStatus(name, target string, state dotfiles.State) dotfiles.EntryStatus {
	return dotfiles.EntryStatus{
		Entry: manifest.Entry{Name: name, Target: target},
		State: state,
	}
}

func TestRenderEntryStatus(t *testing.T) {
	line := RenderEntryStatus(entryStatus("vimrc", "~/.vimrc", dotfiles.StateLinked))
	assert.Contains(t, line, "vimrc")
	assert.Contains(t, line, "linked")
	assert.Contains(t, line, "~/.vimrc")
}

func TestRenderEntryStatusDetail(t *testing.T) {
	es := entryStatus("gitconfig", "~/.gitconfig", dotfiles.StateConflict)
	es.Detail = "occupied by a regular file"

	line := RenderEntryStatus(es)
	assert.Contains(t, line, "conflict")
	assert.Contains(t, line, "occupied by a regular file")
}

func TestRenderStatusReport(t *testing.T) {
	out := RenderStatusReport([]dotfiles.EntryStatus{
		entryStatus("vimrc", "~/.vimrc", dotfiles.StateLinked),
		entryStatus("zshrc", "~/.zshrc", dotfiles.StateLinked),
		entryStatus("gitconfig", "~/.gitconfig", dotfiles.StateUnlinked),
	})

	assert.Contains(t, out, "vimrc")
	assert.Contains(t, out, "2 linked")
	assert.Contains(t, out, "1 unlinked")
	assert.NotContains(t, out, "conflict")
}

func TestRenderStatusReportEmpty(t *testing.T) {
	out := RenderStatusReport(nil)
	assert.Contains(t, out, "no entries tracked")
}

func TestStatusTableData(t *testing.T) {
	data := StatusTableData([]dotfiles.EntryStatus{
		entryStatus("vimrc", "~/.vimrc", dotfiles.StateStale),
	})

	assert.Len(t, data, 2)
	assert.Equal(t, []string{"", "Name", "State", "Target"}, data[0])
	assert.Equal(t, "vimrc", data[1][1])
	assert.Contains(t, data[1][2], "stale")
}

func TestStateIndicator(t *testing.T) {
	// Each state gets a distinct marker
	seen := map[string]bool{}
	for _, state := range []dotfiles.State{
		dotfiles.StateLinked, dotfiles.StateUnlinked, dotfiles.StateConflict, dotfiles.StateStale,
	} {
		marker := StateIndicator(state)
		assert.NotEmpty(t, marker)
		assert.False(t, seen[marker], "marker reused for %s", state)
		seen[marker] = true
	}
}
