package style

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/dotkeep/dotkeep/pkg/dotfiles"
)

// StateStyle returns the pterm style for a dotfile deployment state
func StateStyle(state dotfiles.State) *pterm.Style {
	switch state {
	case dotfiles.StateLinked:
		return pterm.NewStyle(pterm.FgGreen)
	case dotfiles.StateConflict:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	case dotfiles.StateStale:
		return pterm.NewStyle(pterm.FgYellow)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

// StateIndicator returns the one-character marker for a state
func StateIndicator(state dotfiles.State) string {
	switch state {
	case dotfiles.StateLinked:
		return SuccessIndicator
	case dotfiles.StateConflict:
		return ErrorIndicator
	case dotfiles.StateStale:
		return WarningIndicator
	default:
		return PendingIndicator
	}
}

// RenderEntryStatus renders one manifest entry status line:
//
//	✓ vimrc      linked     ~/.vimrc
func RenderEntryStatus(es dotfiles.EntryStatus) string {
	name := fmt.Sprintf("%-16s", es.Entry.Name)
	state := StateStyle(es.State).Sprint(fmt.Sprintf("%-10s", string(es.State)))

	line := fmt.Sprintf("%s %s %s %s", StateIndicator(es.State), name, state, es.Entry.Target)
	if es.Detail != "" {
		line += " " + MutedStyle.Render("("+es.Detail+")")
	}
	return line
}

// RenderStatusReport renders the full status listing with a summary line
func RenderStatusReport(statuses []dotfiles.EntryStatus) string {
	if len(statuses) == 0 {
		return MutedStyle.Render("no entries tracked, run 'dotkeep add' to start")
	}

	var b strings.Builder
	counts := map[dotfiles.State]int{}
	for _, es := range statuses {
		b.WriteString(RenderEntryStatus(es) + "\n")
		counts[es.State]++
	}

	var parts []string
	for _, state := range []dotfiles.State{
		dotfiles.StateLinked, dotfiles.StateUnlinked, dotfiles.StateConflict, dotfiles.StateStale,
	} {
		if counts[state] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[state], state))
		}
	}
	b.WriteString("\n" + SubtitleStyle.Render(strings.Join(parts, ", ")))

	return b.String()
}

// StatusTableData builds pterm table rows for the status listing
func StatusTableData(statuses []dotfiles.EntryStatus) pterm.TableData {
	data := pterm.TableData{{"", "Name", "State", "Target"}}
	for _, es := range statuses {
		data = append(data, []string{
			StateIndicator(es.State),
			es.Entry.Name,
			StateStyle(es.State).Sprint(string(es.State)),
			es.Entry.Target,
		})
	}
	return data
}
