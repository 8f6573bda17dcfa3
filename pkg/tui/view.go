package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/strategy-canvas/pkg/render"
)

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	snap := m.canvas.Snapshot()
	var s strings.Builder

	header := fmt.Sprintf("Strategy Canvas · %s · %d nodes · zoom %.0f%% · %s",
		snap.ID, len(snap.Nodes), snap.View.Scale*100, snap.Gesture.Kind)
	if snap.Pending > 0 {
		header += fmt.Sprintf(" · %d unsaved", snap.Pending)
	}
	s.WriteString(titleStyle.Width(m.width).MaxWidth(m.width).Render(header))
	s.WriteString("\n")

	body := ""
	switch m.mode {
	case modeNodes:
		body = headerStyle.Render("Nodes") + "\n" + m.table.View()
	default:
		body = m.renderCanvas()
	}
	s.WriteString(lipgloss.NewStyle().Height(m.canvasRows()).MaxHeight(m.canvasRows()).Render(body))
	s.WriteString("\n")

	switch {
	case m.mode == modeRename:
		s.WriteString("Rename: " + m.input.View())
	case m.message != "" && m.messageErr:
		s.WriteString(errorStyle.Render("✗ " + m.message))
	case m.message != "":
		s.WriteString(successStyle.Render("✓ " + m.message))
	default:
		s.WriteString(statusStyle.Render(m.status(snap.Selected != "")))
	}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func (m Model) renderCanvas() string {
	surface := render.NewCellSurface(m.width, m.canvasRows(), m.opts.CellWidth, m.opts.CellHeight)
	if err := m.canvas.RenderCells(surface); err != nil {
		return errorStyle.Render("render failed: " + err.Error())
	}
	return paint(surface)
}

func (m Model) status(selected bool) string {
	if selected {
		return "drag to move · r rename · d delete · drag an anchor to connect"
	}
	return "click a node to select · drag the background to pan · wheel to zoom"
}
