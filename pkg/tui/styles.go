package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/strategy-canvas/pkg/render"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#1E3A8A")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94A3B8"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	// cell classes written by the painters
	classStyles = map[string]lipgloss.Style{
		"body":     lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8")),
		"selected": lipgloss.NewStyle().Foreground(lipgloss.Color("#38BDF8")).Bold(true),
		"title":    lipgloss.NewStyle().Foreground(lipgloss.Color("#F8FAFC")).Bold(true),
		"text":     lipgloss.NewStyle().Foreground(lipgloss.Color("#CBD5E1")),
		"control":  lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B")),
		"anchor":   lipgloss.NewStyle().Foreground(lipgloss.Color("#A855F7")),
		"edge":     lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		"preview":  lipgloss.NewStyle().Foreground(lipgloss.Color("#0EA5E9")),
	}
)

// paint renders the surface with one style per run of same-class cells.
func paint(s *render.CellSurface) string {
	var b strings.Builder
	for y, row := range s.Rows() {
		if y > 0 {
			b.WriteByte('\n')
		}
		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && row[x].Class == row[start].Class {
				continue
			}
			run := make([]rune, 0, x-start)
			for _, c := range row[start:x] {
				run = append(run, c.Rune)
			}
			if st, ok := classStyles[row[start].Class]; ok {
				b.WriteString(st.Render(string(run)))
			} else {
				b.WriteString(string(run))
			}
			start = x
		}
	}
	return b.String()
}
