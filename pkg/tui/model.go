// Package tui is a terminal front end for one canvas. The canvas is drawn
// through render.CellSurface and terminal mouse events are fed to the
// same pointer pipeline the HTTP API uses.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/strategy-canvas/pkg/canvas"
	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/layout"
	"github.com/dd0wney/strategy-canvas/pkg/render"
)

const (
	zoomStep = 1.2
	panCells = 4
	// rows above and below the drawing area
	headerRows = 1
	footerRows = 2
)

// Options tunes the terminal front end.
type Options struct {
	CellWidth  float64       // screen pixels per column
	CellHeight float64       // screen pixels per row
	Refresh    time.Duration // redraw interval for changes made elsewhere
	UserID     string        // saves the view on quit when set
}

type mode int

const (
	modeCanvas mode = iota
	modeNodes
	modeRename
)

type tickMsg time.Time

// Model is the bubbletea model for one canvas.
type Model struct {
	canvas *canvas.Canvas
	opts   Options

	mode   mode
	keys   keyMap
	help   help.Model
	input  textinput.Model
	table  table.Model
	layout int

	width, height int
	message       string
	messageErr    bool
	renaming      graph.NodeID
}

// New returns a model drawing c.
func New(c *canvas.Canvas, opts Options) Model {
	if opts.CellWidth <= 0 {
		opts.CellWidth = render.DefaultCellWidth
	}
	if opts.CellHeight <= 0 {
		opts.CellHeight = render.DefaultCellHeight
	}
	if opts.Refresh <= 0 {
		opts.Refresh = 250 * time.Millisecond
	}

	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 40

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 8},
			{Title: "Kind", Width: 20},
			{Title: "Title", Width: 30},
			{Title: "Position", Width: 16},
			{Title: "Links", Width: 5},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#1E3A8A")).
		Bold(false)
	t.SetStyles(s)

	return Model{
		canvas: c,
		opts:   opts,
		keys:   keys,
		help:   help.New(),
		input:  ti,
		table:  t,
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.table.SetHeight(max(m.canvasRows()-4, 3))
		w, h := m.canvasSize()
		m.canvas.SetContainer(geometry.Point{}, w, h)
		return m, nil

	case tickMsg:
		if m.mode == modeNodes {
			m.refreshTable()
		}
		return m, m.tick()

	case tea.MouseMsg:
		if m.mode == modeCanvas {
			m.mouse(msg)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeRename:
			return m.updateRename(msg)
		case modeNodes:
			return m.updateNodes(msg)
		default:
			return m.updateCanvas(msg)
		}
	}
	return m, nil
}

func (m Model) updateCanvas(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	step := panCells * m.opts.CellWidth
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.saveView()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Tab):
		m.mode = modeNodes
		m.refreshTable()
	case key.Matches(msg, m.keys.Escape):
		m.report(m.canvas.Pointer(canvas.PointerCancel, 0, 0))
	case key.Matches(msg, m.keys.Up):
		m.report(m.canvas.Pan(0, panCells*m.opts.CellHeight))
	case key.Matches(msg, m.keys.Down):
		m.report(m.canvas.Pan(0, -panCells*m.opts.CellHeight))
	case key.Matches(msg, m.keys.Left):
		m.report(m.canvas.Pan(step, 0))
	case key.Matches(msg, m.keys.Right):
		m.report(m.canvas.Pan(-step, 0))
	case key.Matches(msg, m.keys.ZoomIn):
		m.report(m.canvas.ZoomBy(zoomStep))
	case key.Matches(msg, m.keys.ZoomOut):
		m.report(m.canvas.ZoomBy(1 / zoomStep))
	case key.Matches(msg, m.keys.Reset):
		m.report(m.canvas.ResetView())
	case key.Matches(msg, m.keys.Fit):
		m.report(m.canvas.FitToContent(m.canvasSize()))
	case key.Matches(msg, m.keys.Add):
		kinds := graph.Kinds()
		i := int(msg.String()[0] - '1')
		n, err := m.canvas.AddNode(kinds[i], nil)
		if err != nil {
			m.fail(err)
		} else {
			m.succeed(fmt.Sprintf("added %s %s", n.Kind, short(n.ID)))
		}
	case key.Matches(msg, m.keys.Delete):
		id, ok, err := m.canvas.DeleteSelected()
		switch {
		case err != nil:
			m.fail(err)
		case !ok:
			m.fail(fmt.Errorf("nothing selected"))
		default:
			m.succeed("deleted " + short(id))
		}
	case key.Matches(msg, m.keys.Rename):
		id := m.canvas.Snapshot().Selected
		n, ok := m.canvas.Node(id)
		if id == "" || !ok {
			m.fail(fmt.Errorf("nothing selected"))
			break
		}
		m.mode = modeRename
		m.renaming = id
		m.input.Reset()
		m.input.Placeholder = n.Title
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Layout):
		algs := layout.Algorithms()
		alg := algs[m.layout%len(algs)]
		m.layout++
		moved, err := m.canvas.AutoLayout(alg)
		if err != nil {
			m.fail(err)
		} else {
			m.succeed(fmt.Sprintf("%s layout moved %d nodes", alg, moved))
		}
	}
	return m, nil
}

func (m Model) updateNodes(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.saveView()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Tab), key.Matches(msg, m.keys.Escape):
		m.mode = modeCanvas
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		row := m.table.SelectedRow()
		if row == nil {
			return m, nil
		}
		id := m.idForPrefix(row[0])
		if err := m.canvas.Select(id); err != nil {
			m.fail(err)
		} else {
			m.succeed("selected " + row[0])
		}
		m.mode = modeCanvas
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.mode = modeCanvas
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		title := strings.TrimSpace(m.input.Value())
		if _, err := m.canvas.Rename(m.renaming, title); err != nil {
			m.fail(err)
		} else {
			m.succeed("renamed " + short(m.renaming))
		}
		m.mode = modeCanvas
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// mouse maps a terminal cell to the client pixel at its center.
func (m *Model) mouse(msg tea.MouseMsg) {
	row := msg.Y - headerRows
	if row < 0 || row >= m.canvasRows() {
		if msg.Action == tea.MouseActionRelease {
			m.pointer(canvas.PointerLeave, msg.X, max(min(row, m.canvasRows()-1), 0))
		}
		return
	}

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		x, y := m.client(msg.X, row)
		m.report(m.canvas.Wheel(x, y, zoomStep))
	case msg.Button == tea.MouseButtonWheelDown:
		x, y := m.client(msg.X, row)
		m.report(m.canvas.Wheel(x, y, 1/zoomStep))
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.pointer(canvas.PointerDown, msg.X, row)
	case msg.Action == tea.MouseActionMotion:
		m.pointer(canvas.PointerMove, msg.X, row)
	case msg.Action == tea.MouseActionRelease:
		m.pointer(canvas.PointerUp, msg.X, row)
	}
}

func (m *Model) pointer(typ canvas.PointerType, col, row int) {
	x, y := m.client(col, row)
	res, err := m.canvas.Pointer(typ, x, y)
	if err != nil {
		m.fail(err)
		return
	}
	if res.Ended != nil {
		m.message, m.messageErr = "", false
	}
}

func (m Model) client(col, row int) (float64, float64) {
	return (float64(col) + 0.5) * m.opts.CellWidth, (float64(row) + 0.5) * m.opts.CellHeight
}

func (m Model) canvasRows() int {
	return max(m.height-headerRows-footerRows, 1)
}

func (m Model) canvasSize() (float64, float64) {
	return float64(max(m.width, 1)) * m.opts.CellWidth, float64(m.canvasRows()) * m.opts.CellHeight
}

func (m *Model) refreshTable() {
	nodes := m.canvas.Nodes()
	rows := make([]table.Row, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, table.Row{
			short(n.ID),
			n.Kind.String(),
			n.Title,
			fmt.Sprintf("%.0f,%.0f", n.Geometry.X, n.Geometry.Y),
			fmt.Sprintf("%d", len(n.Connections)),
		})
	}
	m.table.SetRows(rows)
}

func (m Model) idForPrefix(prefix string) graph.NodeID {
	for _, n := range m.canvas.Nodes() {
		if short(n.ID) == prefix {
			return n.ID
		}
	}
	return graph.NodeID(prefix)
}

func (m Model) saveView() {
	if m.opts.UserID == "" {
		return
	}
	_ = m.canvas.SaveView(context.Background(), m.opts.UserID)
}

func (m *Model) report(_ any, err error) {
	if err != nil {
		m.fail(err)
	}
}

func (m *Model) fail(err error) {
	m.message, m.messageErr = err.Error(), true
}

func (m *Model) succeed(msg string) {
	m.message, m.messageErr = msg, false
}

func short(id graph.NodeID) string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}
