package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/strategy-canvas/pkg/canvas"
)

// Run takes over the terminal until the user quits or ctx is done.
func Run(ctx context.Context, c *canvas.Canvas, opts Options) error {
	p := tea.NewProgram(
		New(c, opts),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
