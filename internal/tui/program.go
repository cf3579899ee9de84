package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ZehenForever/dpsboard/internal/engine"
)

// Run starts the dashboard and blocks until the user quits or ctx ends.
func Run(ctx context.Context, eng *engine.Engine, opts Options) error {
	m := New(eng, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))

	eng.Scheduler().SetCallbacks(
		func() { p.Send(RenderMsg{}) },
		func() { p.Send(SampleMsg{}) },
	)
	eng.SetVisible(true)
	defer eng.SetVisible(false)

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("tui requires a real terminal")
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
