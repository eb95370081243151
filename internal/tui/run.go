package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the sidebar on the alternate screen and blocks until the user
// quits or ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	model, err := NewModel(cfg)
	if err != nil {
		return err
	}
	model.Start(ctx)
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
