package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/smartwake/internal/shared"
	"github.com/desertthunder/smartwake/internal/ui"
)

// TUI launches the interactive alarm list.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, closer, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer closer.Close()
	r.SetLogger(fileLogger)

	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, orch, cmd.Duration("refresh"))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
