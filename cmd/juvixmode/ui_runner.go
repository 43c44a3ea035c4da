package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"juvixmode/internal/tasks"
	"juvixmode/internal/ui"
)

// runTaskWithUI runs def under the progress TUI. The runner's sink is
// replaced by a channel feeding the model; ctrl+c cancels the run.
func runTaskWithUI(ctx context.Context, runner tasks.Runner, def tasks.Definition, files []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan tasks.Event, 256)
	outcome := make(chan error, 1)

	go func() {
		runner.Sink = tasks.ChannelSink{Ch: events}
		err := runner.Run(ctx, def, files)
		outcome <- err
		close(events)
	}()

	model := ui.NewProgressModel(def.Name, files, events)
	ui.OnInterrupt(model, cancel)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	err := <-outcome
	if uiErr != nil {
		return uiErr
	}
	return err
}
