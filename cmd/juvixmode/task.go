package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"juvixmode/internal/project"
	"juvixmode/internal/tasks"
	"juvixmode/internal/trace"
	"juvixmode/internal/ui"
)

var taskCmd = &cobra.Command{
	Use:   "task <name> [file...]",
	Short: "Run a compiler or vamp-ir task on files",
	Long: `Run a built-in or user-defined task. Names containing a space, such as
"dev parse" or "vampir setup", may be given as one quoted argument or as two
words.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available tasks",
	Args:  cobra.NoArgs,
	RunE:  runTaskList,
}

func init() {
	taskCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	taskCmd.Flags().Int("jobs", 0, "files processed at once (0 = number of CPUs)")
	taskCmd.Flags().String("reveal", "", "show task output (always|silent|never), overrides revealPanel")
	taskCmd.AddCommand(taskListCmd)
}

// resolveTask finds the task named by the leading arguments and returns
// the remaining arguments as files.
func resolveTask(defs []tasks.Definition, args []string) (tasks.Definition, []string, error) {
	if len(args) >= 2 {
		if def, ok := tasks.Lookup(defs, args[0]+" "+args[1]); ok {
			return def, args[2:], nil
		}
	}
	if def, ok := tasks.Lookup(defs, args[0]); ok {
		return def, args[1:], nil
	}
	return tasks.Definition{}, nil, fmt.Errorf("unknown task %q (known: %s)", args[0], strings.Join(tasks.Names(defs), ", "))
}

func workspaceDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	if root, ok, err := project.FindProjectRoot(wd); err == nil && ok {
		return root
	}
	return wd
}

func runTask(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	settings := settingsFrom(ctx)

	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	reveal, err := cmd.Flags().GetString("reveal")
	if err != nil {
		return err
	}
	present, err := newTaskPresentation(uiValue, reveal, settings.RevealPanel)
	if err != nil {
		return err
	}

	defs, err := tasks.Definitions(settings)
	if err != nil {
		return err
	}
	def, files, err := resolveTask(defs, args)
	if err != nil {
		return err
	}

	runner := tasks.Runner{
		Settings:  settings,
		Tracer:    trace.FromContext(ctx),
		Workspace: workspaceDir(),
		Jobs:      jobs,
	}

	var held bytes.Buffer
	if present.streams() {
		runner.Stdout = cmd.OutOrStdout()
		runner.Stderr = cmd.ErrOrStderr()
	} else {
		runner.Stdout = &held
		runner.Stderr = &held
	}

	if present.tui {
		err = runTaskWithUI(ctx, runner, def, files)
	} else {
		runner.Sink = ui.NewPlainSink(cmd.ErrOrStderr())
		err = runner.Run(ctx, def, files)
	}
	if held.Len() > 0 && tasks.ShouldReveal(present.reveal, err != nil) {
		_, _ = io.Copy(cmd.OutOrStdout(), &held)
	}
	return err
}

func runTaskList(cmd *cobra.Command, _ []string) error {
	defs, err := tasks.Definitions(settingsFrom(cmd.Context()))
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	bold := color.New(color.Bold)
	for _, def := range defs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", bold.Sprint(def.Name), def.Detail, def.CommandLine())
	}
	return w.Flush()
}
