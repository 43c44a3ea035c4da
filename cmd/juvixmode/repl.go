package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"juvixmode/internal/repl"
	"juvixmode/internal/trace"
)

var replCmd = &cobra.Command{
	Use:   "repl [file]",
	Short: "Start a REPL, loading file when given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runREPL,
}

func init() {
	replCmd.Flags().Bool("watch", false, "reload the file when it changes on disk (default from reloadReplOnSave)")
	replCmd.Flags().Duration("watch-interval", 500*time.Millisecond, "how often the file is checked for changes")
}

func runREPL(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	settings := settingsFrom(ctx)

	watch := settings.ReloadReplOnSave
	if cmd.Flags().Changed("watch") {
		v, err := cmd.Flags().GetBool("watch")
		if err != nil {
			return err
		}
		watch = v
	}
	interval, err := cmd.Flags().GetDuration("watch-interval")
	if err != nil {
		return err
	}

	opts := repl.Options{
		Exec:   settings.JuvixExec(),
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Tracer: trace.FromContext(ctx),
	}
	if len(args) == 1 {
		file, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		lang, ok := repl.LanguageOf(file)
		if !ok {
			return fmt.Errorf("%s is neither a Juvix nor a JuvixCore file", args[0])
		}
		opts.File = file
		opts.Language = lang
	}

	session, err := repl.Start(ctx, opts)
	if err != nil {
		return err
	}
	defer session.Close()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if watch && opts.File != "" {
		go func() {
			if err := session.WatchReload(watchCtx, interval); err != nil && watchCtx.Err() == nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "repl: watch: %v\n", err)
			}
		}()
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-session.Done():
			return session.Wait()
		case line, ok := <-lines:
			if !ok {
				return session.Close()
			}
			if err := session.Send(line); err != nil {
				return session.Wait()
			}
		}
	}
}
