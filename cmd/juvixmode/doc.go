package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"juvixmode/internal/judoc"
	"juvixmode/internal/juvix"
	"juvixmode/internal/project"
)

var docCmd = &cobra.Command{
	Use:   "doc <file>",
	Short: "Preview the documentation of a Juvix file in the browser",
	Long: `Generate HTML documentation for the file into <project root>/doc and serve
it with live reload: the page is regenerated whenever the file changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runDoc,
}

func init() {
	docCmd.Flags().String("addr", "127.0.0.1:8484", "address the preview server listens on")
	docCmd.Flags().Duration("watch-interval", 500*time.Millisecond, "how often the file is checked for changes")
	docCmd.Flags().Bool("once", false, "generate the documentation and exit")
}

// docRoot asks the compiler for the project root of file, falling back to
// the nearest manifest and then to the file's directory.
func docRoot(ctx context.Context, client *juvix.Client, file string) string {
	if root, err := client.Root(ctx, file); err == nil && root != "" {
		return root
	}
	if root, ok, err := project.FindProjectRoot(filepath.Dir(file)); err == nil && ok {
		return root
	}
	return filepath.Dir(file)
}

func runDoc(cmd *cobra.Command, args []string) error {
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}
	interval, err := cmd.Flags().GetDuration("watch-interval")
	if err != nil {
		return err
	}
	once, err := cmd.Flags().GetBool("once")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	file, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	client := newClient(ctx, settingsFrom(ctx))
	root := docRoot(ctx, client, file)

	if once {
		page, err := judoc.Generate(ctx, client, root, file)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), page)
		return nil
	}

	preview := judoc.NewPreview(client, root, file)
	if err := preview.Refresh(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "doc: %v\n", err)
	}
	go func() { _ = preview.Watch(ctx, interval) }()

	fmt.Fprintf(cmd.OutOrStdout(), "serving documentation for %s on http://%s/\n", filepath.Base(file), addr)
	return preview.ListenAndServe(ctx, addr)
}
