package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"juvixmode/internal/lsp"
	"juvixmode/internal/trace"
)

var lspCmd = &cobra.Command{
	Use:          "lsp",
	Short:        "Run the Juvix language server over stdio",
	SilenceUsage: true,
	RunE:         runLSP,
}

func init() {
	lspCmd.Flags().Duration("debounce", 300*time.Millisecond, "delay before typechecking after an edit")
}

func runLSP(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	settings := settingsFrom(ctx)
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return err
	}
	payloads, err := openCache(settings)
	if err != nil {
		return err
	}

	server := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{
		Debounce: debounce,
		Settings: &settings,
		Tracer:   trace.FromContext(ctx),
		Cache:    payloads,
	})
	if err := server.Run(ctx); err != nil {
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return fmt.Errorf("lsp exit without shutdown")
		}
		return err
	}
	return nil
}
