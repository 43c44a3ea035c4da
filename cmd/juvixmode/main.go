package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"juvixmode/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "juvixmode",
	Short: "Juvix language server and toolchain front-end",
	Long: `juvixmode drives the Juvix compiler for editors: a language server with
semantic highlighting, navigation and typecheck diagnostics, plus commands to
run compiler and vamp-ir tasks, a REPL and a documentation preview.`,
	SilenceUsage:       true,
	PersistentPreRunE:  prepare,
	PersistentPostRunE: finish,
}

// main registers the subcommands and persistent flags and executes the
// root command, exiting with status 1 on error.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(highlightCmd)
	rootCmd.AddCommand(formatCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(docCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "settings file (default $XDG_CONFIG_HOME/juvixmode/config.toml)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "", "trace level (off|error|request|process|debug), overrides settings")
	rootCmd.PersistentFlags().String("trace-format", "", "trace format (auto|text|ndjson), overrides settings")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to this file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to this file")

	err := rootCmd.Execute()
	cleanup()
	if err != nil {
		os.Exit(1)
	}
}

func prepare(cmd *cobra.Command, _ []string) error {
	if err := setupColor(cmd); err != nil {
		return err
	}
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	stopTracing, err := setupTracing(cmd, settings)
	if err != nil {
		stopProfiling()
		return err
	}
	cleanup = func() {
		stopTracing()
		stopProfiling()
	}
	return nil
}

// cleanup flushes tracing and profiling. PersistentPostRunE does not run
// when a command fails, so main calls it as well.
var cleanup = func() {}

func finish(*cobra.Command, []string) error {
	cleanup()
	cleanup = func() {}
	return nil
}

func setupColor(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto", "":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return errInvalidFlag("color", mode, "auto|on|off")
	}
	return nil
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
