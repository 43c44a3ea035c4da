package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"juvixmode/internal/config"
	"juvixmode/internal/installer"
	"juvixmode/internal/juvix"
	"juvixmode/internal/project"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the installed tools and the current project",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

type statusReport struct {
	binaries  []installer.Binary
	supported bool
	numeric   string
	checkErr  error
	manifest  *project.Manifest
}

func collectStatus(ctx context.Context, s config.Settings, runner juvix.Runner, dir string) (statusReport, error) {
	report := statusReport{binaries: make([]installer.Binary, 3)}
	probes := []struct{ name, exec string }{
		{"juvix", s.JuvixExec()},
		{"vamp-ir", s.VampirExec()},
		{"wasmer", "wasmer"},
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range probes {
		g.Go(func() error {
			report.binaries[i] = installer.CheckBinary(gctx, runner, p.name, p.exec)
			return nil
		})
	}
	g.Go(func() error {
		client := juvix.NewClient(s.JuvixExec(), nil, juvix.WithRunner(runner))
		report.supported, report.numeric, report.checkErr = client.IsVersionSupported(gctx)
		return nil
	})
	g.Go(func() error {
		m, ok, err := project.Load(dir)
		if err != nil {
			return err
		}
		if ok {
			report.manifest = m
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return statusReport{}, err
	}
	return report, nil
}

func renderStatus(out io.Writer, r statusReport) {
	ok := color.GreenString("ok")
	missing := color.RedString("missing")
	for _, b := range r.binaries {
		if b.Found() {
			fmt.Fprintf(out, "%-8s %s  %s\n", b.Name, ok, b.Version)
		} else {
			fmt.Fprintf(out, "%-8s %s  %v\n", b.Name, missing, b.Err)
		}
	}
	switch {
	case r.checkErr != nil:
		// Already reported through the juvix probe.
	case r.supported:
		fmt.Fprintf(out, "%-8s %s  %s >= %s\n", "version", ok, r.numeric, juvix.SupportedVersion())
	default:
		fmt.Fprintf(out, "%-8s %s  %s < %s, some features may not work\n", "version",
			color.YellowString("old"), r.numeric, juvix.SupportedVersion())
	}
	if r.manifest != nil {
		fmt.Fprintf(out, "%-8s %s  %s\n", "project", r.manifest.Name, r.manifest.Root)
	} else {
		fmt.Fprintf(out, "%-8s %s\n", "project", "none (global project)")
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	report, err := collectStatus(ctx, settingsFrom(ctx), nil, wd)
	if err != nil {
		return err
	}
	renderStatus(cmd.OutOrStdout(), report)
	if !report.binaries[0].Found() {
		return fmt.Errorf("juvix is not installed; run `juvixmode install`")
	}
	return nil
}
