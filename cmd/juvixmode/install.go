package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"juvixmode/internal/installer"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the Juvix compiler with the upstream installer script",
	Args:  cobra.NoArgs,
	RunE:  runInstall,
}

func runInstall(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	inst := installer.Installer{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
	if err := inst.Install(ctx); err != nil {
		return err
	}
	settings := settingsFrom(ctx)
	bin := installer.CheckBinary(ctx, nil, "juvix", settings.JuvixExec())
	if !bin.Found() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s installed, but %s is not on PATH yet: %v\n",
			color.YellowString("warning:"), settings.JuvixExec(), bin.Err)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("installed"), bin.Version)
	return nil
}
