package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"juvixmode/internal/prof"
)

// setupProfiling starts the profilers requested by the persistent flags.
// The returned cleanup writes the profiles and is safe to call twice.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()

	cpuProfile, err := root.PersistentFlags().GetString("cpu-profile")
	if err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	memProfile, err := root.PersistentFlags().GetString("mem-profile")
	if err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	tracePath, err := root.PersistentFlags().GetString("runtime-trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}

	session, err := prof.Start(prof.Options{CPU: cpuProfile, Mem: memProfile, Trace: tracePath})
	if err != nil {
		return nil, fmt.Errorf("failed to start profiling: %w", err)
	}
	return func() {
		if err := session.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
		}
	}, nil
}
