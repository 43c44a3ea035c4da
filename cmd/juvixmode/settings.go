package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"juvixmode/internal/cache"
	"juvixmode/internal/config"
	"juvixmode/internal/juvix"
	"juvixmode/internal/trace"
)

type settingsKey struct{}

func errInvalidFlag(name, value, allowed string) error {
	return fmt.Errorf("invalid --%s value %q (expected %s)", name, value, allowed)
}

// loadSettings reads the settings and stores them in the command context.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	s, err := config.Load(path)
	if err != nil {
		return config.Settings{}, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, settingsKey{}, s)
	cmd.SetContext(ctx)
	return s, nil
}

func settingsFrom(ctx context.Context) config.Settings {
	if s, ok := ctx.Value(settingsKey{}).(config.Settings); ok {
		return s
	}
	return config.Default()
}

func newClient(ctx context.Context, s config.Settings) *juvix.Client {
	return juvix.NewClient(s.JuvixExec(), s.GlobalFlags(), juvix.WithTracer(trace.FromContext(ctx)))
}

// openCache builds the highlight payload cache the settings ask for, nil
// when both levels are off.
func openCache(s config.Settings) (*cache.Payloads, error) {
	var disk *cache.DiskCache
	if s.Cache.Disk {
		d, err := cache.OpenDiskCache("juvixmode")
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		disk = d
	}
	return cache.New(s.Cache.Memory, disk)
}
