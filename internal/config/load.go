package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultPath is $XDG_CONFIG_HOME/juvixmode/config.toml, falling back to the
// platform user config directory.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return ""
		}
		base = dir
	}
	return filepath.Join(base, "juvixmode", "config.toml")
}

// Load builds settings from defaults, the TOML file at path (DefaultPath if
// empty, where a missing file is not an error), a .env file in the working
// directory and the environment, in that order.
func Load(path string) (Settings, error) {
	s := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := decodeFile(path, &s); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return Settings{}, err
			}
		}
	}

	_ = godotenv.Load()
	applyEnv(&s)

	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

func decodeFile(path string, s *Settings) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	md, err := toml.DecodeFile(path, s)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func applyEnv(s *Settings) {
	if v := strings.TrimSpace(os.Getenv("JUVIX_BIN")); v != "" {
		s.Bin.Name = v
	}
	if v := strings.TrimSpace(os.Getenv("JUVIX_BIN_PATH")); v != "" {
		s.Bin.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("VAMPIR_BIN")); v != "" {
		s.Vampir.Name = v
	}
	if v := strings.TrimSpace(os.Getenv("VAMPIR_BIN_PATH")); v != "" {
		s.Vampir.Path = v
	}
	s.Trace.Level = firstNonEmpty(strings.TrimSpace(os.Getenv("JUVIXMODE_TRACE")), s.Trace.Level)
	s.TypecheckOn = firstNonEmpty(strings.TrimSpace(os.Getenv("JUVIXMODE_TYPECHECK_ON")), s.TypecheckOn)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
