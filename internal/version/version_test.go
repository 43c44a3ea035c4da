package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestColoredKeepsComponents(t *testing.T) {
	prevNoColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prevNoColor })

	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "1.2.3-rc1"
	if got := Colored(); got != "1.2.3-rc1" {
		t.Errorf("Colored() = %q, want %q", got, "1.2.3-rc1")
	}

	Version = "custom"
	if got := Colored(); got != "custom" {
		t.Errorf("Colored() = %q, want %q", got, "custom")
	}
}
