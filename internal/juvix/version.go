package juvix

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

//go:embed juvix.version
var supportedVersion string

// SupportedVersion is the oldest compiler release this build understands.
func SupportedVersion() string {
	return strings.TrimSpace(supportedVersion)
}

// Supported reports whether the numeric version installed is at least
// SupportedVersion. Versions that are not semver are rejected.
func Supported(installed string) (bool, error) {
	have := canonical(installed)
	want := canonical(SupportedVersion())
	if !semver.IsValid(have) {
		return false, fmt.Errorf("unrecognised juvix version %q", installed)
	}
	return semver.Compare(have, want) >= 0, nil
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// IsVersionSupported probes the installed compiler and checks it against
// SupportedVersion. It returns the installed numeric version as well.
func (c *Client) IsVersionSupported(ctx context.Context) (bool, string, error) {
	installed, err := c.NumericVersion(ctx)
	if err != nil {
		return false, "", err
	}
	ok, err := Supported(installed)
	return ok, installed, err
}
