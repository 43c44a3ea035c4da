package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"juvixmode/internal/juvix"
	"juvixmode/internal/version"
)

// versionReport is what `juvixmode version` prints. Juvix is filled only
// when the installed binary was probed.
type versionReport struct {
	Tool          string `json:"tool"`
	Version       string `json:"version"`
	SupportsJuvix string `json:"supports_juvix"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildDate     string `json:"build_date,omitempty"`
	Juvix         string `json:"juvix,omitempty"`
	JuvixError    string `json:"juvix_error,omitempty"`
}

func init() {
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	versionCmd.Flags().Bool("build", false, "include the git commit and build date")
	versionCmd.Flags().Bool("juvix", false, "also report the installed juvix version")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show juvixmode build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		format = strings.ToLower(format)
		if format != "pretty" && format != "json" {
			return errInvalidFlag("format", format, "pretty|json")
		}
		withBuild, err := cmd.Flags().GetBool("build")
		if err != nil {
			return err
		}
		probe, err := cmd.Flags().GetBool("juvix")
		if err != nil {
			return err
		}

		report := buildVersionReport(withBuild)
		if probe {
			client := newClient(cmd.Context(), settingsFrom(cmd.Context()))
			if v, err := client.NumericVersion(cmd.Context()); err != nil {
				report.JuvixError = err.Error()
			} else {
				report.Juvix = v
			}
		}
		if format == "json" {
			return renderVersionJSON(cmd.OutOrStdout(), report)
		}
		renderVersionPretty(cmd.OutOrStdout(), report)
		return nil
	},
}

func buildVersionReport(withBuild bool) versionReport {
	report := versionReport{
		Tool:          "juvixmode",
		Version:       strings.TrimSpace(version.Version),
		SupportsJuvix: juvix.SupportedVersion(),
	}
	if report.Version == "" {
		report.Version = "dev"
	}
	if withBuild {
		report.GitCommit = orUnknown(version.GitCommit)
		report.BuildDate = orUnknown(version.BuildDate)
	}
	return report
}

func renderVersionPretty(out io.Writer, r versionReport) {
	v := r.Version
	if v == strings.TrimSpace(version.Version) {
		v = version.Colored()
	}
	fmt.Fprintf(out, "%s %s (juvix >= %s)\n", r.Tool, v, r.SupportsJuvix)
	if r.GitCommit != "" {
		fmt.Fprintf(out, "commit: %s\n", r.GitCommit)
	}
	if r.BuildDate != "" {
		fmt.Fprintf(out, "built:  %s\n", r.BuildDate)
	}
	switch {
	case r.Juvix != "":
		fmt.Fprintf(out, "juvix:  %s\n", r.Juvix)
	case r.JuvixError != "":
		fmt.Fprintf(out, "juvix:  %s\n", r.JuvixError)
	}
}

func renderVersionJSON(out io.Writer, r versionReport) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
