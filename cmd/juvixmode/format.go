package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var formatCmd = &cobra.Command{
	Use:   "format [flags] <file> [file...]",
	Short: "Format Juvix files with the compiler",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFormat,
}

func init() {
	formatCmd.Flags().Bool("write", false, "rewrite files in place instead of printing them")
	formatCmd.Flags().Bool("check", false, "fail if any file is not formatted")
	formatCmd.Flags().Int("jobs", 0, "files formatted at once (0 = number of CPUs)")
}

type formatResult struct {
	path      string
	original  string
	formatted string
	err       error
}

func (r formatResult) changed() bool { return r.err == nil && r.formatted != r.original }

func runFormat(cmd *cobra.Command, args []string) error {
	write, err := cmd.Flags().GetBool("write")
	if err != nil {
		return err
	}
	check, err := cmd.Flags().GetBool("check")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	if write && check {
		return fmt.Errorf("format: --write cannot be used with --check")
	}

	ctx := cmd.Context()
	client := newClient(ctx, settingsFrom(ctx))
	results := make([]formatResult, len(args))

	g, gctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, arg := range args {
		g.Go(func() error {
			path, err := filepath.Abs(arg)
			if err != nil {
				results[i] = formatResult{path: arg, err: err}
				return nil
			}
			original, err := os.ReadFile(path)
			if err != nil {
				results[i] = formatResult{path: arg, err: err}
				return nil
			}
			formatted, err := client.Format(gctx, path)
			results[i] = formatResult{path: arg, original: string(original), formatted: formatted, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	var failed, unformatted int
	for _, r := range results {
		switch {
		case r.err != nil:
			failed++
			fmt.Fprintf(errOut, "%s %s: %v\n", color.RedString("error"), r.path, r.err)
		case check:
			if r.changed() {
				unformatted++
				fmt.Fprintf(out, "%s %s\n", color.YellowString("unformatted"), r.path)
			}
		case write:
			if !r.changed() {
				continue
			}
			if err := writeFileAtomic(r.path, r.formatted); err != nil {
				failed++
				fmt.Fprintf(errOut, "%s %s: %v\n", color.RedString("error"), r.path, err)
				continue
			}
			fmt.Fprintf(out, "%s %s\n", color.GreenString("formatted"), r.path)
		default:
			fmt.Fprint(out, r.formatted)
		}
	}
	if failed > 0 {
		return fmt.Errorf("format: %d of %d files failed", failed, len(results))
	}
	if unformatted > 0 {
		return fmt.Errorf("format: %d files are not formatted", unformatted)
	}
	return nil
}

func writeFileAtomic(path, content string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
