package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"spirareport/internal/gotest"
)

type reportOptions struct {
	strict bool
	quiet  bool
}

func newReportCmd(a *app) *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report [file]",
		Short: "Record the results of an existing 'go test -json' output",
		Long: `Report reads 'go test -json' events from a file, or from stdin when the file is
omitted or "-", and records every completed test in Spira at end of input.`,
		Example: `  go test -json ./... | spirareport report
  spirareport report results.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open test output: %w", err)
				}
				defer f.Close()
				in = f
			}
			return a.report(cmd, opts, in)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Exit non-zero when test runs could not be recorded")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not echo test output")
	return cmd
}

func (a *app) report(cmd *cobra.Command, opts *reportOptions, in io.Reader) error {
	ctx := cmd.Context()
	s := a.newSession(cmd.ErrOrStderr())

	var echo io.Writer = cmd.OutOrStdout()
	if opts.quiet {
		echo = nil
	}

	summary, flushErr := gotest.Stream(ctx, in, s.reporter, echo)
	s.finish(ctx, cmd.ErrOrStderr(), summary, flushErr)
	return s.result(opts.strict, flushErr)
}
