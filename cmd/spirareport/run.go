package main

import (
	"errors"
	"io"
	"os/exec"

	"github.com/spf13/cobra"

	"spirareport/internal/gotest"
)

type runOptions struct {
	goBin       string
	strict      bool
	quiet       bool
	metricsAddr string
}

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [packages] [-- go test flags]",
		Short: "Run go test and record the results in Spira",
		Long: `Run executes 'go test -json' on the given packages (default ./...) and records
every completed test in Spira once the run ends. Arguments after -- are passed
to go test unchanged.

The exit status is the exit status of go test. Reporting problems are logged
and only change it with --strict.`,
		Example: `  spirareport run
  spirareport run ./calc/... -- -run TestMath -count=1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			packages, goArgs := args, []string(nil)
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				packages, goArgs = args[:dash], args[dash:]
			}
			return a.run(cmd, opts, packages, goArgs)
		},
	}

	cmd.Flags().StringVar(&opts.goBin, "go", "go", "go binary to run tests with")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Exit non-zero when test runs could not be recorded")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not echo test output")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while tests run")
	return cmd
}

func (a *app) run(cmd *cobra.Command, opts *runOptions, packages, goArgs []string) error {
	ctx := cmd.Context()
	s := a.newSession(cmd.ErrOrStderr())
	if err := s.serveMetrics(opts.metricsAddr); err != nil {
		return err
	}

	var echo io.Writer = cmd.OutOrStdout()
	if opts.quiet {
		echo = nil
	}

	runner := &gotest.Runner{
		GoBin:  opts.goBin,
		Stdout: echo,
		Stderr: cmd.ErrOrStderr(),
	}
	summary, testErr, flushErr := runner.Run(ctx, packages, goArgs, s.reporter)
	s.finish(ctx, cmd.ErrOrStderr(), summary, flushErr)

	if testErr != nil {
		var exitErr *exec.ExitError
		if errors.As(testErr, &exitErr) {
			return &exitError{code: gotest.ExitCode(testErr)}
		}
		return &exitError{code: 1, err: testErr}
	}
	return s.result(opts.strict, flushErr)
}
