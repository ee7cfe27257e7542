package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"spirareport/internal/config"
	"spirareport/internal/telemetry"
)

var exit = os.Exit

// exitError carries a process exit status out of a command. A nil err means the
// failure was already reported (go test prints its own failures).
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) Unwrap() error { return e.err }

// app is the state shared by all subcommands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	file    config.File
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	cmd := &cobra.Command{
		Use:   "spirareport",
		Short: "Record Go test results as Spira test runs",
		Long: `spirareport runs go test (or reads its -json output) and records every
completed test as a test run in SpiraTest, SpiraTeam or SpiraPlan.

Tests are matched to Spira test cases by name through the testCases
section of the configuration; unmatched tests use testCases.default.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./spira.{yaml,json,toml})")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	cmd.PersistentFlags().String("log-file", "", "Also append logs to this file")

	bindFlags(a.v, cmd.PersistentFlags(), map[string]string{
		"verbose":  "verbose",
		"log-file": "log_file",
	})

	cmd.AddCommand(
		newRunCmd(a),
		newReportCmd(a),
		newCheckCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// bindFlags binds each flag to its configuration key so flags override the config file.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if f := flags.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	f, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	if err := config.ValidateOptions(f.Options); err != nil {
		return err
	}
	a.file = f
	a.logger = telemetry.InitLogger(cmd.ErrOrStderr(), f.Verbose, f.LogFile)
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("Using config file", "path", used)
	}
	return nil
}

// Execute runs the CLI and exits with the status of the executed command.
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n=== CRITICAL ERROR: Command Execution Panic ===\n")
			fmt.Fprintf(os.Stderr, "Error: %v\n", r)
			exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		exit(reportError(err))
	}
}

// reportError prints err unless it was already reported and returns the exit status.
func reportError(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	fmt.Fprintln(os.Stderr, "Run 'spirareport --help' for usage.")
	return 1
}
