package gotest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"spirareport/internal/reporter"
)

// execCommand allows mocking exec.CommandContext in tests
var execCommand = exec.CommandContext

// maxLine bounds a single test2json line; long t.Log output can exceed bufio's default.
const maxLine = 4 << 20

// SuiteReporter receives specs and is flushed once the suite ends.
type SuiteReporter interface {
	SpecListener
	SuiteDone(ctx context.Context) (reporter.Summary, error)
}

var _ SuiteReporter = (*reporter.Reporter)(nil)

// Stream reads test2json events from r, reports every completed test, and flushes the
// reporter at end of input. Lines that are not JSON are echoed and otherwise ignored.
func Stream(ctx context.Context, r io.Reader, rep SuiteReporter, echo io.Writer) (reporter.Summary, error) {
	c := NewCollector(rep, echo)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		var ev TestEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			// build output mixed in
			if echo != nil {
				fmt.Fprintln(echo, scanner.Text())
			}
			continue
		}
		c.Handle(ev)
	}

	summary, err := rep.SuiteDone(ctx)
	if scanErr := scanner.Err(); scanErr != nil {
		err = errors.Join(fmt.Errorf("failed to read test events: %w", scanErr), err)
	}
	return summary, err
}

// Runner executes `go test -json` and feeds its output to a reporter.
type Runner struct {
	// GoBin defaults to "go".
	GoBin string
	// Stdout receives the test output as `go test -v` would print it. Nil discards it.
	Stdout io.Writer
	// Stderr receives go test's own stderr. Nil means os.Stderr.
	Stderr io.Writer
}

// Run executes the tests and reports them. testErr is the outcome of go test itself
// (failing tests or a broken build); reportErr is the outcome of recording the results.
// Reporting never changes testErr.
func (r *Runner) Run(ctx context.Context, packages, args []string, rep SuiteReporter) (summary reporter.Summary, testErr, reportErr error) {
	goBin := r.GoBin
	if goBin == "" {
		goBin = "go"
	}
	if len(packages) == 0 {
		packages = []string{"./..."}
	}

	// packages go first: a trailing -args consumes everything after it
	runArgs := append([]string{"test", "-json"}, packages...)
	runArgs = append(runArgs, args...)

	cmd := execCommand(ctx, goBin, runArgs...)
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return reporter.Summary{}, fmt.Errorf("failed to attach to go test: %w", err), nil
	}
	if err := cmd.Start(); err != nil {
		return reporter.Summary{}, fmt.Errorf("failed to start go test: %w", err), nil
	}

	summary, reportErr = Stream(ctx, stdout, rep, r.Stdout)
	testErr = cmd.Wait()
	return summary, testErr, reportErr
}

// ExitCode maps a go test error to the status the process should exit with.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}
