package gotest

import (
	"io"
	"strconv"
	"strings"
	"time"

	"spirareport/internal/reporter"
)

// TestEvent is one line of `go test -json` output.
type TestEvent struct {
	Time    time.Time
	Action  string
	Package string
	Test    string
	Elapsed float64
	Output  string
}

// SpecListener receives completed specs.
type SpecListener interface {
	SpecDone(result reporter.Result)
}

type testState struct {
	started time.Time
	output  []string
}

// Collector turns test2json events into spec results.
type Collector struct {
	listener SpecListener
	echo     io.Writer
	tests    map[string]*testState
	// runs counts completed executions per test so reruns get their own ID.
	runs map[string]int
}

// NewCollector creates a Collector. Output events are copied to echo when it is not nil.
func NewCollector(listener SpecListener, echo io.Writer) *Collector {
	return &Collector{
		listener: listener,
		echo:     echo,
		tests:    make(map[string]*testState),
		runs:     make(map[string]int),
	}
}

// Handle processes a single event. Package-level events are not specs and only echo.
func (c *Collector) Handle(ev TestEvent) {
	if ev.Action == "output" && c.echo != nil {
		io.WriteString(c.echo, ev.Output)
	}
	if ev.Test == "" {
		return
	}

	key := ev.Package + "." + ev.Test
	state := c.tests[key]
	if state == nil {
		state = &testState{}
		c.tests[key] = state
	}

	switch ev.Action {
	case "run":
		state.started = ev.Time
	case "output":
		state.output = append(state.output, ev.Output)
	case "pass", "fail", "skip":
		delete(c.tests, key)
		c.runs[key]++
		c.listener.SpecDone(resultFor(executionID(key, c.runs[key]), ev, state))
	}
}

func resultFor(id string, ev TestEvent, state *testState) reporter.Result {
	result := reporter.Result{
		ID:          id,
		Description: leafName(ev.Test),
		Started:     state.started,
	}

	switch ev.Action {
	case "pass":
		result.Status = reporter.StatusPassed
	case "fail":
		result.Status = reporter.StatusFailed
		result.FailedExpectations = expectations(state.output)
	case "skip":
		result.Status = reporter.StatusSkipped
	}

	if result.Started.IsZero() && !ev.Time.IsZero() {
		result.Started = ev.Time.Add(-time.Duration(ev.Elapsed * float64(time.Second)))
	}
	return result
}

// executionID identifies the n-th execution of a test. The first keeps the plain
// Package.Test form; go test -count=N reruns are suffixed "#2", "#3" and so on.
func executionID(key string, n int) string {
	if n <= 1 {
		return key
	}
	return key + "#" + strconv.Itoa(n)
}

// leafName is the last segment of a subtest path; t.Run names play the role of spec
// descriptions.
func leafName(test string) string {
	if i := strings.LastIndex(test, "/"); i >= 0 {
		return test[i+1:]
	}
	return test
}

// expectations keeps the failure output of a test, dropping go test's own framing lines.
func expectations(output []string) []reporter.Expectation {
	var out []reporter.Expectation
	for _, line := range output {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isFraming(trimmed) {
			continue
		}
		out = append(out, reporter.Expectation{Message: trimmed, Stack: line})
	}
	return out
}

func isFraming(line string) bool {
	for _, prefix := range []string{"=== RUN", "=== PAUSE", "=== CONT", "=== NAME", "--- PASS", "--- FAIL", "--- SKIP"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
