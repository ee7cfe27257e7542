package ui

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"spirareport/internal/config"
	"spirareport/internal/reporter"
)

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(reporter.Summary{
		Submitted:  3,
		Recorded:   3,
		Passed:     2,
		Failed:     1,
		TestRunIDs: []int{41, 42, 43},
		Duration:   1500 * time.Millisecond,
	}, nil)

	assert.Contains(t, out, "Spira test runs")
	assert.Contains(t, out, "3/3")
	assert.Contains(t, out, "TR41, TR42, TR43")
	assert.Contains(t, out, "1.5s")
	assert.NotContains(t, out, "Unknown")
	assert.NotContains(t, out, "rejected")
}

func TestRenderSummary_Errors(t *testing.T) {
	var errs []error
	for i := 0; i < 7; i++ {
		errs = append(errs, fmt.Errorf("run %d failed", i))
	}

	out := RenderSummary(reporter.Summary{Submitted: 8, Recorded: 1, Rejected: 7, Unknown: 8}, errors.Join(errs...))

	assert.Contains(t, out, "1/8")
	assert.Contains(t, out, "(7 rejected)")
	assert.Contains(t, out, "Unknown")
	assert.Contains(t, out, "run 0 failed")
	assert.Contains(t, out, "run 4 failed")
	assert.NotContains(t, out, "run 5 failed")
	assert.Contains(t, out, "... and 2 more")
}

func TestRenderSummary_SingleError(t *testing.T) {
	out := RenderSummary(reporter.Summary{}, reporter.ErrNoClient)
	assert.Contains(t, out, "no Spira client configured")
}

func TestRenderProblems(t *testing.T) {
	verr := &config.ValidationError{Problems: []config.Problem{
		{Field: "url", Message: "is required"},
		{Field: "token", Message: "is required"},
	}}

	out := RenderProblems(fmt.Errorf("load: %w", verr))
	assert.Contains(t, out, "not fully configured")
	assert.Contains(t, out, "url: is required")
	assert.Contains(t, out, "token: is required")

	assert.Contains(t, RenderProblems(errors.New("boom")), "boom")
}
