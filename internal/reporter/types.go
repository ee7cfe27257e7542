package reporter

import (
	"context"
	"fmt"
	"time"

	"spirareport/internal/spira"
)

// Spec statuses the reporter maps to Spira execution states. Any other status is kept
// but recorded with an unknown execution status.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Run messages sent as RunnerMessage.
const (
	MessagePassed = "Test Succeeded"
	MessageFailed = "Test Failed"
)

// Expectation is one failed assertion of a spec.
type Expectation struct {
	Message string
	Stack   string
}

// Result is what a test runner reports when a spec completes.
type Result struct {
	ID                 string
	Description        string
	Status             string
	FailedExpectations []Expectation
	// Started is when the spec began. The zero value means "when it was reported".
	Started time.Time
}

// PendingTestRun is a completed spec waiting for the next flush.
type PendingTestRun struct {
	TestCaseID int
	TestName   string
	StackTrace string
	StatusID   int
	StartDate  string
	Message    string
	ReleaseID  *int
	TestSetID  *int
}

// TestRun converts the pending run to Spira's wire schema.
func (p PendingTestRun) TestRun() spira.TestRun {
	return spira.TestRun{
		TestRunFormatID:   spira.FormatPlainText,
		TestCaseID:        p.TestCaseID,
		RunnerTestName:    p.TestName,
		RunnerName:        spira.RunnerName,
		RunnerMessage:     p.Message,
		RunnerStackTrace:  p.StackTrace,
		ExecutionStatusID: p.StatusID,
		StartDate:         p.StartDate,
		ReleaseID:         p.ReleaseID,
		TestSetID:         p.TestSetID,
	}
}

// Recorder submits a single test run. *spira.Client implements it.
type Recorder interface {
	RecordTestRun(ctx context.Context, projectID int, run spira.TestRun) (*spira.RecordedTestRun, error)
}

var _ Recorder = (*spira.Client)(nil)

// Summary describes one flush.
type Summary struct {
	Submitted int
	Recorded  int
	Rejected  int

	Passed  int
	Failed  int
	Unknown int

	TestRunIDs []int
	Duration   time.Duration
}

// FlushError is the failure of a single test run within a flush.
type FlushError struct {
	Run PendingTestRun
	Err error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("failed to record test run %q (test case %d): %v", e.Run.TestName, e.Run.TestCaseID, e.Err)
}

func (e *FlushError) Unwrap() error {
	return e.Err
}
