package spira

import "fmt"

// Wire constants shared by every recorded run.
const (
	// FormatPlainText marks RunnerMessage and RunnerStackTrace as plain text.
	FormatPlainText = 1
	// RunnerName is the automation host name Spira shows for recorded runs.
	RunnerName = "JasmineJS"
)

// Spira execution status ids.
const (
	StatusFailed  = 1
	StatusPassed  = 2
	StatusUnknown = -1
)

// TestRun is the body of POST projects/{id}/test-runs/record.
type TestRun struct {
	TestRunFormatID   int    `json:"TestRunFormatId"`
	TestCaseID        int    `json:"TestCaseId"`
	RunnerTestName    string `json:"RunnerTestName"`
	RunnerName        string `json:"RunnerName"`
	RunnerMessage     string `json:"RunnerMessage"`
	RunnerStackTrace  string `json:"RunnerStackTrace"`
	ExecutionStatusID int    `json:"ExecutionStatusId"`
	StartDate         string `json:"StartDate"`
	ReleaseID         *int   `json:"ReleaseId,omitempty"`
	TestSetID         *int   `json:"TestSetId,omitempty"`
}

// RecordedTestRun is the part of Spira's answer we keep.
type RecordedTestRun struct {
	TestRunID int `json:"TestRunId"`
}

// Project is the part of a Spira project we display.
type Project struct {
	ProjectID int    `json:"ProjectId"`
	Name      string `json:"Name"`
}

// FormatDate renders a Unix millisecond timestamp in the WCF date wrapper Spira expects.
func FormatDate(unixMilli int64) string {
	return fmt.Sprintf("/Date(%d-0000)/", unixMilli)
}
