package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"spirareport/internal/config"
	"spirareport/internal/reporter"
)

// maxErrors bounds the failures listed under a summary.
const maxErrors = 5

// RenderSummary renders the outcome of a flush for the terminal.
func RenderSummary(summary reporter.Summary, err error) string {
	var rows []string
	rows = append(rows, headerStyle.Render("Spira test runs"))

	rows = append(rows, row("Recorded", recordedValue(summary)))
	rows = append(rows, row("Passed", passStyle.Render(fmt.Sprint(summary.Passed))))
	rows = append(rows, row("Failed", countStyle(summary.Failed, failStyle).Render(fmt.Sprint(summary.Failed))))
	if summary.Unknown > 0 {
		rows = append(rows, row("Unknown", warnStyle.Render(fmt.Sprint(summary.Unknown))))
	}
	if len(summary.TestRunIDs) > 0 {
		rows = append(rows, row("Test runs", testRunIDs(summary.TestRunIDs)))
	}
	if summary.Duration > 0 {
		rows = append(rows, row("Duration", mutedStyle.Render(summary.Duration.Round(time.Millisecond).String())))
	}

	if err != nil {
		rows = append(rows, "")
		for _, line := range errorLines(err) {
			rows = append(rows, failStyle.Render("✗ ")+line)
		}
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// RenderProblems lists configuration problems, one per line.
func RenderProblems(err error) string {
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		return failStyle.Render("✗ ") + err.Error()
	}

	lines := []string{warnStyle.Render("Spira reporting is not fully configured:")}
	for _, p := range verr.Problems {
		lines = append(lines, fmt.Sprintf("  %s %s: %s", warnStyle.Render("!"), p.Field, p.Message))
	}
	return strings.Join(lines, "\n")
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func recordedValue(s reporter.Summary) string {
	v := fmt.Sprintf("%d/%d", s.Recorded, s.Submitted)
	if s.Rejected > 0 {
		return failStyle.Render(v) + mutedStyle.Render(fmt.Sprintf(" (%d rejected)", s.Rejected))
	}
	return passStyle.Render(v)
}

func countStyle(n int, style lipgloss.Style) lipgloss.Style {
	if n == 0 {
		return mutedStyle
	}
	return style
}

func testRunIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("TR%d", id)
	}
	return strings.Join(parts, ", ")
}

func errorLines(err error) []string {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}

	var lines []string
	for i, e := range errs {
		if i == maxErrors {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("... and %d more", len(errs)-maxErrors)))
			break
		}
		lines = append(lines, e.Error())
	}
	return lines
}
