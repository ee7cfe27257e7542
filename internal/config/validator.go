package config

import (
	"fmt"
	"strings"
)

// Problem is a single configuration defect.
type Problem struct {
	Field   string
	Message string
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		lines[i] = p.Field + ": " + p.Message
	}
	return fmt.Sprintf("configuration validation failed:\n  %s", strings.Join(lines, "\n  "))
}

// Has reports whether field has a problem.
func (e *ValidationError) Has(field string) bool {
	for _, p := range e.Problems {
		if p.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Problems = append(e.Problems, Problem{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) errOrNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// ValidateOptions checks the non-credential options.
func ValidateOptions(o Options) error {
	verr := &ValidationError{}

	if o.Timeout <= 0 {
		verr.add("timeout", "must be positive, got: %v", o.Timeout)
	}

	if o.MaxConcurrency < 0 {
		verr.add("max_concurrency", "must not be negative, got: %d", o.MaxConcurrency)
	}

	if o.Notifications.Slack.Enabled && o.Notifications.Slack.Channel == "" {
		verr.add("notifications.slack.channel", "is required when slack notifications are enabled")
	}

	return verr.errOrNil()
}
