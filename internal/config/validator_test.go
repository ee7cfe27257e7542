package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOptions(t *testing.T) {
	valid := func() Options {
		return Options{Timeout: 30 * time.Second}
	}

	tests := []struct {
		name      string
		mutate    func(*Options)
		wantError bool
		errMsg    string
	}{
		{
			name:   "Valid Configuration",
			mutate: func(o *Options) {},
		},
		{
			name:      "Zero Timeout",
			mutate:    func(o *Options) { o.Timeout = 0 },
			wantError: true,
			errMsg:    "timeout: must be positive",
		},
		{
			name:      "Negative Concurrency",
			mutate:    func(o *Options) { o.MaxConcurrency = -1 },
			wantError: true,
			errMsg:    "max_concurrency: must not be negative",
		},
		{
			name: "Slack Without Channel",
			mutate: func(o *Options) {
				o.Notifications.Slack.Enabled = true
			},
			wantError: true,
			errMsg:    "notifications.slack.channel",
		},
		{
			name: "Slack With Channel",
			mutate: func(o *Options) {
				o.Notifications.Slack.Enabled = true
				o.Notifications.Slack.Channel = "#qa"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.mutate(&o)

			err := ValidateOptions(o)
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), "configuration validation failed:"))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidationError(t *testing.T) {
	verr := &ValidationError{}
	assert.NoError(t, verr.errOrNil())

	verr.add("url", "is required")
	verr.add("token", "is required")

	assert.True(t, verr.Has("url"))
	assert.False(t, verr.Has("username"))
	assert.Equal(t, "configuration validation failed:\n  url: is required\n  token: is required", verr.Error())
}
