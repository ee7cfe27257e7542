package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	t.Run("connected", func(t *testing.T) {
		_, server := newFakeSpira(t)
		cfg := writeConfig(t, server.URL)

		out, _, err := executeCommand(t, nil, "check", "--config", cfg)
		require.NoError(t, err)
		assert.Contains(t, out, "Connected to Spira project 7 (Calculator)")
		assert.Contains(t, out, "as fred")
		assert.Contains(t, out, "Test case mappings: 1, default TC100")
	})

	t.Run("unauthorized", func(t *testing.T) {
		f, server := newFakeSpira(t)
		f.status = 401
		cfg := writeConfig(t, server.URL)

		_, _, err := executeCommand(t, nil, "check", "--config", cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to reach Spira project 7")
	})

	t.Run("incomplete", func(t *testing.T) {
		out, _, err := executeCommand(t, nil, "check")
		require.Error(t, err)
		assert.ErrorIs(t, err, errIncomplete)
		assert.Contains(t, out, "projectId: is required")
	})
}
