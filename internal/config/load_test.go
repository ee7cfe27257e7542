package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
url: https://x.test/api
username: fredbloggs
token: "{XXXX}"
projectId: 1
releaseId: 4
testCases:
  default: 20
  "Equality should be preserved": 21
  "handles v1.2 payloads": 22
timeout: 5s
max_concurrency: 4
notifications:
  slack:
    enabled: true
    channel: "#qa"
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("From File", func(t *testing.T) {
		t.Chdir(t.TempDir())
		path := writeConfig(t, "spira.yaml", sampleConfig)

		f, err := Load(New(), path)
		require.NoError(t, err)

		assert.Equal(t, "https://x.test/api", f.URL)
		assert.Equal(t, "fredbloggs", f.Username)
		assert.Equal(t, "{XXXX}", f.Token)
		require.NotNil(t, f.ProjectID)
		assert.Equal(t, 1, *f.ProjectID)
		require.NotNil(t, f.ReleaseID)
		assert.Equal(t, 4, *f.ReleaseID)
		assert.Nil(t, f.TestSetID)
		assert.Equal(t, 20, f.TestCases["default"])
		assert.Equal(t, 22, f.TestCases["handles v1.2 payloads"])
		assert.Equal(t, 5*time.Second, f.Timeout)
		assert.Equal(t, 4, f.MaxConcurrency)
		assert.True(t, f.Notifications.Slack.Enabled)
		assert.Equal(t, "#qa", f.Notifications.Slack.Channel)
		assert.Equal(t, "spirareport", f.Metrics.Job)

		creds, err := NewCredentials(f.Settings, nil)
		require.NoError(t, err)
		assert.Equal(t, 21, creds.TestCases.Lookup("Equality should be preserved"))
		assert.Equal(t, 22, creds.TestCases.Lookup("Handles v1.2 payloads"))
	})

	t.Run("Discovered In Working Directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "spira.yaml"), []byte(sampleConfig), 0644))
		t.Chdir(dir)

		f, err := Load(New(), "")
		require.NoError(t, err)
		assert.Equal(t, "fredbloggs", f.Username)
	})

	t.Run("Defaults Without File", func(t *testing.T) {
		t.Chdir(t.TempDir())

		f, err := Load(New(), "")
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, f.Timeout)
		assert.Equal(t, 0, f.MaxConcurrency)
		assert.Equal(t, "#general", f.Notifications.Slack.Channel)
		assert.Nil(t, f.ProjectID)
		assert.Nil(t, f.TestCases)
	})

	t.Run("From Env", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("SPIRA_URL", "http://x.test")
		t.Setenv("SPIRA_USERNAME", "u")
		t.Setenv("SPIRA_TOKEN", "t")
		t.Setenv("SPIRA_PROJECT_ID", "9")
		t.Setenv("SPIRA_TEST_SET_ID", "3")
		t.Setenv("SPIRA_TEST_CASE_DEFAULT", "30")
		t.Setenv("SPIRA_TIMEOUT", "1m")

		f, err := Load(New(), "")
		require.NoError(t, err)
		assert.Equal(t, "http://x.test", f.URL)
		require.NotNil(t, f.ProjectID)
		assert.Equal(t, 9, *f.ProjectID)
		require.NotNil(t, f.TestSetID)
		assert.Equal(t, 3, *f.TestSetID)
		assert.Equal(t, 30, f.TestCases["default"])
		assert.Equal(t, time.Minute, f.Timeout)
	})

	t.Run("Env Overrides File", func(t *testing.T) {
		t.Chdir(t.TempDir())
		path := writeConfig(t, "spira.yaml", sampleConfig)
		t.Setenv("SPIRA_TOKEN", "from-env")

		f, err := Load(New(), path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", f.Token)
	})

	t.Run("Dotenv", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SPIRA_USERNAME=from-dotenv\n"), 0644))
		t.Chdir(dir)
		t.Cleanup(func() { os.Unsetenv("SPIRA_USERNAME") })

		f, err := Load(New(), "")
		require.NoError(t, err)
		assert.Equal(t, "from-dotenv", f.Username)
	})

	t.Run("Missing Explicit File", func(t *testing.T) {
		t.Chdir(t.TempDir())

		_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})
}
