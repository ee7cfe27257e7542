package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// KeyDelimiter separates nested keys. Test case names are free text and may contain
// dots, so viper's default "." cannot be used.
const KeyDelimiter = "::"

// Settings is the reporter configuration as supplied by the caller.
type Settings struct {
	URL       string         `mapstructure:"url"`
	Username  string         `mapstructure:"username"`
	Token     string         `mapstructure:"token"`
	ProjectID *int           `mapstructure:"projectId"`
	ReleaseID *int           `mapstructure:"releaseId"`
	TestSetID *int           `mapstructure:"testSetId"`
	TestCases map[string]int `mapstructure:"testCases"`
}

// SlackOptions configures the post-flush Slack summary.
type SlackOptions struct {
	Enabled bool   `mapstructure:"enabled"`
	Channel string `mapstructure:"channel"`
}

// MetricsOptions configures the Prometheus Pushgateway push.
type MetricsOptions struct {
	Pushgateway string `mapstructure:"pushgateway"`
	Job         string `mapstructure:"job"`
}

// Options holds everything in the config file that is not Spira credentials.
type Options struct {
	Timeout        time.Duration  `mapstructure:"timeout"`
	MaxConcurrency int            `mapstructure:"max_concurrency"`
	Verbose        bool           `mapstructure:"verbose"`
	LogFile        string         `mapstructure:"log_file"`
	Metrics        MetricsOptions `mapstructure:"metrics"`
	Notifications  struct {
		Slack SlackOptions `mapstructure:"slack"`
	} `mapstructure:"notifications"`
}

// File is the decoded configuration file.
type File struct {
	Settings `mapstructure:",squash"`
	Options  `mapstructure:",squash"`
}

// New returns a viper instance with the reporter's defaults and environment bindings.
func New() *viper.Viper {
	v := viper.NewWithOptions(viper.KeyDelimiter(KeyDelimiter))

	v.SetEnvPrefix("SPIRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(KeyDelimiter, "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("url", "SPIRA_URL")
	_ = v.BindEnv("username", "SPIRA_USERNAME")
	_ = v.BindEnv("token", "SPIRA_TOKEN")
	_ = v.BindEnv("projectId", "SPIRA_PROJECT_ID")
	_ = v.BindEnv("releaseId", "SPIRA_RELEASE_ID")
	_ = v.BindEnv("testSetId", "SPIRA_TEST_SET_ID")
	_ = v.BindEnv("testCases"+KeyDelimiter+"default", "SPIRA_TEST_CASE_DEFAULT")

	v.SetDefault("timeout", "30s")
	v.SetDefault("max_concurrency", 0)
	v.SetDefault("verbose", false)
	v.SetDefault("log_file", "")
	v.SetDefault("metrics"+KeyDelimiter+"pushgateway", "")
	v.SetDefault("metrics"+KeyDelimiter+"job", "spirareport")
	v.SetDefault("notifications"+KeyDelimiter+"slack"+KeyDelimiter+"enabled", false)
	v.SetDefault("notifications"+KeyDelimiter+"slack"+KeyDelimiter+"channel", "#general")

	return v
}

// Load reads the config file and environment into a File.
// Without an explicit cfgFile, a missing spira.{yaml,json,toml} in the working directory
// is not an error: the environment alone may carry the configuration.
func Load(v *viper.Viper, cfgFile string) (File, error) {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("spira")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return File{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return File{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return f, nil
}
