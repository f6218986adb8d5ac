package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// envBindings maps config keys to the environment variables that feed them,
// in lookup order. INPUT_* are action inputs as exported by the runner.
var envBindings = map[string][]string{
	"github_token":       {"INPUT_GITHUB_TOKEN", "SUPERSEDE_GITHUB_TOKEN", "GITHUB_TOKEN"},
	"workflow_id":        {"INPUT_WORKFLOW_ID", "SUPERSEDE_WORKFLOW_ID"},
	"wait_for_job":       {"INPUT_WAIT_FOR_JOB", "SUPERSEDE_WAIT_FOR_JOB"},
	"ignore_sha":         {"INPUT_IGNORE_SHA", "SUPERSEDE_IGNORE_SHA"},
	"gate.poll_interval": {"INPUT_POLL_INTERVAL", "SUPERSEDE_GATE_POLL_INTERVAL"},
	"gate.max_wait":      {"INPUT_MAX_WAIT", "SUPERSEDE_GATE_MAX_WAIT"},
	"api.url":            {"SUPERSEDE_API_URL", "GITHUB_API_URL"},
	"report.path":        {"INPUT_REPORT", "SUPERSEDE_REPORT_PATH"},
	"runner.actions":     {"GITHUB_ACTIONS"},
	"runner.repository":  {"GITHUB_REPOSITORY"},
	"runner.run_id":      {"GITHUB_RUN_ID"},
	"runner.sha":         {"GITHUB_SHA"},
	"runner.ref":         {"GITHUB_REF"},
	"runner.event_name":  {"GITHUB_EVENT_NAME"},
	"runner.event_path":  {"GITHUB_EVENT_PATH"},
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "SUPERSEDE",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "SUPERSEDE",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Action inputs (INPUT_*) and runner variables (GITHUB_*)
// 3. Environment variables (SUPERSEDE_*)
// 4. Config file (.supersede.yaml in the working directory or ~/.config/supersede)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := l.v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	l.setDefaults()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".supersede")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "supersede"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.WorkflowID = strings.TrimSpace(cfg.WorkflowID)
	cfg.WaitForJob = strings.TrimSpace(cfg.WaitForJob)
	cfg.IgnoreSHA = inputBool(l.v.Get("ignore_sha"))

	return &cfg, nil
}

// inputBool interprets a boolean option. Flags and the config file yield a
// bool; environment inputs yield a string, which is true only when it is
// exactly "true".
func inputBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return false
	}
}

// setDefaults configures default values. Inside GitHub Actions the log
// defaults to workflow commands at debug level; the runner only shows
// ::debug:: lines when step debug logging is on.
func (l *Loader) setDefaults() {
	if l.v.GetBool("runner.actions") {
		l.v.SetDefault("log.level", "debug")
		l.v.SetDefault("log.format", "actions")
	} else {
		l.v.SetDefault("log.level", "info")
		l.v.SetDefault("log.format", "auto")
	}

	l.v.SetDefault("workflow_id", "")
	l.v.SetDefault("wait_for_job", "")
	l.v.SetDefault("ignore_sha", false)

	l.v.SetDefault("gate.poll_interval", DefaultPollInterval)
	l.v.SetDefault("gate.max_wait", "0s")

	l.v.SetDefault("api.url", DefaultAPIURL)
	l.v.SetDefault("api.timeout", DefaultAPITimeout)

	l.v.SetDefault("report.path", "")
	l.v.SetDefault("report.summary", false)

	l.v.SetDefault("telemetry.enabled", false)
	l.v.SetDefault("telemetry.stdout", false)
	l.v.SetDefault("telemetry.endpoint", "")
}
