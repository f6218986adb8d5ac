package config

import (
	"strings"
	"time"
)

// Config holds everything one invocation needs. It is assembled once at
// startup; nothing below the command layer reads the environment.
type Config struct {
	// Action inputs.
	GitHubToken string `mapstructure:"github_token"`
	WorkflowID  string `mapstructure:"workflow_id"`
	WaitForJob  string `mapstructure:"wait_for_job"`
	// IgnoreSHA is decoded by the loader: action inputs are strings and only
	// "true" enables it.
	IgnoreSHA   bool   `mapstructure:"-"`

	Gate      GateConfig      `mapstructure:"gate"`
	API       APIConfig       `mapstructure:"api"`
	Report    ReportConfig    `mapstructure:"report"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Ambient values supplied by the CI runner.
	Runner RunnerConfig `mapstructure:"runner"`
}

// GateConfig configures the wait for a gate job.
type GateConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// MaxWait bounds the wait; zero waits until the job leaves in_progress.
	MaxWait time.Duration `mapstructure:"max_wait"`
}

// APIConfig configures the CI platform API client.
type APIConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ReportConfig configures the optional run report.
type ReportConfig struct {
	Path string `mapstructure:"path"`
	// Summary prints a text table of the pass to stdout.
	Summary bool `mapstructure:"summary"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig configures OpenTelemetry metrics.
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Stdout   bool   `mapstructure:"stdout"`
	Endpoint string `mapstructure:"endpoint"` // OTLP/HTTP URL
}

// RunnerConfig holds the invoking environment's description of this run.
type RunnerConfig struct {
	Actions    bool   `mapstructure:"actions"`
	Repository string `mapstructure:"repository"` // owner/name
	RunID      int64  `mapstructure:"run_id"`
	SHA        string `mapstructure:"sha"`
	Ref        string `mapstructure:"ref"`
	EventName  string `mapstructure:"event_name"`
	EventPath  string `mapstructure:"event_path"`
}

// Owner returns the repository owner.
func (r RunnerConfig) Owner() string {
	owner, _, _ := strings.Cut(r.Repository, "/")
	return owner
}

// Name returns the repository name.
func (r RunnerConfig) Name() string {
	_, name, _ := strings.Cut(r.Repository, "/")
	return name
}
