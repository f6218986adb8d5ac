package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable the loader reads so the host environment
// (for example a CI runner) does not leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range envBindings {
		for _, env := range envs {
			t.Setenv(env, "")
		}
	}
	t.Setenv("SUPERSEDE_LOG_LEVEL", "")
	t.Setenv("SUPERSEDE_LOG_FORMAT", "")
}

func TestLoader_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "auto" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "auto")
	}
	if cfg.Gate.PollInterval != 10*time.Second {
		t.Errorf("Gate.PollInterval = %v, want 10s", cfg.Gate.PollInterval)
	}
	if cfg.Gate.MaxWait != 0 {
		t.Errorf("Gate.MaxWait = %v, want 0", cfg.Gate.MaxWait)
	}
	if cfg.API.URL != DefaultAPIURL {
		t.Errorf("API.URL = %q, want %q", cfg.API.URL, DefaultAPIURL)
	}
	if cfg.IgnoreSHA {
		t.Error("IgnoreSHA = true, want false")
	}
	if cfg.WorkflowID != "" || cfg.WaitForJob != "" {
		t.Errorf("expected empty workflow_id/wait_for_job, got %q/%q", cfg.WorkflowID, cfg.WaitForJob)
	}
}

func TestLoader_ActionInputs(t *testing.T) {
	clearEnv(t)
	t.Setenv("INPUT_GITHUB_TOKEN", "ghs_input")
	t.Setenv("INPUT_WORKFLOW_ID", " 123, ci.yml ")
	t.Setenv("INPUT_WAIT_FOR_JOB", "smoke-test")
	t.Setenv("INPUT_IGNORE_SHA", "true")
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("GITHUB_REPOSITORY", "octo/hello")
	t.Setenv("GITHUB_RUN_ID", "100")
	t.Setenv("GITHUB_SHA", "abc")
	t.Setenv("GITHUB_REF", "refs/heads/main")
	t.Setenv("GITHUB_EVENT_PATH", "/tmp/event.json")
	t.Setenv("GITHUB_API_URL", "https://ghe.example.com/api/v3")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GitHubToken != "ghs_input" {
		t.Errorf("GitHubToken = %q", cfg.GitHubToken)
	}
	if cfg.WorkflowID != "123, ci.yml" {
		t.Errorf("WorkflowID = %q", cfg.WorkflowID)
	}
	if cfg.WaitForJob != "smoke-test" {
		t.Errorf("WaitForJob = %q", cfg.WaitForJob)
	}
	if !cfg.IgnoreSHA {
		t.Error("IgnoreSHA = false, want true")
	}
	if cfg.Runner.RunID != 100 || cfg.Runner.Owner() != "octo" || cfg.Runner.Name() != "hello" {
		t.Errorf("Runner = %+v", cfg.Runner)
	}
	if cfg.Runner.Ref != "refs/heads/main" || cfg.Runner.SHA != "abc" || cfg.Runner.EventPath != "/tmp/event.json" {
		t.Errorf("Runner = %+v", cfg.Runner)
	}
	if cfg.API.URL != "https://ghe.example.com/api/v3" {
		t.Errorf("API.URL = %q", cfg.API.URL)
	}
	if cfg.Log.Format != "actions" || cfg.Log.Level != "debug" {
		t.Errorf("Log = %+v, want actions/debug inside GitHub Actions", cfg.Log)
	}
}

func TestLoader_TokenFallbackOrder(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_TOKEN", "from-github-token")
	t.Setenv("SUPERSEDE_GITHUB_TOKEN", "from-prefixed")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GitHubToken != "from-prefixed" {
		t.Errorf("GitHubToken = %q, want prefixed variable to win", cfg.GitHubToken)
	}
}

func TestLoader_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "supersede.yaml")
	content := `
workflow_id: "build.yml,deploy.yml"
wait_for_job: deploy
gate:
  poll_interval: 2s
  max_wait: 15m
report:
  path: out/report.yaml
log:
  level: warn
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.WorkflowID != "build.yml,deploy.yml" {
		t.Errorf("WorkflowID = %q", cfg.WorkflowID)
	}
	if cfg.Gate.PollInterval != 2*time.Second || cfg.Gate.MaxWait != 15*time.Minute {
		t.Errorf("Gate = %+v", cfg.Gate)
	}
	if cfg.Report.Path != "out/report.yaml" {
		t.Errorf("Report.Path = %q", cfg.Report.Path)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "supersede.yaml")
	if err := os.WriteFile(path, []byte("wait_for_job: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INPUT_WAIT_FOR_JOB", "from-input")

	cfg, err := NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WaitForJob != "from-input" {
		t.Errorf("WaitForJob = %q, want from-input", cfg.WaitForJob)
	}
}

func TestLoader_IgnoreSHAInput(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"false", false},
		{"True", false},
		{"1", false},
		{"yes", false},
		{" true", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("INPUT_IGNORE_SHA", tt.value)

			cfg, err := NewLoader().Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.IgnoreSHA != tt.want {
				t.Errorf("IgnoreSHA = %v for %q, want %v", cfg.IgnoreSHA, tt.value, tt.want)
			}
		})
	}
}

func TestLoader_IgnoreSHAConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "supersede.yaml")
	if err := os.WriteFile(path, []byte("ignore_sha: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.IgnoreSHA {
		t.Error("IgnoreSHA = false, want true from config file")
	}
}
