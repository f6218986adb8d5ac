package config

const (
	// DefaultPollInterval is the wait between gate job status checks.
	DefaultPollInterval = "10s"

	// DefaultAPIURL is the public GitHub REST endpoint.
	DefaultAPIURL = "https://api.github.com/"

	// DefaultAPITimeout bounds a single API request.
	DefaultAPITimeout = "30s"
)

// ExampleConfigYAML documents every option accepted in .supersede.yaml.
const ExampleConfigYAML = `# supersede configuration
# Action inputs (INPUT_*) and flags override the values below.

# Comma-separated workflow ids or file names to scan; empty scans the
# workflow of the current run.
workflow_id: ""

# Job name to wait for before cancelling; empty disables the wait.
wait_for_job: ""

# Also cancel older runs on the same head commit.
ignore_sha: false

gate:
  poll_interval: 10s
  # 0 waits until the gate job finishes.
  max_wait: 0s

api:
  url: https://api.github.com/
  timeout: 30s

report:
  # Write a YAML summary of the pass to this path.
  path: ""
  # Print a table of the pass after it completes.
  summary: false

log:
  level: info
  format: auto

telemetry:
  enabled: false
  stdout: false
  # OTLP/HTTP metrics endpoint, e.g. http://localhost:4318/v1/metrics
  endpoint: ""
`
