package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/supersede/internal/logging"
)

var (
	cfgFile string

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "supersede",
	Short: "Cancel CI workflow runs superseded by the current run",
	Long: `supersede cancels older, still-active runs of the same pull request
as the current GitHub Actions run. It can wait for a named job in those runs
to finish before cancelling them.

Inputs are read from flags, action inputs (INPUT_*), SUPERSEDE_* variables
and .supersede.yaml, in that order. Running 'supersede' without a subcommand
performs one cancellation pass.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPass,
}

// Execute runs the root command and reports a fatal error on failure.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		reportFailure(os.Stdout, os.Stderr, os.Getenv("GITHUB_ACTIONS") == "true", err)
	}
	return err
}

// reportFailure surfaces a fatal error. Inside GitHub Actions it is written
// as an ::error:: command so the step is annotated.
func reportFailure(stdout, stderr io.Writer, actions bool, err error) {
	msg := logging.NewSanitizer().Sanitize(err.Error())
	if actions {
		fmt.Fprintln(stdout, logging.ErrorCommand(msg))
		return
	}
	fmt.Fprintf(stderr, "Error: %s\n", msg)
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// GetVersion returns the application version string.
func GetVersion() string {
	return appVersion
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "",
		"config file (default: .supersede.yaml)")
	flags.String("log-level", "",
		"log level (debug, info, warn, error)")
	flags.String("log-format", "",
		"log format (auto, text, json, actions)")

	local := rootCmd.Flags()
	local.String("workflow-id", "",
		"comma-separated workflow ids or file names (default: the current run's workflow)")
	local.String("wait-for-job", "",
		"job name to wait for in superseded runs before cancelling")
	local.Bool("ignore-sha", false,
		"also cancel runs on the current head commit")
	local.Duration("poll-interval", 0,
		"wait between gate job checks (default 10s)")
	local.Duration("max-wait", 0,
		"give up waiting for the gate job after this long (0 waits indefinitely)")
	local.String("api-url", "",
		"GitHub REST API URL")
	local.String("report", "",
		"write a YAML report of the pass to this path")
	local.Bool("summary", false,
		"print a summary table after the pass")

	// Bind flags to viper (errors are nil when flag exists)
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("workflow_id", local.Lookup("workflow-id"))
	_ = viper.BindPFlag("wait_for_job", local.Lookup("wait-for-job"))
	_ = viper.BindPFlag("ignore_sha", local.Lookup("ignore-sha"))
	_ = viper.BindPFlag("gate.poll_interval", local.Lookup("poll-interval"))
	_ = viper.BindPFlag("gate.max_wait", local.Lookup("max-wait"))
	_ = viper.BindPFlag("api.url", local.Lookup("api-url"))
	_ = viper.BindPFlag("report.path", local.Lookup("report"))
	_ = viper.BindPFlag("report.summary", local.Lookup("summary"))
}
