package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/supersede/internal/adapters/github"
	"github.com/hugo-lorenzo-mato/supersede/internal/config"
	"github.com/hugo-lorenzo-mato/supersede/internal/event"
	"github.com/hugo-lorenzo-mato/supersede/internal/logging"
	"github.com/hugo-lorenzo-mato/supersede/internal/report"
	"github.com/hugo-lorenzo-mato/supersede/internal/service/supersede"
	"github.com/hugo-lorenzo-mato/supersede/internal/telemetry"
)

func runPass(cmd *cobra.Command, _ []string) error {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return pass(ctx, cfg, cmd.OutOrStdout())
}

// pass performs one cancellation pass with a fully loaded configuration.
func pass(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if err := config.NewValidator().Validate(cfg); err != nil {
		return err
	}

	started := time.Now()
	invocation := uuid.NewString()
	logger := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  out,
		Secrets: []string{cfg.GitHubToken},
	}).WithInvocation(invocation)

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Stdout:   cfg.Telemetry.Stdout,
		Endpoint: cfg.Telemetry.Endpoint,
	}, "supersede", appVersion)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("flushing telemetry", "error", err)
		}
	}()
	metrics := telemetry.NewMetrics(telemetry.Meter())

	ev, err := event.Load(cfg.Runner.EventPath, cfg.Runner.Ref, cfg.Runner.SHA)
	if err != nil {
		return err
	}
	evCtx, err := event.Resolve(ev)
	if err != nil {
		return err
	}
	logger.Debug("Resolved event", "event", ev.Kind(), "event_name", cfg.Runner.EventName)

	client, err := github.NewClient(cfg.GitHubToken, cfg.Runner.Owner(), cfg.Runner.Name())
	if err != nil {
		return err
	}
	if _, err := client.WithBaseURL(cfg.API.URL); err != nil {
		return err
	}
	client.WithTimeout(cfg.API.Timeout).WithMetrics(metrics)

	gate := supersede.NewGateWaiter(client, logger).
		WithInterval(cfg.Gate.PollInterval).
		WithMaxWait(cfg.Gate.MaxWait).
		WithMetrics(metrics)
	dispatcher := supersede.NewDispatcher(client, logger).WithMetrics(metrics)
	orchestrator := supersede.NewOrchestrator(client, gate, dispatcher, logger).WithMetrics(metrics)

	summary, err := orchestrator.Run(ctx, supersede.Request{
		Context:    evCtx,
		RunID:      cfg.Runner.RunID,
		Targets:    cfg.WorkflowID,
		WaitForJob: cfg.WaitForJob,
		IgnoreSHA:  cfg.IgnoreSHA,
	})
	if err != nil {
		return err
	}

	if cfg.Report.Path != "" {
		r := report.FromSummary(report.Meta{
			Invocation: invocation,
			Repository: client.Repo(),
			StartedAt:  started,
			FinishedAt: time.Now(),
		}, summary)
		if err := report.Write(cfg.Report.Path, r); err != nil {
			// A lost report does not fail the pass.
			logger.Warn("writing report", "path", cfg.Report.Path, "error", err)
		}
	}

	if cfg.Report.Summary {
		if err := supersede.WriteTextReport(out, summary); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}

	return nil
}
