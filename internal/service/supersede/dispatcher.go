package supersede

import (
	"context"

	"github.com/hugo-lorenzo-mato/supersede/internal/core"
	"github.com/hugo-lorenzo-mato/supersede/internal/logging"
	"github.com/hugo-lorenzo-mato/supersede/internal/telemetry"
)

// CancelOutcome is the result of one cancel request.
type CancelOutcome struct {
	Run core.RunIdentity
	Err error
}

// Cancelled reports whether the request was accepted.
func (o CancelOutcome) Cancelled() bool {
	return o.Err == nil
}

// Dispatcher issues cancel requests for duplicate runs.
type Dispatcher struct {
	svc     core.RunService
	logger  *logging.Logger
	metrics *telemetry.Metrics
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(svc core.RunService, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		svc:     svc,
		logger:  logger,
		metrics: telemetry.NopMetrics(),
	}
}

// WithMetrics records cancellations on m.
func (d *Dispatcher) WithMetrics(m *telemetry.Metrics) *Dispatcher {
	d.metrics = m
	return d
}

// Dispatch cancels every run in order. A failed request is logged and
// recorded in its outcome; the remaining runs are still attempted. Failed
// requests are not retried.
func (d *Dispatcher) Dispatch(ctx context.Context, duplicates []core.RunIdentity) []CancelOutcome {
	outcomes := make([]CancelOutcome, 0, len(duplicates))

	for _, run := range duplicates {
		logger := d.logger.WithRun(run.ID).With(
			"head_sha", run.HeadSHA,
			"status", string(run.Status),
			"url", run.HTMLURL,
		)
		logger.Info("Canceling run")

		outcome := CancelOutcome{Run: run}
		if err := d.svc.CancelRun(ctx, run.ID); err != nil {
			outcome.Err = core.ErrCancellation(run.ID).WithCause(err)
			d.metrics.CancelFailures.Add(ctx, 1)
			logger.Error("Error while canceling run", "error", err)
		} else {
			d.metrics.RunsCancelled.Add(ctx, 1)
			logger.Info("Cancel requested")
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}
