package supersede

import (
	"context"
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/supersede/internal/core"
	"github.com/hugo-lorenzo-mato/supersede/internal/logging"
	"github.com/hugo-lorenzo-mato/supersede/internal/telemetry"
)

// DefaultGateInterval is the wait between gate job status checks.
const DefaultGateInterval = 10 * time.Second

// Clock abstracts time for the gate poll loop.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// GateState is the state of a gate wait.
type GateState string

const (
	GateIdle     GateState = "idle"
	GatePolling  GateState = "polling"
	GateCleared  GateState = "cleared"
	GateTimedOut GateState = "timed_out"
)

// GateResult describes how a gate wait ended.
type GateResult struct {
	State GateState
	// Job is the gate job waited on, nil when none was in progress.
	Job   *core.Job
	Polls int
}

// GateWaiter holds cancellation back while a named job of a duplicate run
// is in progress.
type GateWaiter struct {
	svc      core.RunService
	clock    Clock
	interval time.Duration
	maxWait  time.Duration
	logger   *logging.Logger
	metrics  *telemetry.Metrics
}

// NewGateWaiter creates a gate waiter polling every DefaultGateInterval
// with no upper bound.
func NewGateWaiter(svc core.RunService, logger *logging.Logger) *GateWaiter {
	return &GateWaiter{
		svc:      svc,
		clock:    realClock{},
		interval: DefaultGateInterval,
		logger:   logger,
		metrics:  telemetry.NopMetrics(),
	}
}

// WithInterval sets the poll interval.
func (g *GateWaiter) WithInterval(d time.Duration) *GateWaiter {
	if d > 0 {
		g.interval = d
	}
	return g
}

// WithMaxWait bounds the wait. Zero waits until the job finishes.
func (g *GateWaiter) WithMaxWait(d time.Duration) *GateWaiter {
	g.maxWait = d
	return g
}

// WithClock replaces the wall clock.
func (g *GateWaiter) WithClock(c Clock) *GateWaiter {
	g.clock = c
	return g
}

// WithMetrics records the time spent waiting on m.
func (g *GateWaiter) WithMetrics(m *telemetry.Metrics) *GateWaiter {
	g.metrics = m
	return g
}

// Wait blocks until no job named jobName is in progress in the duplicates.
// Only the first in-progress match across all duplicates is waited on, and
// the duplicates are not re-evaluated afterwards. An empty jobName clears
// immediately without API calls.
func (g *GateWaiter) Wait(ctx context.Context, duplicates []core.RunIdentity, jobName string) (GateResult, error) {
	result := GateResult{State: GateIdle}
	if jobName == "" {
		result.State = GateCleared
		return result, nil
	}

	job, err := g.findGateJob(ctx, duplicates, jobName)
	if err != nil {
		return result, err
	}
	if job == nil {
		result.State = GateCleared
		return result, nil
	}

	result.State = GatePolling
	result.Job = job
	logger := g.logger.WithRun(job.RunID)
	logger.Info("Waiting for job to finish", "job", job.Name, "job_id", job.ID)

	start := g.clock.Now()
	defer func() {
		g.metrics.GateWait.Record(ctx, g.clock.Now().Sub(start).Seconds())
	}()

	for {
		if g.maxWait > 0 && g.clock.Now().Sub(start) >= g.maxWait {
			result.State = GateTimedOut
			return result, core.ErrGateTimeout(job.ID, g.maxWait)
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-g.clock.After(g.interval):
		}

		current, err := g.svc.GetJob(ctx, job.ID)
		result.Polls++
		if err != nil {
			return result, core.ErrQuery(core.CodeGetJobFailed,
				fmt.Sprintf("checking gate job %d", job.ID)).WithCause(err)
		}
		result.Job = current

		logger.Debug("Gate job status", "job_id", current.ID, "status", string(current.Status))
		if current.Status != core.RunStatusInProgress {
			result.State = GateCleared
			return result, nil
		}
	}
}

// findGateJob lists the jobs of every duplicate and returns the first
// in-progress job named jobName, in run order.
func (g *GateWaiter) findGateJob(ctx context.Context, duplicates []core.RunIdentity, jobName string) (*core.Job, error) {
	var matches []core.Job
	for _, run := range duplicates {
		jobs, err := g.svc.ListJobs(ctx, run.ID)
		if err != nil {
			return nil, core.ErrQuery(core.CodeListJobsFailed,
				fmt.Sprintf("listing jobs of run %d", run.ID)).WithCause(err)
		}

		for _, job := range jobs {
			if job.Name != jobName {
				continue
			}
			if job.RunID == 0 {
				job.RunID = run.ID
			}
			g.logger.WithRun(run.ID).Debug("Gate job found", "job_id", job.ID, "status", string(job.Status))
			matches = append(matches, job)
		}
	}

	for i := range matches {
		if matches[i].Status == core.RunStatusInProgress {
			return &matches[i], nil
		}
	}
	return nil, nil
}
