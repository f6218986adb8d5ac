package supersede

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/supersede/internal/core"
	"github.com/hugo-lorenzo-mato/supersede/internal/event"
	"github.com/hugo-lorenzo-mato/supersede/internal/logging"
	"github.com/hugo-lorenzo-mato/supersede/internal/telemetry"
)

// Request describes one cancellation pass.
type Request struct {
	// Context is the resolved branch and head commit of the current run.
	Context event.Context
	RunID   int64
	// Targets is the raw comma-separated workflow list; empty targets the
	// current run's own workflow.
	Targets    string
	WaitForJob string
	IgnoreSHA  bool
}

// PipelineResult is the outcome of one target workflow pipeline.
type PipelineResult struct {
	Target     core.WorkflowTarget
	Candidates []core.RunIdentity
	Duplicates []core.RunIdentity
	Gate       GateResult
	Outcomes   []CancelOutcome
	// Err is set when the pipeline aborted before dispatch.
	Err error
}

// Summary is the outcome of a pass.
type Summary struct {
	CurrentRunID int64
	Branch       string
	HeadSHA      string
	Pipelines    []PipelineResult
}

// Cancelled returns the number of accepted cancel requests.
func (s *Summary) Cancelled() int {
	n := 0
	for _, p := range s.Pipelines {
		for _, o := range p.Outcomes {
			if o.Cancelled() {
				n++
			}
		}
	}
	return n
}

// Failures returns the number of aborted pipelines and failed cancel requests.
func (s *Summary) Failures() int {
	n := 0
	for _, p := range s.Pipelines {
		if p.Err != nil {
			n++
		}
		for _, o := range p.Outcomes {
			if !o.Cancelled() {
				n++
			}
		}
	}
	return n
}

// Orchestrator runs one pipeline per target workflow.
type Orchestrator struct {
	svc        core.RunService
	gate       *GateWaiter
	dispatcher *Dispatcher
	logger     *logging.Logger
	metrics    *telemetry.Metrics
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(svc core.RunService, gate *GateWaiter, dispatcher *Dispatcher, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		svc:        svc,
		gate:       gate,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    telemetry.NopMetrics(),
	}
}

// WithMetrics records pipeline failures on m.
func (o *Orchestrator) WithMetrics(m *telemetry.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// Run executes a pass. Only failing to resolve the current run is returned
// as an error; pipeline failures are logged and reported in the summary.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Summary, error) {
	if req.RunID == 0 {
		return nil, core.ErrValidation(core.CodeMissingRunID, "current run id is not set")
	}

	run, err := o.svc.GetRun(ctx, req.RunID)
	if err != nil {
		if core.IsCategory(err, core.ErrCatAuth) {
			return nil, err
		}
		return nil, core.ErrQuery(core.CodeGetRunFailed,
			fmt.Sprintf("fetching current run %d", req.RunID)).WithCause(err)
	}

	current := core.CurrentRun{RunIdentity: *run}
	if req.Context.HeadSHA != "" {
		current.HeadSHA = req.Context.HeadSHA
	}

	o.logger.Info("Resolved current run",
		"branch", req.Context.Branch,
		"head_sha", current.HeadSHA,
		"run_id", current.ID,
	)
	if !current.HasPullRequest() {
		o.logger.Debug("Current run is not associated with a pull request, nothing is superseded")
	}

	targets := core.ParseTargets(req.Targets, current.WorkflowID)
	summary := &Summary{
		CurrentRunID: current.ID,
		Branch:       req.Context.Branch,
		HeadSHA:      current.HeadSHA,
		Pipelines:    make([]PipelineResult, len(targets)),
	}

	// Pipelines never return an error to the group so one failure does not
	// cancel its siblings.
	var g errgroup.Group
	for i, target := range targets {
		g.Go(func() error {
			summary.Pipelines[i] = o.runPipeline(ctx, current, target, req)
			return nil
		})
	}
	_ = g.Wait()

	o.logger.Info("Cancel Complete.",
		"cancelled", summary.Cancelled(),
		"failures", summary.Failures(),
	)
	return summary, nil
}

func (o *Orchestrator) runPipeline(ctx context.Context, current core.CurrentRun, target core.WorkflowTarget, req Request) PipelineResult {
	result := PipelineResult{Target: target}
	logger := o.logger.WithTarget(string(target))

	fail := func(err error) PipelineResult {
		result.Err = err
		o.metrics.PipelineErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("workflow_id", string(target))))
		logger.Error(fmt.Sprintf("Error while canceling workflow_id %s: %s", target, err))
		return result
	}

	candidates, err := o.svc.ListRuns(ctx, target, req.Context.Branch)
	if err != nil {
		if !core.IsCategory(err, core.ErrCatAuth) {
			err = core.ErrQuery(core.CodeListRunsFailed,
				fmt.Sprintf("listing runs of workflow %s", target)).WithCause(err)
		}
		return fail(err)
	}
	result.Candidates = candidates

	logger.Debug(fmt.Sprintf("Found %d runs total.", len(candidates)))
	for _, r := range candidates {
		logger.Debug("Candidate run", "id", r.ID, "status", string(r.Status))
	}

	result.Duplicates = Classify(current, candidates, ClassifyOptions{IgnoreSHA: req.IgnoreSHA})
	logger.Debug(fmt.Sprintf("Found %d runs to cancel.", len(result.Duplicates)))
	for _, r := range result.Duplicates {
		logger.Debug("Duplicate run", "url", r.HTMLURL)
	}
	if len(result.Duplicates) == 0 {
		result.Gate = GateResult{State: GateCleared}
		return result
	}

	gate, err := o.gate.Wait(ctx, result.Duplicates, req.WaitForJob)
	result.Gate = gate
	if err != nil {
		return fail(err)
	}

	result.Outcomes = o.dispatcher.Dispatch(ctx, result.Duplicates)
	return result
}
