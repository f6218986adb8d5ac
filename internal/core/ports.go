package core

import "context"

// RunService is the CI platform's run and job API, bound to one repository.
type RunService interface {
	// GetRun fetches one run including its pull request association.
	GetRun(ctx context.Context, runID int64) (*RunIdentity, error)

	// ListRuns lists runs of a workflow definition on a branch, in API order.
	ListRuns(ctx context.Context, workflow WorkflowTarget, branch string) ([]RunIdentity, error)

	// ListJobs lists the jobs of a run.
	ListJobs(ctx context.Context, runID int64) ([]Job, error)

	// GetJob fetches the current state of one job.
	GetJob(ctx context.Context, jobID int64) (*Job, error)

	// CancelRun requests cancellation of a run. It does not wait for the
	// run to reach a terminal state.
	CancelRun(ctx context.Context, runID int64) error
}
