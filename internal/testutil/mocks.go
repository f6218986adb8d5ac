package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/supersede/internal/core"
)

// FakeRunService implements core.RunService with scripted responses.
// It is safe for concurrent use by parallel pipelines.
type FakeRunService struct {
	mu sync.Mutex

	runs        map[int64]core.RunIdentity
	getRunErr   error
	listed      map[core.WorkflowTarget][]core.RunIdentity
	listErrs    map[core.WorkflowTarget]error
	jobs        map[int64][]core.Job
	listJobsErr map[int64]error
	statuses    map[int64][]core.RunStatus
	cancelErrs  map[int64]error

	calls     []MockCall
	cancelled []int64
}

// MockCall records a call to the fake.
type MockCall struct {
	Method    string
	Args      interface{}
	Timestamp time.Time
}

// NewFakeRunService creates an empty fake.
func NewFakeRunService() *FakeRunService {
	return &FakeRunService{
		runs:        make(map[int64]core.RunIdentity),
		listed:      make(map[core.WorkflowTarget][]core.RunIdentity),
		listErrs:    make(map[core.WorkflowTarget]error),
		jobs:        make(map[int64][]core.Job),
		listJobsErr: make(map[int64]error),
		statuses:    make(map[int64][]core.RunStatus),
		cancelErrs:  make(map[int64]error),
	}
}

// WithRun registers a run returned by GetRun.
func (f *FakeRunService) WithRun(run core.RunIdentity) *FakeRunService {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.ID] = run
	return f
}

// WithGetRunError makes every GetRun call fail.
func (f *FakeRunService) WithGetRunError(err error) *FakeRunService {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getRunErr = err
	return f
}

// WithListedRuns sets the runs ListRuns returns for a target.
func (f *FakeRunService) WithListedRuns(target core.WorkflowTarget, runs ...core.RunIdentity) *FakeRunService {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed[target] = runs
	return f
}

// WithListRunsError makes ListRuns fail for a target.
func (f *FakeRunService) WithListRunsError(target core.WorkflowTarget, err error) *FakeRunService {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErrs[target] = err
	return f
}

// WithJobs sets the jobs of a run.
func (f *FakeRunService) WithJobs(runID int64, jobs ...core.Job) *FakeRunService {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[runID] = jobs
	return f
}

// WithListJobsError makes ListJobs fail for a run.
func (f *FakeRunService) WithListJobsError(runID int64, err error) *FakeRunService {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listJobsErr[runID] = err
	return f
}

// WithJobStatuses scripts the statuses GetJob reports for a job, one per
// call. The last status repeats once the script is exhausted.
func (f *FakeRunService) WithJobStatuses(jobID int64, statuses ...core.RunStatus) *FakeRunService {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[jobID] = statuses
	return f
}

// WithCancelError makes CancelRun fail for a run.
func (f *FakeRunService) WithCancelError(runID int64, err error) *FakeRunService {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelErrs[runID] = err
	return f
}

// GetRun returns the registered run.
func (f *FakeRunService) GetRun(_ context.Context, runID int64) (*core.RunIdentity, error) {
	f.recordCall("GetRun", runID)
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getRunErr != nil {
		return nil, f.getRunErr
	}
	run, ok := f.runs[runID]
	if !ok {
		return nil, core.ErrNotFound("run", "unknown")
	}
	return &run, nil
}

// ListRuns returns the runs registered for target.
func (f *FakeRunService) ListRuns(_ context.Context, target core.WorkflowTarget, branch string) ([]core.RunIdentity, error) {
	f.recordCall("ListRuns", string(target)+"@"+branch)
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.listErrs[target]; err != nil {
		return nil, err
	}
	return append([]core.RunIdentity(nil), f.listed[target]...), nil
}

// ListJobs returns the jobs registered for a run.
func (f *FakeRunService) ListJobs(_ context.Context, runID int64) ([]core.Job, error) {
	f.recordCall("ListJobs", runID)
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.listJobsErr[runID]; err != nil {
		return nil, err
	}
	return append([]core.Job(nil), f.jobs[runID]...), nil
}

// GetJob returns the job with the next scripted status.
func (f *FakeRunService) GetJob(_ context.Context, jobID int64) (*core.Job, error) {
	f.recordCall("GetJob", jobID)
	f.mu.Lock()
	defer f.mu.Unlock()

	var job *core.Job
	for _, jobs := range f.jobs {
		for i := range jobs {
			if jobs[i].ID == jobID {
				j := jobs[i]
				job = &j
			}
		}
	}
	if job == nil {
		return nil, core.ErrNotFound("job", "unknown")
	}

	if script := f.statuses[jobID]; len(script) > 0 {
		job.Status = script[0]
		if len(script) > 1 {
			f.statuses[jobID] = script[1:]
		}
	}
	return job, nil
}

// CancelRun records the cancellation.
func (f *FakeRunService) CancelRun(_ context.Context, runID int64) error {
	f.recordCall("CancelRun", runID)
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.cancelErrs[runID]; err != nil {
		return err
	}
	f.cancelled = append(f.cancelled, runID)
	return nil
}

// Cancelled returns the ids of successfully cancelled runs in call order.
func (f *FakeRunService) Cancelled() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.cancelled...)
}

// Calls returns all recorded calls.
func (f *FakeRunService) Calls() []MockCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MockCall(nil), f.calls...)
}

// CallCount returns the number of calls to a method.
func (f *FakeRunService) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, c := range f.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

func (f *FakeRunService) recordCall(method string, args interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, MockCall{
		Method:    method,
		Args:      args,
		Timestamp: time.Now(),
	})
}

var _ core.RunService = (*FakeRunService)(nil)

// FakeClock advances only when waited on. After fires immediately after
// moving the clock forward, so poll loops run without real sleeps.
type FakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

// NewFakeClock creates a clock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After advances the clock by d and returns a fired channel.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

// Waits returns every duration waited on.
func (c *FakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}
