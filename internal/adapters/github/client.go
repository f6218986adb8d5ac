// Package github implements core.RunService on the GitHub Actions REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v57/github"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/oauth2"

	"github.com/hugo-lorenzo-mato/supersede/internal/core"
	"github.com/hugo-lorenzo-mato/supersede/internal/telemetry"
)

const (
	// DefaultTimeout bounds a single API request.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the maximum number of retries for rate-limited queries.
	MaxRetries = 3

	// PageSize is the page size requested from list endpoints.
	PageSize = 100

	// MaxPages stops pagination on very long histories.
	MaxPages = 10
)

// Client wraps the GitHub Actions API for one repository.
type Client struct {
	gh         *github.Client
	repoOwner  string
	repoName   string
	timeout    time.Duration
	newBackOff func() backoff.BackOff
	metrics    *telemetry.Metrics
}

var _ core.RunService = (*Client)(nil)

// NewClient creates a client authenticated with token.
func NewClient(token, owner, repo string) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, core.ErrAuth("github token is empty")
	}
	if owner == "" || repo == "" {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "repository owner and name are required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), ts)

	return &Client{
		gh:         github.NewClient(httpClient),
		repoOwner:  owner,
		repoName:   repo,
		timeout:    DefaultTimeout,
		newBackOff: defaultBackOff,
		metrics:    telemetry.NopMetrics(),
	}, nil
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 2 * time.Minute
	return bo
}

// WithBaseURL points the client at another API root (GHES or a test server).
func (c *Client) WithBaseURL(baseURL string) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "invalid API URL").WithCause(err)
	}
	c.gh.BaseURL = u
	return c, nil
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

// WithBackOff sets the retry policy used for rate-limited queries.
func (c *Client) WithBackOff(fn func() backoff.BackOff) *Client {
	c.newBackOff = fn
	return c
}

// WithMetrics records API calls on m.
func (c *Client) WithMetrics(m *telemetry.Metrics) *Client {
	c.metrics = m
	return c
}

// Repo returns owner/name.
func (c *Client) Repo() string {
	return fmt.Sprintf("%s/%s", c.repoOwner, c.repoName)
}

// GetRun fetches one run.
func (c *Client) GetRun(ctx context.Context, runID int64) (*core.RunIdentity, error) {
	var run *github.WorkflowRun
	err := c.query(ctx, "get_run", func(ctx context.Context) (*github.Response, error) {
		r, resp, err := c.gh.Actions.GetWorkflowRunByID(ctx, c.repoOwner, c.repoName, runID)
		run = r
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	identity := toRunIdentity(run)
	return &identity, nil
}

// ListRuns lists runs of a workflow on a branch. Numeric targets are looked
// up by id, anything else by workflow file name.
func (c *Client) ListRuns(ctx context.Context, workflow core.WorkflowTarget, branch string) ([]core.RunIdentity, error) {
	opts := &github.ListWorkflowRunsOptions{
		Branch:      branch,
		ListOptions: github.ListOptions{PerPage: PageSize},
	}

	var runs []core.RunIdentity
	for page := 1; ; page++ {
		var (
			batch *github.WorkflowRuns
			last  *github.Response
		)
		// The cursor only advances after a successful attempt; a retried
		// rate-limited page is requested again with the same cursor.
		err := c.query(ctx, "list_runs", func(ctx context.Context) (*github.Response, error) {
			var (
				b    *github.WorkflowRuns
				resp *github.Response
				err  error
			)
			if id, ok := workflow.NumericID(); ok {
				b, resp, err = c.gh.Actions.ListWorkflowRunsByID(ctx, c.repoOwner, c.repoName, id, opts)
			} else {
				b, resp, err = c.gh.Actions.ListWorkflowRunsByFileName(ctx, c.repoOwner, c.repoName, string(workflow), opts)
			}
			batch, last = b, resp
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, r := range batch.WorkflowRuns {
			runs = append(runs, toRunIdentity(r))
		}

		opts.Page = nextPage(last)
		if opts.Page == 0 || page >= MaxPages {
			break
		}
	}

	return runs, nil
}

// ListJobs lists the jobs of the latest attempt of a run.
func (c *Client) ListJobs(ctx context.Context, runID int64) ([]core.Job, error) {
	opts := &github.ListWorkflowJobsOptions{
		Filter:      "latest",
		ListOptions: github.ListOptions{PerPage: PageSize},
	}

	var jobs []core.Job
	for page := 1; ; page++ {
		var (
			batch *github.Jobs
			last  *github.Response
		)
		err := c.query(ctx, "list_jobs", func(ctx context.Context) (*github.Response, error) {
			b, resp, err := c.gh.Actions.ListWorkflowJobs(ctx, c.repoOwner, c.repoName, runID, opts)
			batch, last = b, resp
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, j := range batch.Jobs {
			jobs = append(jobs, toJob(j))
		}

		opts.Page = nextPage(last)
		if opts.Page == 0 || page >= MaxPages {
			break
		}
	}

	return jobs, nil
}

// nextPage returns the page after a successful response, or 0 when it was
// the last one.
func nextPage(resp *github.Response) int {
	if resp == nil {
		return 0
	}
	return resp.NextPage
}

// GetJob fetches one job.
func (c *Client) GetJob(ctx context.Context, jobID int64) (*core.Job, error) {
	var job *github.WorkflowJob
	err := c.query(ctx, "get_job", func(ctx context.Context) (*github.Response, error) {
		j, resp, err := c.gh.Actions.GetWorkflowJobByID(ctx, c.repoOwner, c.repoName, jobID)
		job = j
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	j := toJob(job)
	return &j, nil
}

// CancelRun requests cancellation of a run. GitHub answers 202 Accepted,
// which go-github reports as *github.AcceptedError. Failed requests are not
// retried.
func (c *Client) CancelRun(ctx context.Context, runID int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.gh.Actions.CancelWorkflowRunByID(ctx, c.repoOwner, c.repoName, runID)
	c.recordCall(ctx, "cancel_run")

	var accepted *github.AcceptedError
	if err == nil || errors.As(err, &accepted) {
		return nil
	}
	return mapError("cancel run "+strconv.FormatInt(runID, 10), resp, err)
}

// query runs one API call with a per-attempt timeout, retrying only when
// the API reports a rate limit.
func (c *Client) query(ctx context.Context, op string, fn func(context.Context) (*github.Response, error)) error {
	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := fn(attemptCtx)
		c.recordCall(ctx, op)
		if err == nil {
			return nil
		}

		mapped := mapError(op, resp, err)
		if core.IsCategory(mapped, core.ErrCatRateLimit) {
			return mapped
		}
		return backoff.Permanent(mapped)
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), MaxRetries), ctx)
	return backoff.Retry(operation, bo)
}

func (c *Client) recordCall(ctx context.Context, op string) {
	c.metrics.APICalls.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// mapError translates API failures into domain errors.
func mapError(op string, resp *github.Response, err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return core.ErrRateLimit(op + ": rate limited").WithCause(err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return core.ErrTimeout(op + " timed out").WithCause(err)
	}

	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return core.ErrAuth(op + ": credential rejected").WithCause(err)
		case http.StatusNotFound:
			target := ""
			if resp.Request != nil {
				target = resp.Request.URL.Path
			}
			return core.ErrNotFound(op, target).WithCause(err)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

func toRunIdentity(r *github.WorkflowRun) core.RunIdentity {
	identity := core.RunIdentity{
		ID:         r.GetID(),
		WorkflowID: r.GetWorkflowID(),
		HeadSHA:    r.GetHeadSHA(),
		HeadBranch: r.GetHeadBranch(),
		Status:     core.RunStatus(r.GetStatus()),
		CreatedAt:  r.GetCreatedAt().Time,
		HTMLURL:    r.GetHTMLURL(),
	}
	if len(r.PullRequests) > 0 && r.PullRequests[0] != nil {
		prID := r.PullRequests[0].GetID()
		identity.PullRequestID = &prID
	}
	return identity
}

func toJob(j *github.WorkflowJob) core.Job {
	return core.Job{
		ID:     j.GetID(),
		RunID:  j.GetRunID(),
		Name:   j.GetName(),
		Status: core.RunStatus(j.GetStatus()),
	}
}
