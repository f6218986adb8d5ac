package core

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// BranchRefPrefix is the ref prefix of a branch push.
const BranchRefPrefix = "refs/heads/"

// RunStatus is the lifecycle status of a workflow run or job.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusWaiting    RunStatus = "waiting"
	RunStatusRequested  RunStatus = "requested"
	RunStatusPending    RunStatus = "pending"
)

// IsCompleted reports whether the status is terminal.
func (s RunStatus) IsCompleted() bool {
	return s == RunStatusCompleted
}

// RunIdentity is a read-only snapshot of one workflow run.
type RunIdentity struct {
	ID            int64
	WorkflowID    int64
	PullRequestID *int64 // first associated pull request, nil outside PR context
	HeadSHA       string
	HeadBranch    string
	Status        RunStatus
	CreatedAt     time.Time
	HTMLURL       string
}

// HasPullRequest reports whether the run is associated with a pull request.
func (r RunIdentity) HasPullRequest() bool {
	return r.PullRequestID != nil
}

// SamePullRequest reports whether both runs belong to the same pull request.
// Runs without a pull request never match.
func (r RunIdentity) SamePullRequest(other RunIdentity) bool {
	if r.PullRequestID == nil || other.PullRequestID == nil {
		return false
	}
	return *r.PullRequestID == *other.PullRequestID
}

// CurrentRun is the run of this invocation.
type CurrentRun struct {
	RunIdentity
}

// Job is one job of a workflow run.
type Job struct {
	ID     int64
	RunID  int64
	Name   string
	Status RunStatus
}

// WorkflowTarget identifies a workflow definition, either by numeric id or
// by file name (e.g. "ci.yml").
type WorkflowTarget string

// NumericID returns the numeric workflow id when the target is one.
func (t WorkflowTarget) NumericID() (int64, bool) {
	id, err := strconv.ParseInt(string(t), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ParseTargets splits a comma-separated workflow id list. All whitespace is
// removed first. An empty list falls back to the given workflow id.
func ParseTargets(raw string, fallback int64) []WorkflowTarget {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	var targets []WorkflowTarget
	for _, part := range strings.Split(stripped, ",") {
		if part == "" {
			continue
		}
		targets = append(targets, WorkflowTarget(part))
	}

	if len(targets) == 0 {
		return []WorkflowTarget{WorkflowTarget(strconv.FormatInt(fallback, 10))}
	}
	return targets
}
