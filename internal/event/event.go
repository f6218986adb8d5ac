// Package event resolves the branch and head commit of the current run from
// the triggering event.
//
// Three event shapes are recognised, in priority order: a payload carrying a
// pull request, a payload carrying a workflow run (the invocation was
// triggered by another workflow completing), and anything else, which is
// treated as a plain branch push described by the ref and sha of the run.
package event

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"

	"github.com/hugo-lorenzo-mato/supersede/internal/core"
	"github.com/hugo-lorenzo-mato/supersede/internal/fsutil"
)

// Event is one of PullRequestEvent, WorkflowRunEvent or PushEvent.
type Event interface {
	Kind() string
	isEvent()
}

// PullRequestEvent carries the head of a pull request.
type PullRequestEvent struct {
	HeadRef string
	HeadSHA string
}

// WorkflowRunEvent carries the head of the workflow run that triggered this one.
type WorkflowRunEvent struct {
	HeadBranch string
	HeadSHA    string
}

// PushEvent is the fallback: the run's own ref and commit.
type PushEvent struct {
	Ref string
	SHA string
}

func (PullRequestEvent) Kind() string { return "pull_request" }
func (WorkflowRunEvent) Kind() string { return "workflow_run" }
func (PushEvent) Kind() string        { return "push" }

func (PullRequestEvent) isEvent() {}
func (WorkflowRunEvent) isEvent() {}
func (PushEvent) isEvent()        {}

// Context is the normalized branch and head commit of the current run.
type Context struct {
	Branch  string
	HeadSHA string
}

// payload holds the two keys that decide the event shape.
type payload struct {
	PullRequest *github.PullRequest `json:"pull_request"`
	WorkflowRun *github.WorkflowRun `json:"workflow_run"`
}

// Parse decodes a raw event payload. ref and sha are the run's own ref and
// commit, used when the payload is neither a pull request nor a workflow run.
func Parse(data []byte, ref, sha string) (Event, error) {
	var p payload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, core.ErrValidation(core.CodeInvalidEvent, "event payload is not valid JSON").WithCause(err)
		}
	}

	switch {
	case p.PullRequest != nil:
		head := p.PullRequest.GetHead()
		return PullRequestEvent{HeadRef: head.GetRef(), HeadSHA: head.GetSHA()}, nil
	case p.WorkflowRun != nil:
		return WorkflowRunEvent{
			HeadBranch: p.WorkflowRun.GetHeadBranch(),
			HeadSHA:    p.WorkflowRun.GetHeadSHA(),
		}, nil
	default:
		return PushEvent{Ref: ref, SHA: sha}, nil
	}
}

// Load reads the event payload at path. An empty path or a missing file is
// treated as an empty payload.
func Load(path, ref, sha string) (Event, error) {
	if path == "" {
		return Parse(nil, ref, sha)
	}

	data, err := fsutil.ReadOptional(path)
	if err != nil {
		return nil, fmt.Errorf("reading event payload: %w", err)
	}

	return Parse(data, ref, sha)
}

// Resolve maps an event to its branch and head commit.
func Resolve(ev Event) (Context, error) {
	switch e := ev.(type) {
	case PullRequestEvent:
		return Context{Branch: e.HeadRef, HeadSHA: e.HeadSHA}, nil
	case WorkflowRunEvent:
		return Context{Branch: e.HeadBranch, HeadSHA: e.HeadSHA}, nil
	case PushEvent:
		branch, ok := strings.CutPrefix(e.Ref, core.BranchRefPrefix)
		if !ok || branch == "" {
			return Context{}, core.ErrMalformedReference(e.Ref)
		}
		return Context{Branch: branch, HeadSHA: e.SHA}, nil
	default:
		return Context{}, core.ErrValidation(core.CodeInvalidEvent, fmt.Sprintf("unsupported event %T", ev))
	}
}
