package event

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/supersede/internal/core"
)

const pullRequestPayload = `{
  "action": "synchronize",
  "number": 5,
  "pull_request": {
    "id": 1005,
    "number": 5,
    "head": {"ref": "feature/login", "sha": "abc123"},
    "base": {"ref": "main", "sha": "fff000"}
  }
}`

const workflowRunPayload = `{
  "action": "completed",
  "workflow_run": {
    "id": 900,
    "head_branch": "feature/deploy",
    "head_sha": "def456",
    "status": "completed"
  }
}`

func TestParse_PullRequest(t *testing.T) {
	ev, err := Parse([]byte(pullRequestPayload), "refs/pull/5/merge", "mergesha")
	require.NoError(t, err)
	assert.Equal(t, PullRequestEvent{HeadRef: "feature/login", HeadSHA: "abc123"}, ev)

	ctx, err := Resolve(ev)
	require.NoError(t, err)
	assert.Equal(t, Context{Branch: "feature/login", HeadSHA: "abc123"}, ctx)
}

func TestParse_WorkflowRun(t *testing.T) {
	ev, err := Parse([]byte(workflowRunPayload), "refs/heads/main", "mainsha")
	require.NoError(t, err)
	assert.Equal(t, "workflow_run", ev.Kind())

	ctx, err := Resolve(ev)
	require.NoError(t, err)
	assert.Equal(t, Context{Branch: "feature/deploy", HeadSHA: "def456"}, ctx)
}

func TestParse_PullRequestWinsOverWorkflowRun(t *testing.T) {
	both := `{"pull_request": {"head": {"ref": "pr-branch", "sha": "prsha"}},
	          "workflow_run": {"head_branch": "wr-branch", "head_sha": "wrsha"}}`
	ev, err := Parse([]byte(both), "refs/heads/x", "x")
	require.NoError(t, err)
	assert.Equal(t, "pull_request", ev.Kind())
}

func TestParse_Push(t *testing.T) {
	ev, err := Parse([]byte(`{"ref": "refs/heads/main", "after": "a1"}`), "refs/heads/main", "a1")
	require.NoError(t, err)
	assert.Equal(t, PushEvent{Ref: "refs/heads/main", SHA: "a1"}, ev)

	ctx, err := Resolve(ev)
	require.NoError(t, err)
	assert.Equal(t, Context{Branch: "main", HeadSHA: "a1"}, ctx)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{not json`), "refs/heads/main", "a1")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

func TestResolve_MalformedReference(t *testing.T) {
	for _, ref := range []string{"refs/tags/v1.0.0", "main", "refs/heads/", ""} {
		_, err := Resolve(PushEvent{Ref: ref, SHA: "a1"})
		require.Error(t, err, "ref %q", ref)
		assert.ErrorIs(t, err, core.ErrMalformedReference(ref))
	}
}

func TestResolve_BranchWithSlashes(t *testing.T) {
	ctx, err := Resolve(PushEvent{Ref: "refs/heads/release/2024.1", SHA: "s"})
	require.NoError(t, err)
	assert.Equal(t, "release/2024.1", ctx.Branch)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "event.json")
	require.NoError(t, os.WriteFile(path, []byte(pullRequestPayload), 0o600))

	ev, err := Load(path, "refs/pull/5/merge", "mergesha")
	require.NoError(t, err)
	assert.Equal(t, "pull_request", ev.Kind())
}

func TestLoad_MissingFileIsPush(t *testing.T) {
	ev, err := Load(filepath.Join(t.TempDir(), "absent.json"), "refs/heads/dev", "d1")
	require.NoError(t, err)
	assert.Equal(t, PushEvent{Ref: "refs/heads/dev", SHA: "d1"}, ev)

	ev, err = Load("", "refs/heads/dev", "d1")
	require.NoError(t, err)
	assert.Equal(t, "push", ev.Kind())
}
