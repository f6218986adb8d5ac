package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/supersede/internal/core"
	"github.com/hugo-lorenzo-mato/supersede/internal/service/supersede"
	"github.com/hugo-lorenzo-mato/supersede/internal/testutil"
)

func sampleSummary() *supersede.Summary {
	return &supersede.Summary{
		CurrentRunID: 100,
		Branch:       "feature",
		HeadSHA:      "abc",
		Pipelines: []supersede.PipelineResult{
			{
				Target:     "ci.yml",
				Candidates: []core.RunIdentity{{ID: 90}, {ID: 95}},
				Duplicates: []core.RunIdentity{{ID: 90, HeadSHA: "xyz"}},
				Gate: supersede.GateResult{
					State: supersede.GateCleared,
					Job:   &core.Job{ID: 901, Name: "smoke-test"},
					Polls: 2,
				},
				Outcomes: []supersede.CancelOutcome{
					{Run: core.RunIdentity{ID: 90, HeadSHA: "xyz", HTMLURL: "https://example.test/runs/90"}},
				},
			},
			{
				Target: "broken.yml",
				Err:    core.ErrQuery(core.CodeListRunsFailed, "listing runs of workflow broken.yml"),
			},
		},
	}
}

func TestFromSummary(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := FromSummary(Meta{
		Invocation: "inv-1",
		Repository: "octo/hello",
		StartedAt:  start,
		FinishedAt: start.Add(30 * time.Second),
	}, sampleSummary())

	testutil.AssertEqual(t, r.CurrentRunID, int64(100))
	testutil.AssertEqual(t, r.Cancelled, 1)
	testutil.AssertEqual(t, r.Failures, 1)
	testutil.AssertLen(t, r.Workflows, 2)

	ci := r.Workflows[0]
	testutil.AssertEqual(t, ci.Candidates, 2)
	testutil.AssertLen(t, ci.Duplicates, 1)
	testutil.AssertTrue(t, ci.Gate != nil, "gate recorded")
	testutil.AssertEqual(t, ci.Gate.Job, "smoke-test")
	testutil.AssertLen(t, ci.Cancels, 1)
	testutil.AssertTrue(t, ci.Cancels[0].OK, "cancel ok")

	broken := r.Workflows[1]
	testutil.AssertContains(t, broken.Error, "LIST_RUNS_FAILED")
	testutil.AssertTrue(t, broken.Gate == nil, "no gate without job")
}

func TestWriteAndRead(t *testing.T) {
	dir := testutil.TempDir(t)
	path := filepath.Join(dir, "nested", "report.yaml")

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := FromSummary(Meta{Invocation: "inv-1", StartedAt: start, FinishedAt: start}, sampleSummary())

	testutil.AssertNoError(t, Write(path, r))

	data, err := os.ReadFile(path)
	testutil.AssertNoError(t, err)
	testutil.AssertContains(t, string(data), "workflow_id: ci.yml")
	testutil.AssertContains(t, string(data), "current_run_id: 100")

	got, err := Read(path)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.Invocation, "inv-1")
	testutil.AssertEqual(t, got.Workflows[0].Cancels[0].RunID, int64(90))
	testutil.AssertTrue(t, got.StartedAt.Equal(start), "started_at round trips")
}

func TestWrite_Overwrites(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "report.yaml")

	testutil.AssertNoError(t, Write(path, &Report{Invocation: "first"}))
	testutil.AssertNoError(t, Write(path, &Report{Invocation: "second"}))

	got, err := Read(path)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.Invocation, "second")
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(filepath.Join(testutil.TempDir(t), "missing.yaml"))
	testutil.AssertError(t, err)
}
