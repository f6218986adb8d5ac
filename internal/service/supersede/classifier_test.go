package supersede

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/supersede/internal/core"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// at returns t0 shifted by n minutes.
func at(n int) time.Time { return t0.Add(time.Duration(n) * time.Minute) }

func pr(id int64) *int64 { return &id }

func run(id int64, prID *int64, sha string, status core.RunStatus, created time.Time) core.RunIdentity {
	return core.RunIdentity{
		ID:            id,
		WorkflowID:    7,
		PullRequestID: prID,
		HeadSHA:       sha,
		Status:        status,
		CreatedAt:     created,
		HTMLURL:       fmt.Sprintf("https://github.com/octo/hello/actions/runs/%d", id),
	}
}

func currentRun() core.CurrentRun {
	return core.CurrentRun{RunIdentity: run(100, pr(5), "abc", core.RunStatusInProgress, at(10))}
}

func scenarioCandidates() []core.RunIdentity {
	return []core.RunIdentity{
		run(90, pr(5), "xyz", core.RunStatusInProgress, at(5)),
		run(95, pr(5), "abc", core.RunStatusInProgress, at(8)),
		run(98, pr(9), "xyz", core.RunStatusInProgress, at(9)),
	}
}

func ids(runs []core.RunIdentity) []int64 {
	out := make([]int64, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.ID)
	}
	return out
}

func TestClassify_SameSHAExcluded(t *testing.T) {
	got := Classify(currentRun(), scenarioCandidates(), ClassifyOptions{})
	assert.Equal(t, []int64{90}, ids(got))
}

func TestClassify_IgnoreSHA(t *testing.T) {
	got := Classify(currentRun(), scenarioCandidates(), ClassifyOptions{IgnoreSHA: true})
	assert.Equal(t, []int64{90, 95}, ids(got))
}

func TestClassify_CurrentWithoutPullRequest(t *testing.T) {
	current := currentRun()
	current.PullRequestID = nil

	for _, opts := range []ClassifyOptions{{}, {IgnoreSHA: true}} {
		assert.Empty(t, Classify(current, scenarioCandidates(), opts))
	}
}

func TestClassify_Predicates(t *testing.T) {
	tests := []struct {
		name      string
		candidate core.RunIdentity
		opts      ClassifyOptions
		want      bool
	}{
		{"older run of same PR", run(1, pr(5), "old", core.RunStatusQueued, at(1)), ClassifyOptions{}, true},
		{"different PR", run(1, pr(6), "old", core.RunStatusQueued, at(1)), ClassifyOptions{IgnoreSHA: true}, false},
		{"candidate without PR", run(1, nil, "old", core.RunStatusQueued, at(1)), ClassifyOptions{IgnoreSHA: true}, false},
		{"completed", run(1, pr(5), "old", core.RunStatusCompleted, at(1)), ClassifyOptions{IgnoreSHA: true}, false},
		{"same created_at", run(1, pr(5), "old", core.RunStatusQueued, at(10)), ClassifyOptions{IgnoreSHA: true}, false},
		{"newer", run(1, pr(5), "old", core.RunStatusQueued, at(11)), ClassifyOptions{IgnoreSHA: true}, false},
		{"current run itself", run(100, pr(5), "old", core.RunStatusQueued, at(1)), ClassifyOptions{IgnoreSHA: true}, false},
		{"same sha", run(1, pr(5), "abc", core.RunStatusWaiting, at(1)), ClassifyOptions{}, false},
		{"same sha ignored", run(1, pr(5), "abc", core.RunStatusWaiting, at(1)), ClassifyOptions{IgnoreSHA: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(currentRun(), []core.RunIdentity{tt.candidate}, tt.opts)
			assert.Equal(t, tt.want, len(got) == 1)
		})
	}
}

func TestClassify_PreservesOrderAndIsIdempotent(t *testing.T) {
	candidates := []core.RunIdentity{
		run(3, pr(5), "c", core.RunStatusQueued, at(3)),
		run(1, pr(5), "a", core.RunStatusInProgress, at(1)),
		run(4, pr(5), "d", core.RunStatusCompleted, at(4)),
		run(2, pr(5), "b", core.RunStatusPending, at(2)),
	}

	first := Classify(currentRun(), candidates, ClassifyOptions{})
	second := Classify(currentRun(), candidates, ClassifyOptions{})

	require.Equal(t, []int64{3, 1, 2}, ids(first))
	assert.Equal(t, first, second)
}

func TestClassify_ExclusionsHoldForAllOtherFields(t *testing.T) {
	current := currentRun()
	statuses := []core.RunStatus{core.RunStatusQueued, core.RunStatusInProgress, core.RunStatusCompleted, core.RunStatusWaiting}
	prs := []*int64{nil, pr(5), pr(6)}
	shas := []string{"abc", "xyz"}

	for _, status := range statuses {
		for _, prID := range prs {
			for _, sha := range shas {
				for minute := 0; minute <= 12; minute += 4 {
					for _, ignore := range []bool{false, true} {
						c := run(1, prID, sha, status, at(minute))
						got := len(Classify(current, []core.RunIdentity{c}, ClassifyOptions{IgnoreSHA: ignore})) == 1

						if !c.SamePullRequest(current.RunIdentity) || status.IsCompleted() || !c.CreatedAt.Before(current.CreatedAt) {
							assert.False(t, got, "candidate %+v", c)
						}
						if !ignore && sha == current.HeadSHA {
							assert.False(t, got, "same sha candidate %+v", c)
						}
					}
				}
			}
		}
	}
}
