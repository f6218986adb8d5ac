// Package supersede finds runs superseded by the current run and cancels them.
//
// One pass resolves the current run, then for every target workflow runs
// the pipeline query → classify → gate → dispatch. Pipelines run
// concurrently and fail independently.
package supersede

import "github.com/hugo-lorenzo-mato/supersede/internal/core"

// ClassifyOptions tunes duplicate detection.
type ClassifyOptions struct {
	// IgnoreSHA also treats runs on the current head commit as duplicates.
	IgnoreSHA bool
}

// Classify returns the candidates superseded by current, in input order.
//
// A candidate is a duplicate when it belongs to the same pull request as
// the current run, is a different run, has not completed, is on a different
// head commit (unless IgnoreSHA), and was created strictly earlier. A current
// run without a pull request has no duplicates.
func Classify(current core.CurrentRun, candidates []core.RunIdentity, opts ClassifyOptions) []core.RunIdentity {
	if !current.HasPullRequest() {
		return nil
	}

	var duplicates []core.RunIdentity
	for _, r := range candidates {
		if isDuplicate(current, r, opts) {
			duplicates = append(duplicates, r)
		}
	}
	return duplicates
}

func isDuplicate(current core.CurrentRun, r core.RunIdentity, opts ClassifyOptions) bool {
	switch {
	case !current.SamePullRequest(r):
		return false
	case r.ID == current.ID:
		return false
	case r.Status.IsCompleted():
		return false
	case !opts.IgnoreSHA && r.HeadSHA == current.HeadSHA:
		return false
	case !r.CreatedAt.Before(current.CreatedAt):
		return false
	}
	return true
}
