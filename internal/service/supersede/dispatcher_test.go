package supersede

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/supersede/internal/core"
	"github.com/hugo-lorenzo-mato/supersede/internal/logging"
	"github.com/hugo-lorenzo-mato/supersede/internal/testutil"
)

func TestDispatcher_ContinuesPastFailures(t *testing.T) {
	svc := testutil.NewFakeRunService().WithCancelError(90, testutil.ErrTest)
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "debug", Format: "text", Output: &buf})

	duplicates := []core.RunIdentity{
		run(90, pr(5), "xyz", core.RunStatusInProgress, at(5)),
		run(91, pr(5), "def", core.RunStatusQueued, at(6)),
		run(92, pr(5), "ghi", core.RunStatusWaiting, at(7)),
	}

	outcomes := NewDispatcher(svc, logger).Dispatch(context.Background(), duplicates)

	require.Len(t, outcomes, 3)
	assert.False(t, outcomes[0].Cancelled())
	assert.True(t, core.IsCategory(outcomes[0].Err, core.ErrCatCancellation))
	assert.ErrorIs(t, outcomes[0].Err, testutil.ErrTest)
	assert.True(t, outcomes[1].Cancelled())
	assert.True(t, outcomes[2].Cancelled())

	assert.Equal(t, 3, svc.CallCount("CancelRun"))
	assert.Equal(t, []int64{91, 92}, svc.Cancelled())

	out := buf.String()
	assert.Contains(t, out, "Error while canceling run")
	assert.Contains(t, out, "run_id=90")
	assert.Contains(t, out, "head_sha=xyz")
	assert.Contains(t, out, "url=https://github.com/octo/hello/actions/runs/90")
}

func TestDispatcher_InOrder(t *testing.T) {
	svc := testutil.NewFakeRunService()
	duplicates := []core.RunIdentity{{ID: 3}, {ID: 1}, {ID: 2}}

	outcomes := NewDispatcher(svc, logging.NewNop()).Dispatch(context.Background(), duplicates)

	require.Len(t, outcomes, 3)
	assert.Equal(t, []int64{3, 1, 2}, svc.Cancelled())
}

func TestDispatcher_Empty(t *testing.T) {
	svc := testutil.NewFakeRunService()
	outcomes := NewDispatcher(svc, logging.NewNop()).Dispatch(context.Background(), nil)
	assert.Empty(t, outcomes)
	assert.Zero(t, svc.CallCount("CancelRun"))
}
