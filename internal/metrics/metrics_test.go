package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	RegisterDefault()
	RegisterDefault()

	before := testutil.ToFloat64(SolverRuns.WithLabelValues("partial"))
	ObserveRun("partial", 120*time.Millisecond, 400, 1.25)
	assert.Equal(t, before+1, testutil.ToFloat64(SolverRuns.WithLabelValues("partial")))
	assert.Equal(t, 1.25, testutil.ToFloat64(SolverBestSoftCost))

	ObserveRun("error", 0, 0, 99)
	assert.Equal(t, 1.25, testutil.ToFloat64(SolverBestSoftCost))

	n, err := testutil.GatherAndCount(Registry, "cargroup_solver_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
