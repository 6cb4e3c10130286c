package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportRows(t *testing.T) {
	p, err := NewProblem([]Student{
		student("a", true, "F", "9"),
		student("b", false, "M", "9"),
		student("c", true, "M", "10"),
	}, cars(2, 4))
	require.NoError(t, err)
	a, err := AssignmentFromMapping(p, map[string]string{"a": "car1", "b": "car1", "c": "car2"})
	require.NoError(t, err)
	rows := Export(p, a)
	assert.Equal(t, []Row{
		{StudentID: "a", CarID: "car1", Occupancy: 2, Capacity: 2},
		{StudentID: "b", CarID: "car1", Occupancy: 2, Capacity: 2},
		{StudentID: "c", CarID: "car2", Occupancy: 1, Capacity: 4},
	}, rows)
}

func TestSummarize(t *testing.T) {
	p, err := NewProblem([]Student{
		student("a", true, "F", "9"),
		student("b", false, "M", "9"),
	}, cars(2, 2, 4))
	require.NoError(t, err)
	a, err := AssignmentFromMapping(p, map[string]string{"a": "car1", "b": "car1"})
	require.NoError(t, err)
	ev := NewEvaluator(p, DefaultObjective())
	sum := Summarize(p, a, ev)
	require.Len(t, sum.Cars, 3)
	assert.Equal(t, 2, sum.EmptyCars)
	assert.Equal(t, 1, sum.Cars[0].Licensed)
	assert.Equal(t, map[string]int{"F": 1, "M": 1}, sum.Cars[0].Genders)
	assert.Equal(t, ev.Evaluate(a), sum.Score)
	assert.InDelta(t, 1.0/3.0, sum.FillMean, 1e-9)
	assert.Greater(t, sum.FillStdDev, 0.0)
}
