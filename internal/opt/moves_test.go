package opt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovesAreNeverNoOps(t *testing.T) {
	students := []Student{
		{ID: "p1", HasLicense: true, Gender: "F", Grade: "9", CarID: "car1"},
		{ID: "p2", Gender: "M", Grade: "9", CarID: "car3"},
	}
	base := genProblem(t, 16, []int{4, 4, 4, 4, 4}, 5)
	for i := range base.NumStudents() {
		students = append(students, base.Student(i))
	}
	p, err := NewProblem(students, cars(4, 4, 4, 4, 4))
	require.NoError(t, err)
	a, err := greedySeed(p)
	require.NoError(t, err)
	tr := NewTracker(NewEvaluator(p, DefaultObjective()), a)
	nb := NewNeighborhood(p, rand.New(rand.NewSource(9)), 0.8)

	kinds := map[MoveKind]int{}
	n := 0
	for m := range nb.Moves(tr) {
		require.NotEqual(t, m.From, m.To)
		require.Equal(t, m.From, a.CarOf(m.Student))
		_, pinned := p.Pinned(m.Student)
		require.False(t, pinned)
		if m.Kind == MoveSwap {
			require.Equal(t, m.To, a.CarOf(m.Other))
			_, pinned = p.Pinned(m.Other)
			require.False(t, pinned)
		}
		kinds[m.Kind]++
		tr.Apply(m)
		if n++; n == 2000 {
			break
		}
	}
	assert.Positive(t, kinds[MoveRelocate])
	assert.Positive(t, kinds[MoveSwap])
	assert.Equal(t, 0, a.CarOf(0))
	assert.Equal(t, 2, a.CarOf(1))
}

func TestMovesExhausted(t *testing.T) {
	p, err := NewProblem([]Student{student("a", true, "F", "9"), student("b", false, "M", "9")}, cars(3))
	require.NoError(t, err)
	a, err := greedySeed(p)
	require.NoError(t, err)
	nb := NewNeighborhood(p, rand.New(rand.NewSource(1)), 0.8)
	assert.True(t, nb.Exhausted())
	for range nb.Moves(NewTracker(NewEvaluator(p, DefaultObjective()), a)) {
		t.Fatal("single car must yield no moves")
	}
}

func TestRepairTargetsViolations(t *testing.T) {
	p, err := NewProblem([]Student{
		student("a", true, "F", "9"),
		student("b", true, "M", "9"),
		student("c", false, "F", "9"),
		student("d", false, "M", "9"),
	}, cars(2, 2))
	require.NoError(t, err)
	a, err := AssignmentFromMapping(p, map[string]string{"a": "car1", "b": "car1", "c": "car2", "d": "car2"})
	require.NoError(t, err)
	tr := NewTracker(NewEvaluator(p, DefaultObjective()), a)
	require.Equal(t, []int{1}, tr.Violating())

	nb := NewNeighborhood(p, rand.New(rand.NewSource(2)), 1)
	m, ok := nb.repair(tr, 1)
	require.True(t, ok)
	assert.Equal(t, MoveSwap, m.Kind)
	assert.Equal(t, 1, m.To)
	assert.True(t, p.Licensed(m.Student))
	d := tr.Delta(m)
	assert.Equal(t, -1, d.Hard)
}

func TestGreedySeed(t *testing.T) {
	p, err := NewProblem([]Student{
		student("u1", false, "F", "9"),
		student("l1", true, "M", "9"),
		student("u2", false, "M", "9"),
		student("l2", true, "F", "9"),
	}, cars(2, 2))
	require.NoError(t, err)
	a, err := greedySeed(p)
	require.NoError(t, err)
	require.True(t, a.Complete())
	for c := range p.NumCars() {
		assert.Equal(t, 2, a.Occupancy(c))
		licensed := 0
		for _, s := range a.Group(c) {
			if p.Licensed(s) {
				licensed++
			}
		}
		assert.Equal(t, 1, licensed)
	}
}
