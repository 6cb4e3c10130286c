package opt

import "math"

const softEpsilon = 1e-9

// Score orders assignments lexicographically: any drop in hard violations
// beats any soft cost change.
type Score struct {
	Hard int     `json:"hard"`
	Soft float64 `json:"soft"`
}

// Compare returns -1, 0 or 1. Soft costs within softEpsilon compare equal.
func (s Score) Compare(o Score) int {
	switch {
	case s.Hard < o.Hard:
		return -1
	case s.Hard > o.Hard:
		return 1
	case s.Soft < o.Soft-softEpsilon:
		return -1
	case s.Soft > o.Soft+softEpsilon:
		return 1
	}
	return 0
}

// Less is Compare < 0; Feasible means no hard violations.
func (s Score) Less(o Score) bool { return s.Compare(o) < 0 }
func (s Score) Feasible() bool    { return s.Hard == 0 }
func (s Score) Add(o Score) Score { return Score{Hard: s.Hard + o.Hard, Soft: s.Soft + o.Soft} }
func (s Score) Sub(o Score) Score { return Score{Hard: s.Hard - o.Hard, Soft: s.Soft - o.Soft} }
func (s Score) perfect() bool     { return s.Hard == 0 && math.Abs(s.Soft) <= softEpsilon }

// carStats is what the evaluator needs to score a single car.
type carStats struct {
	occ      int
	licensed int
	counts   [][]int // attribute -> category -> students
}

func (st *carStats) add(p *Problem, student, sign int) {
	st.occ += sign
	if p.students[student].HasLicense {
		st.licensed += sign
	}
	for a := range p.attrs {
		st.counts[a][p.attrs[a].codes[student]] += sign
	}
}

// Evaluator scores assignments. It reads the assignment and the problem and
// mutates neither.
type Evaluator struct {
	p            *Problem
	weights      []float64 // per problem attribute
	occupancy    float64
	sizeWeighted bool
	fill         float64 // students / total capacity
}

func NewEvaluator(p *Problem, obj Objective) *Evaluator {
	e := &Evaluator{
		p:            p,
		weights:      make([]float64, len(p.attrs)),
		occupancy:    obj.weight(AttrOccupancy),
		sizeWeighted: !obj.IgnoreGroupSize,
		fill:         float64(p.NumStudents()) / float64(p.TotalCapacity()),
	}
	for i, a := range p.attrs {
		e.weights[i] = obj.weight(a.name)
	}
	return e
}

func (e *Evaluator) newStats() carStats {
	st := carStats{counts: make([][]int, len(e.p.attrs))}
	for a := range e.p.attrs {
		st.counts[a] = make([]int, len(e.p.attrs[a].values))
	}
	return st
}

func (e *Evaluator) statsFor(a *Assignment, c int) carStats {
	st := e.newStats()
	for _, s := range a.members[c] {
		st.add(e.p, s, 1)
	}
	return st
}

// Evaluate scores a whole assignment from scratch.
func (e *Evaluator) Evaluate(a *Assignment) Score {
	var total Score
	for c := range e.p.cars {
		total = total.Add(e.CarScore(a, c))
	}
	return total
}

// CarScore scores a single car of the assignment.
func (e *Evaluator) CarScore(a *Assignment, c int) Score {
	st := e.statsFor(a, c)
	return e.score(c, &st)
}

func (e *Evaluator) score(c int, st *carStats) Score {
	var s Score
	capacity := e.p.cars[c].Capacity
	if st.occ > capacity {
		s.Hard += st.occ - capacity
	}
	if st.occ > 0 && st.licensed == 0 {
		s.Hard++
	}
	if e.occupancy > 0 {
		d := float64(st.occ)/float64(capacity) - e.fill
		s.Soft += e.occupancy * float64(capacity) * d * d
	}
	if st.occ == 0 {
		return s
	}
	n := float64(st.occ)
	for a, w := range e.weights {
		if w == 0 {
			continue
		}
		var sum float64
		for k, cnt := range st.counts[a] {
			d := float64(cnt)/n - e.p.attrs[a].share[k]
			sum += d * d
		}
		if e.sizeWeighted {
			sum *= n
		}
		s.Soft += w * sum
	}
	return s
}

// Tracker maintains per-car cached scores for one working assignment so moves
// are scored by touching only the cars they change.
type Tracker struct {
	ev    *Evaluator
	a     *Assignment
	stats []carStats
	cache []Score
	total Score

	violating []int // cars with hard > 0
	violPos   []int // car -> index in violating, -1 when absent
}

func NewTracker(ev *Evaluator, a *Assignment) *Tracker {
	n := ev.p.NumCars()
	t := &Tracker{
		ev:      ev,
		a:       a,
		stats:   make([]carStats, n),
		cache:   make([]Score, n),
		violPos: make([]int, n),
	}
	for c := range n {
		t.stats[c] = ev.statsFor(a, c)
		t.cache[c] = ev.score(c, &t.stats[c])
		t.total = t.total.Add(t.cache[c])
		t.violPos[c] = -1
		t.markViolation(c)
	}
	return t
}

func (t *Tracker) Score() Score            { return t.total }
func (t *Tracker) Assignment() *Assignment { return t.a }
func (t *Tracker) CarScore(c int) Score    { return t.cache[c] }
func (t *Tracker) Violating() []int        { return t.violating }
func (t *Tracker) Occupancy(c int) int     { return t.stats[c].occ }
func (t *Tracker) LicensedIn(c int) int    { return t.stats[c].licensed }

// Delta returns the score change the move would cause, leaving state intact.
func (t *Tracker) Delta(m Move) Score {
	c1, c2 := m.From, m.To
	t.shift(m, 1)
	after := t.ev.score(c1, &t.stats[c1]).Add(t.ev.score(c2, &t.stats[c2]))
	t.shift(m, -1)
	return after.Sub(t.cache[c1].Add(t.cache[c2]))
}

// Apply performs the move on the assignment and refreshes the touched caches.
func (t *Tracker) Apply(m Move) {
	t.shift(m, 1)
	switch m.Kind {
	case MoveRelocate:
		t.a.move(m.Student, m.To)
	case MoveSwap:
		t.a.move(m.Student, m.To)
		t.a.move(m.Other, m.From)
	}
	for _, c := range [2]int{m.From, m.To} {
		next := t.ev.score(c, &t.stats[c])
		t.total = t.total.Add(next.Sub(t.cache[c]))
		t.cache[c] = next
		t.markViolation(c)
	}
}

// Resync recomputes the running total from the per-car caches, dropping
// accumulated floating point drift.
func (t *Tracker) Resync() {
	var total Score
	for _, s := range t.cache {
		total = total.Add(s)
	}
	t.total = total
}

// shift moves the students of m between the cached stats; dir -1 undoes it.
func (t *Tracker) shift(m Move, dir int) {
	p := t.ev.p
	from, to := &t.stats[m.From], &t.stats[m.To]
	from.add(p, m.Student, -dir)
	to.add(p, m.Student, dir)
	if m.Kind == MoveSwap {
		to.add(p, m.Other, -dir)
		from.add(p, m.Other, dir)
	}
}

func (t *Tracker) markViolation(c int) {
	bad := t.cache[c].Hard > 0
	i := t.violPos[c]
	switch {
	case bad && i < 0:
		t.violPos[c] = len(t.violating)
		t.violating = append(t.violating, c)
	case !bad && i >= 0:
		last := t.violating[len(t.violating)-1]
		t.violating[i] = last
		t.violPos[last] = i
		t.violating = t.violating[:len(t.violating)-1]
		t.violPos[c] = -1
	}
}
