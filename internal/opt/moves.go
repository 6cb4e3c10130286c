package opt

import (
	"iter"
	"math/rand"
)

type MoveKind int

const (
	MoveRelocate MoveKind = iota
	MoveSwap
)

func (k MoveKind) String() string {
	switch k {
	case MoveRelocate:
		return "relocate"
	case MoveSwap:
		return "swap"
	}
	return "unknown"
}

// Move is a candidate change. Relocate sends Student from car From to car To;
// Swap exchanges Student (in From) with Other (in To).
type Move struct {
	Kind    MoveKind
	Student int
	Other   int
	From    int
	To      int
}

// Neighborhood draws moves around the tracker's working assignment.
type Neighborhood struct {
	p          *Problem
	rng        *rand.Rand
	repairBias float64

	free     []int // students that may move
	licensed []int // free students holding a license
}

func NewNeighborhood(p *Problem, rng *rand.Rand, repairBias float64) *Neighborhood {
	n := &Neighborhood{p: p, rng: rng, repairBias: repairBias}
	for i := range p.students {
		if _, ok := p.Pinned(i); ok {
			continue
		}
		n.free = append(n.free, i)
		if p.students[i].HasLicense {
			n.licensed = append(n.licensed, i)
		}
	}
	return n
}

// Exhausted reports that no move can ever be produced.
func (n *Neighborhood) Exhausted() bool {
	return len(n.free) == 0 || n.p.NumCars() < 2
}

// Moves yields candidate moves for t until the consumer stops or no move exists.
// Moves are drawn against the tracker's state at the time of each pull.
func (n *Neighborhood) Moves(t *Tracker) iter.Seq[Move] {
	return func(yield func(Move) bool) {
		if n.Exhausted() {
			return
		}
		for {
			if !yield(n.next(t)) {
				return
			}
		}
	}
}

func (n *Neighborhood) next(t *Tracker) Move {
	if v := t.Violating(); len(v) > 0 && n.rng.Float64() < n.repairBias {
		if m, ok := n.repair(t, v[n.rng.Intn(len(v))]); ok {
			return m
		}
	}
	if n.rng.Float64() < 0.5 {
		if m, ok := n.randomSwap(t); ok {
			return m
		}
	}
	return n.randomRelocate(t)
}

func (n *Neighborhood) randomRelocate(t *Tracker) Move {
	s := n.free[n.rng.Intn(len(n.free))]
	from := t.a.carOf[s]
	to := n.rng.Intn(n.p.NumCars() - 1)
	if to >= from {
		to++
	}
	return Move{Kind: MoveRelocate, Student: s, From: from, To: to}
}

func (n *Neighborhood) randomSwap(t *Tracker) (Move, bool) {
	if len(n.free) < 2 {
		return Move{}, false
	}
	for range 8 {
		s1 := n.free[n.rng.Intn(len(n.free))]
		s2 := n.free[n.rng.Intn(len(n.free))]
		c1, c2 := t.a.carOf[s1], t.a.carOf[s2]
		if c1 != c2 {
			return Move{Kind: MoveSwap, Student: s1, Other: s2, From: c1, To: c2}, true
		}
	}
	return Move{}, false
}

// repair draws a move aimed at the violations of car c.
func (n *Neighborhood) repair(t *Tracker, c int) (Move, bool) {
	overflow := t.Occupancy(c) > n.p.cars[c].Capacity
	noDriver := t.Occupancy(c) > 0 && t.LicensedIn(c) == 0
	if overflow && noDriver && n.rng.Intn(2) == 0 {
		overflow = false
	}
	if overflow {
		return n.evict(t, c)
	}
	if noDriver {
		return n.bringDriver(t, c)
	}
	return Move{}, false
}

// evict moves an occupant out of an overfull car, preferring a target with a
// free seat and an occupant who is not the car's only driver.
func (n *Neighborhood) evict(t *Tracker, c int) (Move, bool) {
	s, ok := n.pickOccupant(t, c, func(s int) bool {
		return !n.p.students[s].HasLicense || t.LicensedIn(c) > 1
	})
	if !ok {
		return Move{}, false
	}
	to := n.pickCar(c, func(d int) bool { return t.Occupancy(d) < n.p.cars[d].Capacity })
	return Move{Kind: MoveRelocate, Student: s, From: c, To: to}, true
}

// bringDriver moves a licensed student into car c, swapping with an occupant
// when c has no free seat.
func (n *Neighborhood) bringDriver(t *Tracker, c int) (Move, bool) {
	if len(n.licensed) == 0 {
		return Move{}, false
	}
	driver := -1
	start := n.rng.Intn(len(n.licensed))
	for i := range n.licensed {
		s := n.licensed[(start+i)%len(n.licensed)]
		from := t.a.carOf[s]
		if from == c {
			continue
		}
		if driver < 0 {
			driver = s
		}
		if t.LicensedIn(from) > 1 {
			driver = s
			break
		}
	}
	if driver < 0 {
		return Move{}, false
	}
	from := t.a.carOf[driver]
	if t.Occupancy(c) < n.p.cars[c].Capacity {
		return Move{Kind: MoveRelocate, Student: driver, From: from, To: c}, true
	}
	other, ok := n.pickOccupant(t, c, nil)
	if !ok {
		return Move{Kind: MoveRelocate, Student: driver, From: from, To: c}, true
	}
	return Move{Kind: MoveSwap, Student: driver, Other: other, From: from, To: c}, true
}

// pickOccupant returns a random free student of car c, preferring those
// matching prefer.
func (n *Neighborhood) pickOccupant(t *Tracker, c int, prefer func(int) bool) (int, bool) {
	group := t.a.members[c]
	if len(group) == 0 {
		return -1, false
	}
	fallback := -1
	start := n.rng.Intn(len(group))
	for i := range group {
		s := group[(start+i)%len(group)]
		if _, pinned := n.p.Pinned(s); pinned {
			continue
		}
		if prefer == nil || prefer(s) {
			return s, true
		}
		if fallback < 0 {
			fallback = s
		}
	}
	return fallback, fallback >= 0
}

// pickCar returns a random car other than c, preferring those matching prefer.
func (n *Neighborhood) pickCar(c int, prefer func(int) bool) int {
	cars := n.p.NumCars()
	start := n.rng.Intn(cars)
	fallback := -1
	for i := range cars {
		d := (start + i) % cars
		if d == c {
			continue
		}
		if prefer(d) {
			return d
		}
		if fallback < 0 {
			fallback = d
		}
	}
	return fallback
}
