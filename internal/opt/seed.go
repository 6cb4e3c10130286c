package opt

import (
	"cmp"
	"slices"
)

// greedySeed builds the starting assignment: pinned students first, then one
// driver per car while licensed students last, then round-robin over cars that
// already have a driver, then over whatever cars still have seats.
func greedySeed(p *Problem) (*Assignment, error) {
	a := newAssignment(p.NumStudents(), p.NumCars())
	drivers := make([]int, p.NumCars())
	var free []int
	for i, s := range p.students {
		if c, ok := p.Pinned(i); ok {
			a.place(i, c)
			if s.HasLicense {
				drivers[c]++
			}
			continue
		}
		free = append(free, i)
	}

	slices.SortStableFunc(free, func(x, y int) int {
		lx, ly := p.students[x].HasLicense, p.students[y].HasLicense
		if lx != ly {
			if lx {
				return -1
			}
			return 1
		}
		return cmp.Compare(p.students[x].ID, p.students[y].ID)
	})
	slack := func(c int) int { return p.cars[c].Capacity - a.Occupancy(c) }
	cars := make([]int, p.NumCars())
	for c := range cars {
		cars[c] = c
	}
	slices.SortStableFunc(cars, func(x, y int) int { return cmp.Compare(slack(y), slack(x)) })

	next := 0
	for _, c := range cars {
		if next >= len(free) || !p.students[free[next]].HasLicense {
			break
		}
		if drivers[c] > 0 || slack(c) == 0 {
			continue
		}
		a.place(free[next], c)
		drivers[c]++
		next++
	}

	var withDriver, rest []int
	for _, c := range cars {
		if drivers[c] > 0 {
			withDriver = append(withDriver, c)
		} else {
			rest = append(rest, c)
		}
	}
	cursor := 0
	for _, s := range free[next:] {
		c := roundRobin(withDriver, &cursor, slack)
		if c < 0 {
			c = firstWithSlack(rest, slack)
		}
		if c < 0 {
			return nil, &InfeasibleProblemError{Students: p.NumStudents(), Capacity: p.TotalCapacity()}
		}
		a.place(s, c)
	}
	return a, nil
}

func roundRobin(cars []int, cursor *int, slack func(int) int) int {
	for range cars {
		c := cars[*cursor%len(cars)]
		*cursor++
		if slack(c) > 0 {
			return c
		}
	}
	return -1
}

func firstWithSlack(cars []int, slack func(int) int) int {
	for _, c := range cars {
		if slack(c) > 0 {
			return c
		}
	}
	return -1
}
