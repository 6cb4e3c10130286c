package opt

// Assignment maps every student to exactly one car. Members are kept per car
// with a position index so relocations are O(1).
type Assignment struct {
	carOf   []int   // student -> car
	members [][]int // car -> students
	pos     []int   // student -> index inside members[carOf[student]]
}

func newAssignment(students, cars int) *Assignment {
	a := &Assignment{
		carOf:   make([]int, students),
		members: make([][]int, cars),
		pos:     make([]int, students),
	}
	for i := range a.carOf {
		a.carOf[i] = -1
	}
	return a
}

// place puts an unassigned student into car c.
func (a *Assignment) place(student, c int) {
	a.carOf[student] = c
	a.pos[student] = len(a.members[c])
	a.members[c] = append(a.members[c], student)
}

// move relocates an assigned student to car c.
func (a *Assignment) move(student, c int) {
	from := a.carOf[student]
	if from == c {
		return
	}
	list := a.members[from]
	i := a.pos[student]
	last := list[len(list)-1]
	list[i] = last
	a.pos[last] = i
	a.members[from] = list[:len(list)-1]
	a.place(student, c)
}

// CarOf returns the car index of a student, -1 if unassigned.
func (a *Assignment) CarOf(student int) int { return a.carOf[student] }

// Group returns the students seated in car c. The slice must not be modified.
func (a *Assignment) Group(c int) []int { return a.members[c] }

func (a *Assignment) Occupancy(c int) int { return len(a.members[c]) }

// Complete reports whether every student has a car.
func (a *Assignment) Complete() bool {
	for _, c := range a.carOf {
		if c < 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy sharing no memory with a.
func (a *Assignment) Clone() *Assignment {
	out := &Assignment{
		carOf:   append([]int(nil), a.carOf...),
		members: make([][]int, len(a.members)),
		pos:     append([]int(nil), a.pos...),
	}
	for c, list := range a.members {
		out.members[c] = append(make([]int, 0, cap(list)), list...)
	}
	return out
}

// Equal compares the student -> car mapping only.
func (a *Assignment) Equal(b *Assignment) bool {
	if len(a.carOf) != len(b.carOf) {
		return false
	}
	for i := range a.carOf {
		if a.carOf[i] != b.carOf[i] {
			return false
		}
	}
	return true
}

// Mapping returns student id -> car id.
func (a *Assignment) Mapping(p *Problem) map[string]string {
	out := make(map[string]string, len(a.carOf))
	for i, c := range a.carOf {
		if c >= 0 {
			out[p.students[i].ID] = p.cars[c].ID
		}
	}
	return out
}

// AssignmentFromMapping builds an assignment from student id -> car id. Used to
// score externally produced groupings.
func AssignmentFromMapping(p *Problem, mapping map[string]string) (*Assignment, error) {
	a := newAssignment(p.NumStudents(), p.NumCars())
	for i, s := range p.students {
		carID, ok := mapping[s.ID]
		if !ok {
			return nil, &SchemaError{Table: "assignment", Reason: "student " + s.ID + " has no car"}
		}
		c, ok := p.carIdx[carID]
		if !ok {
			return nil, &SchemaError{Table: "assignment", Reason: "student " + s.ID + " references unknown car " + carID}
		}
		a.place(i, c)
	}
	return a, nil
}
