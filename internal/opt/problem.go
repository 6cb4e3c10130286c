package opt

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Attribute names understood by Objective weights.
const (
	AttrGender    = "gender"
	AttrGrade     = "grade"
	AttrOccupancy = "occupancy"
)

// Student is one row of the students table. Gender and Grade are opaque
// categories; only equality matters.
type Student struct {
	ID         string
	HasLicense bool
	Gender     string
	Grade      string
	CarID      string // optional pin; empty means free to move
}

// Car is one row of the cars table. Capacity counts every seat, driver
// included.
type Car struct {
	ID       string
	Capacity int
}

// attribute is one categorical column encoded per student.
type attribute struct {
	name   string
	values []string  // category labels in first-seen order
	codes  []int     // student index -> category
	share  []float64 // global proportion per category
}

// Problem is the immutable domain model shared by every run.
type Problem struct {
	students []Student
	cars     []Car
	attrs    []attribute

	studentIdx map[string]int
	carIdx     map[string]int
	pinned     []int // student index -> car index, -1 when free

	totalCapacity int
	licensed      int
}

// NewProblem validates the tables and builds the domain model.
func NewProblem(students []Student, cars []Car) (*Problem, error) {
	if len(students) == 0 {
		return nil, &SchemaError{Table: "students", Reason: "dataset is empty"}
	}
	if len(cars) == 0 {
		return nil, &SchemaError{Table: "cars", Reason: "dataset is empty"}
	}
	p := &Problem{
		students:   append([]Student(nil), students...),
		cars:       append([]Car(nil), cars...),
		studentIdx: make(map[string]int, len(students)),
		carIdx:     make(map[string]int, len(cars)),
		pinned:     make([]int, len(students)),
	}
	for i, c := range p.cars {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return nil, &SchemaError{Table: "cars", Reason: fmt.Sprintf("row %d has an empty car_id", i+1)}
		}
		if _, dup := p.carIdx[id]; dup {
			return nil, &SchemaError{Table: "cars", Reason: fmt.Sprintf("duplicate car_id %q", id)}
		}
		if c.Capacity <= 0 {
			return nil, &SchemaError{Table: "cars", Reason: fmt.Sprintf("car %q has non-positive capacity %d", id, c.Capacity)}
		}
		p.cars[i].ID = id
		p.carIdx[id] = i
		p.totalCapacity += c.Capacity
	}
	pinnedLoad := make([]int, len(p.cars))
	for i, s := range p.students {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			return nil, &SchemaError{Table: "students", Reason: fmt.Sprintf("row %d has an empty student_id", i+1)}
		}
		if _, dup := p.studentIdx[id]; dup {
			return nil, &SchemaError{Table: "students", Reason: fmt.Sprintf("duplicate student_id %q", id)}
		}
		p.students[i].ID = id
		p.studentIdx[id] = i
		p.pinned[i] = -1
		if pin := strings.TrimSpace(s.CarID); pin != "" {
			c, ok := p.carIdx[pin]
			if !ok {
				return nil, &SchemaError{Table: "students", Reason: fmt.Sprintf("student %q references unknown car %q", id, pin)}
			}
			p.students[i].CarID = pin
			p.pinned[i] = c
			pinnedLoad[c]++
		}
		if s.HasLicense {
			p.licensed++
		}
	}
	if p.totalCapacity < len(p.students) {
		return nil, &InfeasibleProblemError{Students: len(p.students), Capacity: p.totalCapacity}
	}
	for c, n := range pinnedLoad {
		if n > p.cars[c].Capacity {
			return nil, &InfeasibleProblemError{Students: n, Capacity: p.cars[c].Capacity, CarID: p.cars[c].ID}
		}
	}
	p.attrs = []attribute{
		encodeAttribute(AttrGender, p.students, func(s Student) string { return s.Gender }),
		encodeAttribute(AttrGrade, p.students, func(s Student) string { return s.Grade }),
	}
	return p, nil
}

func encodeAttribute(name string, students []Student, get func(Student) string) attribute {
	values := lo.Uniq(lo.Map(students, func(s Student, _ int) string { return get(s) }))
	index := make(map[string]int, len(values))
	for i, v := range values {
		index[v] = i
	}
	a := attribute{
		name:   name,
		values: values,
		codes:  make([]int, len(students)),
		share:  make([]float64, len(values)),
	}
	for i, s := range students {
		k := index[get(s)]
		a.codes[i] = k
		a.share[k]++
	}
	for k := range a.share {
		a.share[k] /= float64(len(students))
	}
	return a
}

// NumStudents and NumCars bound the indices the other accessors take.
func (p *Problem) NumStudents() int { return len(p.students) }
func (p *Problem) NumCars() int     { return len(p.cars) }

// Student returns the i-th student in input order.
func (p *Problem) Student(i int) Student { return p.students[i] }

// Car returns the c-th car in input order.
func (p *Problem) Car(c int) Car { return p.cars[c] }

// Per-car and per-student lookups, plus totals fixed at construction.
func (p *Problem) Capacity(c int) int  { return p.cars[c].Capacity }
func (p *Problem) Licensed(i int) bool { return p.students[i].HasLicense }
func (p *Problem) TotalCapacity() int  { return p.totalCapacity }
func (p *Problem) LicensedCount() int  { return p.licensed }

// Pinned reports the car a student is locked to.
func (p *Problem) Pinned(i int) (int, bool) {
	c := p.pinned[i]
	return c, c >= 0
}

// StudentIndex looks a student up by id.
func (p *Problem) StudentIndex(id string) (int, bool) {
	i, ok := p.studentIdx[id]
	return i, ok
}

// CarIndex looks a car up by id.
func (p *Problem) CarIndex(id string) (int, bool) {
	c, ok := p.carIdx[id]
	return c, ok
}

// Categories lists the distinct values seen for a weighted attribute.
func (p *Problem) Categories(attr string) []string {
	for _, a := range p.attrs {
		if a.name == attr {
			return append([]string(nil), a.values...)
		}
	}
	return nil
}
