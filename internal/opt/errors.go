package opt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema matches any *SchemaError via errors.Is.
	ErrSchema = errors.New("schema error")
	// ErrInfeasible matches any *InfeasibleProblemError via errors.Is.
	ErrInfeasible = errors.New("infeasible problem")
)

// SchemaError reports input tables that cannot form a problem: empty datasets,
// missing columns, blank or duplicate ids, broken references.
type SchemaError struct {
	Table  string // "students" or "cars"
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Table == "" {
		return "schema: " + e.Reason
	}
	return fmt.Sprintf("schema: %s: %s", e.Table, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// InfeasibleProblemError reports that the seats cannot hold the students.
type InfeasibleProblemError struct {
	Students int
	Capacity int
	CarID    string // set when a single car is overbooked by pinned students
}

func (e *InfeasibleProblemError) Error() string {
	if e.CarID != "" {
		return fmt.Sprintf("infeasible: %d pinned students exceed capacity %d of car %s", e.Students, e.Capacity, e.CarID)
	}
	return fmt.Sprintf("infeasible: %d students but only %d seats", e.Students, e.Capacity)
}

func (e *InfeasibleProblemError) Is(target error) bool { return target == ErrInfeasible }

// PartialFeasibilityWarning accompanies a result whose best assignment still
// breaks hard constraints. It is a value carried on Result, never returned as
// the error of Solve.
type PartialFeasibilityWarning struct {
	Violations int
	Cars       []string // cars still in violation
}

func (w *PartialFeasibilityWarning) Error() string {
	return fmt.Sprintf("partial feasibility: %d hard violations remain (cars: %s)", w.Violations, strings.Join(w.Cars, ", "))
}
