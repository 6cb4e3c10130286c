package opt

import (
	"fmt"
	"maps"
	"slices"
)

// Objective configures the soft balance cost.
type Objective struct {
	// Weights per attribute: "gender", "grade", "occupancy". Missing keys weigh 0;
	// a nil map means DefaultObjective weights.
	Weights map[string]float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
	// IgnoreGroupSize drops the n_car factor from the categorical terms.
	IgnoreGroupSize bool `json:"ignoreGroupSize,omitempty" yaml:"ignoreGroupSize,omitempty"`
}

func DefaultObjective() Objective {
	return Objective{Weights: map[string]float64{AttrGender: 1, AttrGrade: 1}}
}

var knownWeights = []string{AttrGender, AttrGrade, AttrOccupancy}

// Validate rejects unknown attribute keys and negative weights.
func (o Objective) Validate() error {
	for _, k := range slices.Sorted(maps.Keys(o.Weights)) {
		if !slices.Contains(knownWeights, k) {
			return fmt.Errorf("unknown weight key: %s (allowed: gender,grade,occupancy)", k)
		}
		if o.Weights[k] < 0 {
			return fmt.Errorf("weight %s must be >= 0", k)
		}
	}
	return nil
}

func (o Objective) weight(attr string) float64 {
	if o.Weights == nil {
		return DefaultObjective().Weights[attr]
	}
	return o.Weights[attr]
}
