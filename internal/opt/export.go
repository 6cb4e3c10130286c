package opt

import (
	"gonum.org/v1/gonum/stat"
)

// Row is one line of the output table.
type Row struct {
	StudentID string `json:"student_id"`
	CarID     string `json:"car_id"`
	Occupancy int    `json:"occupancy"`
	Capacity  int    `json:"capacity"`
}

// Export flattens an assignment to one row per student in input order.
func Export(p *Problem, a *Assignment) []Row {
	rows := make([]Row, 0, p.NumStudents())
	for i, s := range p.students {
		c := a.CarOf(i)
		if c < 0 {
			continue
		}
		rows = append(rows, Row{
			StudentID: s.ID,
			CarID:     p.cars[c].ID,
			Occupancy: a.Occupancy(c),
			Capacity:  p.cars[c].Capacity,
		})
	}
	return rows
}

type CarSummary struct {
	CarID     string         `json:"car_id"`
	Capacity  int            `json:"capacity"`
	Occupancy int            `json:"occupancy"`
	Licensed  int            `json:"licensed"`
	Genders   map[string]int `json:"genders"`
	Grades    map[string]int `json:"grades"`
	Score     Score          `json:"score"`
}

type Summary struct {
	Cars       []CarSummary `json:"cars"`
	Score      Score        `json:"score"`
	EmptyCars  int          `json:"empty_cars"`
	FillMean   float64      `json:"fill_mean"`
	FillStdDev float64      `json:"fill_stddev"`
}

// Summarize reports per-car composition and fill statistics.
func Summarize(p *Problem, a *Assignment, ev *Evaluator) Summary {
	var sum Summary
	fills := make([]float64, 0, p.NumCars())
	for c, car := range p.cars {
		cs := CarSummary{
			CarID:     car.ID,
			Capacity:  car.Capacity,
			Occupancy: a.Occupancy(c),
			Genders:   map[string]int{},
			Grades:    map[string]int{},
			Score:     ev.CarScore(a, c),
		}
		for _, s := range a.Group(c) {
			st := p.students[s]
			if st.HasLicense {
				cs.Licensed++
			}
			cs.Genders[st.Gender]++
			cs.Grades[st.Grade]++
		}
		if cs.Occupancy == 0 {
			sum.EmptyCars++
		}
		sum.Score = sum.Score.Add(cs.Score)
		sum.Cars = append(sum.Cars, cs)
		fills = append(fills, float64(cs.Occupancy)/float64(car.Capacity))
	}
	if len(fills) > 1 {
		sum.FillMean, sum.FillStdDev = stat.MeanStdDev(fills, nil)
	} else if len(fills) == 1 {
		sum.FillMean = fills[0]
	}
	return sum
}
