package model

import (
	"time"

	"cargroup/internal/config"
	"cargroup/internal/opt"
)

// Grouping API shapes

// GroupingRequest carries the two input tables as JSON rows keyed by column
// name, exactly as they would appear in the CSV files.
type GroupingRequest struct {
	Name     string           `json:"name,omitempty"`
	Students []map[string]any `json:"students"`
	Cars     []map[string]any `json:"cars"`
	Config   *config.Solver   `json:"config,omitempty"`
	Async    bool             `json:"async,omitempty"`
}

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

type Warning struct {
	Message    string   `json:"message"`
	Violations int      `json:"violations"`
	Cars       []string `json:"cars,omitempty"`
}

type Grouping struct {
	ID         string       `json:"id"`
	Name       string       `json:"name,omitempty"`
	Status     string       `json:"status"`
	CreatedAt  time.Time    `json:"createdAt"`
	FinishedAt *time.Time   `json:"finishedAt,omitempty"`
	Score      *opt.Score   `json:"score,omitempty"`
	Warning    *Warning     `json:"warning,omitempty"`
	Rows       []opt.Row    `json:"rows,omitempty"`
	Summary    *opt.Summary `json:"summary,omitempty"`
	Metrics    *opt.Metrics `json:"metrics,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Done reports whether the run has left the running state.
func (g Grouping) Done() bool { return g.Status != StatusRunning }
