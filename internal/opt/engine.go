package opt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultSeed is used when Config.Seed is zero, so the default configuration
// is reproducible.
const DefaultSeed int64 = 1

// Stop reasons recorded in Metrics.StopReason. A cancelled context records the
// context error text instead.
const (
	StopMaxIterations = "max_iterations"
	StopTimeBudget    = "time_budget"
	StopPerfect       = "perfect"
	StopNoMoves       = "no_moves"
)

type Config struct {
	MaxIterations int           `json:"maxIterations" yaml:"maxIterations"` // 0 = no cap
	TimeBudget    time.Duration `json:"timeBudget" yaml:"timeBudget"`
	InitialTemp   float64       `json:"initialTemp" yaml:"initialTemp"`
	Cooling       float64       `json:"cooling" yaml:"cooling"`
	Seed          int64         `json:"seed" yaml:"seed"` // 0 = DefaultSeed, negative = time based
	Runs          int           `json:"runs" yaml:"runs"`
	RepairBias    float64       `json:"repairBias" yaml:"repairBias"`
	HardPenalty   float64       `json:"hardPenalty" yaml:"hardPenalty"`
	SnapshotEvery int           `json:"snapshotEvery" yaml:"snapshotEvery"`
	Objective     Objective     `json:"objective" yaml:"objective"`
}

func DefaultConfig() Config {
	return Config{
		MaxIterations: 20000,
		TimeBudget:    5 * time.Second,
		InitialTemp:   1.0,
		Cooling:       0.995,
		Runs:          1,
		RepairBias:    0.8,
		HardPenalty:   10,
		SnapshotEvery: 50,
		Objective:     DefaultObjective(),
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.TimeBudget <= 0 {
		c.TimeBudget = d.TimeBudget
	}
	if c.InitialTemp <= 0 {
		c.InitialTemp = d.InitialTemp
	}
	if c.Cooling <= 0 {
		c.Cooling = d.Cooling
	}
	if c.Runs <= 0 {
		c.Runs = d.Runs
	}
	if c.RepairBias <= 0 {
		c.RepairBias = d.RepairBias
	}
	if c.HardPenalty <= 0 {
		c.HardPenalty = d.HardPenalty
	}
	if c.SnapshotEvery <= 0 {
		c.SnapshotEvery = d.SnapshotEvery
	}
	if c.Objective.Weights == nil {
		c.Objective.Weights = d.Objective.Weights
	}
	return c
}

func (c Config) Validate() error {
	if c.MaxIterations < 0 {
		return errors.New("maxIterations must be >= 0")
	}
	if c.Cooling <= 0 || c.Cooling >= 1 {
		return errors.New("cooling must be in (0,1)")
	}
	if c.RepairBias < 0 || c.RepairBias > 1 {
		return errors.New("repairBias must be in [0,1]")
	}
	if c.Runs < 1 {
		return errors.New("runs must be >= 1")
	}
	return c.Objective.Validate()
}

type State int32

const (
	StateInitializing State = iota
	StateSearching
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateSearching:
		return "searching"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

type Snapshot struct {
	Iteration   int     `json:"iteration"`
	Temperature float64 `json:"temperature"`
	Current     Score   `json:"current"`
	Best        Score   `json:"best"`
}

type Metrics struct {
	Run              int           `json:"run"`
	Seed             int64         `json:"seed"`
	Iterations       int           `json:"iterations"`
	Accepted         int           `json:"accepted"`
	Improvements     int           `json:"improvements"`
	AcceptedWorse    int           `json:"acceptedWorse"`
	Rejected         int           `json:"rejected"`
	RelocateSelects  int           `json:"relocateSelects"`
	SwapSelects      int           `json:"swapSelects"`
	InitialScore     Score         `json:"initialScore"`
	BestScore        Score         `json:"bestScore"`
	FinalScore       Score         `json:"finalScore"`
	FinalTemperature float64       `json:"finalTemperature"`
	Snapshots        []Snapshot    `json:"snapshots,omitempty"`
	StopReason       string        `json:"stopReason"`
	Duration         time.Duration `json:"duration"`
}

// Progress is emitted every SnapshotEvery iterations and once on termination.
type Progress struct {
	Run         int     `json:"run"`
	State       State   `json:"state"`
	Iteration   int     `json:"iteration"`
	Temperature float64 `json:"temperature"`
	Current     Score   `json:"current"`
	Best        Score   `json:"best"`
}

type Result struct {
	Assignment *Assignment
	Score      Score
	Partial    bool
	Warning    *PartialFeasibilityWarning
	Metrics    Metrics
	RunScores  []Score // best score per run, by run index
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithObserver registers a progress callback. With Runs > 1 it is called from
// several goroutines.
func WithObserver(fn func(Progress)) Option {
	return func(e *Engine) { e.observer = fn }
}

// Engine runs simulated annealing over one problem.
type Engine struct {
	p        *Problem
	cfg      Config
	log      *zap.Logger
	observer func(Progress)
	state    atomic.Int32
}

func NewEngine(p *Problem, cfg Config, opts ...Option) (*Engine, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("solver config: %w", err)
	}
	e := &Engine{p: p, cfg: cfg, log: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

func (e *Engine) Config() Config { return e.cfg }
func (e *Engine) State() State   { return State(e.state.Load()) }

// Solve runs the search and returns the best assignment found. Structural
// errors come back before any iteration; an assignment that still breaks hard
// constraints comes back as a partial Result.
func (e *Engine) Solve(ctx context.Context) (*Result, error) {
	e.state.Store(int32(StateInitializing))
	defer e.state.Store(int32(StateTerminated))
	seed := e.cfg.Seed
	switch {
	case seed == 0:
		seed = DefaultSeed
	case seed < 0:
		seed = time.Now().UnixNano()
	}
	// one deadline for the whole call, shared by every run
	deadline := time.Now().Add(e.cfg.TimeBudget)
	var (
		res *Result
		err error
	)
	if e.cfg.Runs > 1 {
		res, err = e.solveParallel(ctx, seed, deadline)
	} else {
		res, err = e.run(ctx, 0, seed, deadline)
		if res != nil {
			res.RunScores = []Score{res.Score}
		}
	}
	if err != nil {
		return nil, err
	}
	e.log.Info("grouping finished",
		zap.Int("run", res.Metrics.Run),
		zap.Int64("seed", res.Metrics.Seed),
		zap.Int("iterations", res.Metrics.Iterations),
		zap.Int("hard", res.Score.Hard),
		zap.Float64("soft", res.Score.Soft),
		zap.Bool("partial", res.Partial),
		zap.String("stop", res.Metrics.StopReason),
		zap.Duration("took", res.Metrics.Duration))
	return res, nil
}

// run is one annealing search. A run that starts after deadline stops before
// its first iteration with StopTimeBudget.
func (e *Engine) run(ctx context.Context, run int, seed int64, deadline time.Time) (*Result, error) {
	start := time.Now()
	rng := rand.New(rand.NewSource(seed))
	ev := NewEvaluator(e.p, e.cfg.Objective)
	curr, err := greedySeed(e.p)
	if err != nil {
		return nil, err
	}
	t := NewTracker(ev, curr)
	best, bestScore := curr.Clone(), t.Score()
	m := Metrics{Run: run, Seed: seed, InitialScore: bestScore, BestScore: bestScore}
	e.log.Debug("seeded",
		zap.Int("run", run),
		zap.Int("hard", bestScore.Hard),
		zap.Float64("soft", bestScore.Soft))
	e.state.Store(int32(StateSearching))

	temp := e.cfg.InitialTemp
	nb := NewNeighborhood(e.p, rng, e.cfg.RepairBias)
	m.StopReason = StopNoMoves
	if bestScore.perfect() {
		m.StopReason = StopPerfect
	} else {
		for mv := range nb.Moves(t) {
			if reason := e.stopReason(ctx, m.Iterations, deadline); reason != "" {
				m.StopReason = reason
				break
			}
			m.Iterations++
			if mv.Kind == MoveSwap {
				m.SwapSelects++
			} else {
				m.RelocateSelects++
			}
			d := t.Delta(mv)
			if e.accept(t.Score(), d, temp, rng) {
				t.Apply(mv)
				m.Accepted++
				if d.Compare(Score{}) > 0 {
					m.AcceptedWorse++
				}
				if t.Score().Less(bestScore) {
					best, bestScore = t.Assignment().Clone(), t.Score()
					m.Improvements++
				}
			} else {
				m.Rejected++
			}
			temp *= e.cfg.Cooling
			if m.Iterations%e.cfg.SnapshotEvery == 0 {
				t.Resync()
				snap := Snapshot{Iteration: m.Iterations, Temperature: temp, Current: t.Score(), Best: bestScore}
				m.Snapshots = append(m.Snapshots, snap)
				e.emit(Progress{Run: run, State: StateSearching, Iteration: m.Iterations, Temperature: temp, Current: snap.Current, Best: bestScore})
			}
			if bestScore.perfect() {
				m.StopReason = StopPerfect
				break
			}
		}
	}

	// rescore from scratch so the reported score carries no incremental drift
	bestScore = ev.Evaluate(best)
	m.BestScore = bestScore
	m.FinalScore = ev.Evaluate(t.Assignment())
	m.FinalTemperature = temp
	m.Duration = time.Since(start)
	res := &Result{Assignment: best, Score: bestScore, Metrics: m}
	if !bestScore.Feasible() {
		res.Partial = true
		res.Warning = e.partialWarning(ev, best, bestScore)
	}
	e.emit(Progress{Run: run, State: StateTerminated, Iteration: m.Iterations, Temperature: temp, Current: m.FinalScore, Best: bestScore})
	return res, nil
}

// stopReason checks the termination conditions between iterations.
func (e *Engine) stopReason(ctx context.Context, iterations int, deadline time.Time) string {
	if err := ctx.Err(); err != nil {
		return err.Error()
	}
	if e.cfg.MaxIterations > 0 && iterations >= e.cfg.MaxIterations {
		return StopMaxIterations
	}
	if !time.Now().Before(deadline) {
		return StopTimeBudget
	}
	return ""
}

// accept applies the annealing rule to a move changing the score by d.
func (e *Engine) accept(curr, d Score, temp float64, rng *rand.Rand) bool {
	if d.Hard < 0 || (d.Hard == 0 && d.Soft <= softEpsilon) {
		return true
	}
	if temp <= 0 {
		return false
	}
	var cost float64
	switch {
	case d.Hard == 0:
		cost = d.Soft
	case curr.Hard == 0:
		cost = float64(d.Hard)*e.cfg.HardPenalty + d.Soft
	default:
		return false
	}
	return rng.Float64() < math.Exp(-cost/temp)
}

func (e *Engine) partialWarning(ev *Evaluator, a *Assignment, s Score) *PartialFeasibilityWarning {
	w := &PartialFeasibilityWarning{Violations: s.Hard}
	for c := range e.p.cars {
		if ev.CarScore(a, c).Hard > 0 {
			w.Cars = append(w.Cars, e.p.cars[c].ID)
		}
	}
	return w
}

func (e *Engine) emit(p Progress) {
	if e.observer != nil {
		e.observer(p)
	}
	e.log.Debug("progress",
		zap.Int("run", p.Run),
		zap.Stringer("state", p.State),
		zap.Int("iteration", p.Iteration),
		zap.Float64("temperature", p.Temperature),
		zap.Int("bestHard", p.Best.Hard),
		zap.Float64("bestSoft", p.Best.Soft))
}
