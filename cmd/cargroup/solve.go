package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"cargroup/internal/config"
	"cargroup/internal/integrations/table"
	"cargroup/internal/logger"
	"cargroup/internal/opt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type solveFlags struct {
	students      string
	cars          string
	configPath    string
	out           string
	json          bool
	acceptPartial bool

	seed       int64
	iterations int
	timeBudget float64
	initTemp   float64
	cooling    float64
	runs       int
}

var solveOpts solveFlags

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Group students into cars",
	Long: `Reads the students and cars tables, runs simulated annealing and writes
one row per student: student_id, car_id, occupancy, capacity.`,
	Args: cobra.NoArgs,
	RunE: runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.StringVar(&solveOpts.students, "students", "", "students CSV (student_id, license, gender, grade[, car_id])")
	f.StringVar(&solveOpts.cars, "cars", "", "cars CSV (car_id, capacity)")
	f.StringVar(&solveOpts.configPath, "config", "", "YAML config file; flags override its solver section")
	f.StringVarP(&solveOpts.out, "out", "o", "", "output CSV path (default stdout)")
	f.BoolVar(&solveOpts.json, "json", false, "print the full result as JSON instead of CSV")
	f.BoolVar(&solveOpts.acceptPartial, "accept-partial", false, "exit 0 even when hard constraints remain violated")
	f.Int64Var(&solveOpts.seed, "seed", 0, "random seed (0 uses the fixed default, negative picks one from the clock)")
	f.IntVar(&solveOpts.iterations, "iterations", 0, "iteration cap per run")
	f.Float64Var(&solveOpts.timeBudget, "time-budget", 0, "wall time budget in seconds")
	f.Float64Var(&solveOpts.initTemp, "init-temp", 0, "initial annealing temperature")
	f.Float64Var(&solveOpts.cooling, "cooling", 0, "geometric cooling rate in (0,1)")
	f.IntVar(&solveOpts.runs, "runs", 0, "independent runs; the best one wins")
	_ = solveCmd.MarkFlagRequired("students")
	_ = solveCmd.MarkFlagRequired("cars")
	rootCmd.AddCommand(solveCmd)
}

type solveOutput struct {
	Score   opt.Score                      `json:"score"`
	Partial bool                           `json:"partial"`
	Warning *opt.PartialFeasibilityWarning `json:"warning,omitempty"`
	Rows    []opt.Row                      `json:"rows"`
	Summary opt.Summary                    `json:"summary"`
	Metrics opt.Metrics                    `json:"metrics"`
	Runs    []opt.Score                    `json:"runs,omitempty"`
}

func runSolve(cmd *cobra.Command, _ []string) error {
	solver, err := solverConfig(cmd, solveOpts)
	if err != nil {
		return err
	}
	p, err := loadProblem(solveOpts.students, solveOpts.cars)
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(logger.LevelFromEnv(), cmd.ErrOrStderr())
	defer func() { _ = log.Sync() }()

	eng, err := opt.NewEngine(p, solver.Engine(), opt.WithLogger(log))
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := eng.Solve(ctx)
	if err != nil {
		return err
	}
	log.Info("solved",
		zap.Int("hard", res.Score.Hard),
		zap.Float64("soft", res.Score.Soft),
		zap.String("stop", res.Metrics.StopReason),
		zap.Int64("seed", res.Metrics.Seed))

	w := cmd.OutOrStdout()
	if solveOpts.out != "" {
		file, err := os.Create(solveOpts.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = file.Close() }()
		w = file
	}
	if err := writeResult(w, p, eng, res, solveOpts.json); err != nil {
		return err
	}
	if res.Partial && !solveOpts.acceptPartial {
		return res.Warning
	}
	return nil
}

// solverConfig layers defaults, the optional config file and the flags the
// user actually set.
func solverConfig(cmd *cobra.Command, o solveFlags) (config.Solver, error) {
	cfg := config.Defaults()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return config.Solver{}, err
		}
	}
	s := cfg.Solver
	changed := cmd.Flags().Changed
	if changed("seed") {
		s.RandomSeed = o.seed
	}
	if changed("iterations") {
		s.MaxIterations = o.iterations
	}
	if changed("time-budget") {
		s.TimeBudgetSeconds = o.timeBudget
	}
	if changed("init-temp") {
		s.InitialTemperature = o.initTemp
	}
	if changed("cooling") {
		s.CoolingRate = o.cooling
	}
	if changed("runs") {
		s.Runs = o.runs
	}
	return s, nil
}

func loadProblem(studentsPath, carsPath string) (*opt.Problem, error) {
	st, err := table.ReadFile(studentsPath, "students")
	if err != nil {
		return nil, err
	}
	students, err := table.Students(st)
	if err != nil {
		return nil, err
	}
	ct, err := table.ReadFile(carsPath, "cars")
	if err != nil {
		return nil, err
	}
	cars, err := table.Cars(ct)
	if err != nil {
		return nil, err
	}
	return opt.NewProblem(students, cars)
}

func writeResult(w io.Writer, p *opt.Problem, eng *opt.Engine, res *opt.Result, asJSON bool) error {
	rows := opt.Export(p, res.Assignment)
	if !asJSON {
		return table.WriteCSV(w, rows)
	}
	m := res.Metrics
	m.Snapshots = nil
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(solveOutput{
		Score:   res.Score,
		Partial: res.Partial,
		Warning: res.Warning,
		Rows:    rows,
		Summary: opt.Summarize(p, res.Assignment, opt.NewEvaluator(p, eng.Config().Objective)),
		Metrics: m,
		Runs:    res.RunScores,
	})
}
