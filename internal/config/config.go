package config

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	"cargroup/internal/opt"

	"gopkg.in/yaml.v3"
)

// Server holds process level settings.
type Server struct {
	Port          string  `yaml:"port" json:"port"`
	RedisURL      string  `yaml:"redis_url" json:"-"`
	LogLevel      string  `yaml:"log_level" json:"logLevel"`
	RateRPS       float64 `yaml:"rate_rps" json:"rateRps"`
	RateBurst     int     `yaml:"rate_burst" json:"rateBurst"`
	MaxStoredRuns int     `yaml:"max_stored_runs" json:"maxStoredRuns"`
}

// Solver is the user facing shape of the annealing settings. Zero fields
// mean "keep the default" when overlaid.
type Solver struct {
	MaxIterations      int                `yaml:"max_iterations" json:"max_iterations,omitempty"`
	TimeBudgetSeconds  float64            `yaml:"time_budget_seconds" json:"time_budget_seconds,omitempty"`
	InitialTemperature float64            `yaml:"initial_temperature" json:"initial_temperature,omitempty"`
	CoolingRate        float64            `yaml:"cooling_rate" json:"cooling_rate,omitempty"`
	RandomSeed         int64              `yaml:"random_seed" json:"random_seed,omitempty"`
	Runs               int                `yaml:"runs" json:"runs,omitempty"`
	RepairBias         float64            `yaml:"repair_bias" json:"repair_bias,omitempty"`
	HardPenalty        float64            `yaml:"hard_penalty" json:"hard_penalty,omitempty"`
	SnapshotEvery      int                `yaml:"snapshot_every" json:"snapshot_every,omitempty"`
	Weights            map[string]float64 `yaml:"weights" json:"weights,omitempty"`
	IgnoreGroupSize    bool               `yaml:"ignore_group_size" json:"ignore_group_size,omitempty"`
}

type Config struct {
	Server Server `yaml:"server" json:"server"`
	Solver Solver `yaml:"solver" json:"solver"`
}

func Defaults() Config {
	d := opt.DefaultConfig()
	return Config{
		Server: Server{
			Port:          "8080",
			LogLevel:      "info",
			RateRPS:       5,
			RateBurst:     10,
			MaxStoredRuns: 256,
		},
		Solver: Solver{
			MaxIterations:      d.MaxIterations,
			TimeBudgetSeconds:  d.TimeBudget.Seconds(),
			InitialTemperature: d.InitialTemp,
			CoolingRate:        d.Cooling,
			Runs:               d.Runs,
			RepairBias:         d.RepairBias,
			HardPenalty:        d.HardPenalty,
			SnapshotEvery:      d.SnapshotEvery,
			Weights:            maps.Clone(d.Objective.Weights),
		},
	}
}

// Load reads a YAML file over Defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var file Config
	if err := dec.Decode(&file); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Server = cfg.Server.overlay(file.Server)
	cfg.Solver = cfg.Solver.Overlay(file.Solver)
	return cfg, nil
}

// FromEnv loads CARGROUP_CONFIG when set, then applies PORT, REDIS_URL,
// LOG_LEVEL, RATE_RPS and RATE_BURST.
func FromEnv() (Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CARGROUP_CONFIG")); path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.Server.RedisURL = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := getenv("RATE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_RPS: %w", err)
		}
		c.Server.RateRPS = f
	}
	if v := getenv("RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_BURST: %w", err)
		}
		c.Server.RateBurst = n
	}
	return nil
}

func (s Server) overlay(o Server) Server {
	if o.Port != "" {
		s.Port = o.Port
	}
	if o.RedisURL != "" {
		s.RedisURL = o.RedisURL
	}
	if o.LogLevel != "" {
		s.LogLevel = o.LogLevel
	}
	if o.RateRPS != 0 {
		s.RateRPS = o.RateRPS
	}
	if o.RateBurst != 0 {
		s.RateBurst = o.RateBurst
	}
	if o.MaxStoredRuns != 0 {
		s.MaxStoredRuns = o.MaxStoredRuns
	}
	return s
}

// Overlay returns s with every non-zero field of o applied on top.
func (s Solver) Overlay(o Solver) Solver {
	if o.MaxIterations != 0 {
		s.MaxIterations = o.MaxIterations
	}
	if o.TimeBudgetSeconds != 0 {
		s.TimeBudgetSeconds = o.TimeBudgetSeconds
	}
	if o.InitialTemperature != 0 {
		s.InitialTemperature = o.InitialTemperature
	}
	if o.CoolingRate != 0 {
		s.CoolingRate = o.CoolingRate
	}
	if o.RandomSeed != 0 {
		s.RandomSeed = o.RandomSeed
	}
	if o.Runs != 0 {
		s.Runs = o.Runs
	}
	if o.RepairBias != 0 {
		s.RepairBias = o.RepairBias
	}
	if o.HardPenalty != 0 {
		s.HardPenalty = o.HardPenalty
	}
	if o.SnapshotEvery != 0 {
		s.SnapshotEvery = o.SnapshotEvery
	}
	if o.Weights != nil {
		s.Weights = maps.Clone(o.Weights)
	}
	if o.IgnoreGroupSize {
		s.IgnoreGroupSize = true
	}
	return s
}

// Engine converts to the optimizer's configuration.
func (s Solver) Engine() opt.Config {
	return opt.Config{
		MaxIterations: s.MaxIterations,
		TimeBudget:    time.Duration(s.TimeBudgetSeconds * float64(time.Second)),
		InitialTemp:   s.InitialTemperature,
		Cooling:       s.CoolingRate,
		Seed:          s.RandomSeed,
		Runs:          s.Runs,
		RepairBias:    s.RepairBias,
		HardPenalty:   s.HardPenalty,
		SnapshotEvery: s.SnapshotEvery,
		Objective: opt.Objective{
			Weights:         maps.Clone(s.Weights),
			IgnoreGroupSize: s.IgnoreGroupSize,
		},
	}
}
