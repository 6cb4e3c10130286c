package api

import (
	"fmt"

	"cargroup/internal/config"
	"cargroup/internal/model"
	"cargroup/internal/opt"
)

func validateGroupingRequest(req *model.GroupingRequest) error {
	if len(req.Students) == 0 {
		return fmt.Errorf("students must not be empty")
	}
	if len(req.Cars) == 0 {
		return fmt.Errorf("cars must not be empty")
	}
	if req.Config != nil {
		return validateSolverConfig(req.Config)
	}
	return nil
}

func validateSolverConfig(c *config.Solver) error {
	if c.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be >= 0")
	}
	if c.TimeBudgetSeconds < 0 {
		return fmt.Errorf("time_budget_seconds must be >= 0")
	}
	if c.TimeBudgetSeconds > 300 {
		return fmt.Errorf("time_budget_seconds must be <= 300")
	}
	if c.InitialTemperature < 0 {
		return fmt.Errorf("initial_temperature must be >= 0")
	}
	if c.CoolingRate != 0 && (c.CoolingRate <= 0 || c.CoolingRate >= 1) {
		return fmt.Errorf("cooling_rate must be in (0,1)")
	}
	if c.Runs < 0 || c.Runs > 64 {
		return fmt.Errorf("runs must be in [0,64]")
	}
	if c.RepairBias < 0 || c.RepairBias > 1 {
		return fmt.Errorf("repair_bias must be in [0,1]")
	}
	if c.HardPenalty < 0 {
		return fmt.Errorf("hard_penalty must be >= 0")
	}
	if c.SnapshotEvery < 0 {
		return fmt.Errorf("snapshot_every must be >= 0")
	}
	return opt.Objective{Weights: c.Weights}.Validate()
}
