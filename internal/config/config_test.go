package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cargroup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeFile(t, `
server:
  port: "9090"
solver:
  max_iterations: 500
  cooling_rate: 0.99
  weights:
    gender: 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.RateBurst)
	assert.Equal(t, 500, cfg.Solver.MaxIterations)
	assert.Equal(t, 0.99, cfg.Solver.CoolingRate)
	assert.Equal(t, 1.0, cfg.Solver.InitialTemperature)
	assert.Equal(t, map[string]float64{"gender": 2}, cfg.Solver.Weights)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeFile(t, "solver:\n  tabu_tenure: 4\n"))
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CARGROUP_CONFIG", writeFile(t, "server:\n  port: \"7000\"\n"))
	t.Setenv("PORT", "7001")
	t.Setenv("RATE_RPS", "2.5")
	t.Setenv("RATE_BURST", "3")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "7001", cfg.Server.Port)
	assert.Equal(t, 2.5, cfg.Server.RateRPS)
	assert.Equal(t, 3, cfg.Server.RateBurst)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Server.RedisURL)

	t.Setenv("RATE_BURST", "lots")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestSolverEngine(t *testing.T) {
	s := Defaults().Solver.Overlay(Solver{TimeBudgetSeconds: 1.5, RandomSeed: 7, Runs: 4})
	c := s.Engine()
	assert.Equal(t, 1500*time.Millisecond, c.TimeBudget)
	assert.Equal(t, int64(7), c.Seed)
	assert.Equal(t, 4, c.Runs)
	assert.Equal(t, 0.995, c.Cooling)
	assert.NoError(t, c.Validate())
}
