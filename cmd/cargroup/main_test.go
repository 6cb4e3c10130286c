package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cargroup/internal/opt"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	studentsCSV = "student_id,license,gender,grade\ns1,1,F,9\ns2,0,M,9\ns3,1,M,10\ns4,0,F,10\ns5,0,F,11\n"
	carsCSV     = "car_id,capacity\nc1,3\nc2,3\n"
)

func writeTables(t *testing.T, students, cars string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	sp := filepath.Join(dir, "students.csv")
	cp := filepath.Join(dir, "cars.csv")
	require.NoError(t, os.WriteFile(sp, []byte(students), 0o600))
	require.NoError(t, os.WriteFile(cp, []byte(cars), 0o600))
	return sp, cp
}

// execute runs the root command with fresh flag state.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	solveCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "cargroup version "), out)
}

func TestSolveCSV(t *testing.T) {
	sp, cp := writeTables(t, studentsCSV, carsCSV)
	out, err := execute(t, "solve", "--students", sp, "--cars", cp, "--seed", "3", "--iterations", "500")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "student_id,car_id,occupancy,capacity", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "s1,"))
}

func TestSolveJSONToFile(t *testing.T) {
	sp, cp := writeTables(t, studentsCSV, carsCSV)
	dst := filepath.Join(t.TempDir(), "solution.json")
	_, err := execute(t, "solve", "--students", sp, "--cars", cp, "--seed", "3", "--runs", "2", "--json", "-o", dst)
	require.NoError(t, err)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	var res solveOutput
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, 0, res.Score.Hard)
	assert.False(t, res.Partial)
	assert.Len(t, res.Rows, 5)
	assert.Len(t, res.Runs, 2)
	assert.Contains(t, []int64{3, 4}, res.Metrics.Seed)
}

func TestSolveConfigFileAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cargroup.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solver:\n  max_iterations: 50\n  runs: 3\n"), 0o600))
	_, err := execute(t, "solve", "--students", "x", "--cars", "y", "--config", path, "--runs", "1")
	require.Error(t, err)

	solveOpts.configPath = path
	solveOpts.runs = 2
	require.NoError(t, solveCmd.Flags().Set("runs", "2"))
	s, err := solverConfig(solveCmd, solveOpts)
	require.NoError(t, err)
	assert.Equal(t, 50, s.MaxIterations)
	assert.Equal(t, 2, s.Runs)
}

func TestSolveExitCodes(t *testing.T) {
	sp, cp := writeTables(t, "student_id,gender,grade\ns1,F,9\n", carsCSV)
	_, err := execute(t, "solve", "--students", sp, "--cars", cp)
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))

	sp, cp = writeTables(t, studentsCSV, "car_id,capacity\nc1,2\n")
	_, err = execute(t, "solve", "--students", sp, "--cars", cp)
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))

	// one licensed student for two occupied cars cannot be fixed
	sp, cp = writeTables(t, "student_id,license,gender,grade\ns1,1,F,9\ns2,0,M,9\ns3,0,M,9\n", "car_id,capacity\nc1,2\nc2,2\n")
	out, err := execute(t, "solve", "--students", sp, "--cars", cp, "--seed", "1", "--iterations", "200")
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err))
	assert.Contains(t, out, "student_id,car_id")

	_, err = execute(t, "solve", "--students", sp, "--cars", cp, "--seed", "1", "--iterations", "200", "--accept-partial")
	assert.NoError(t, err)

	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 3, exitCode(fmt.Errorf("wrapped: %w", &opt.PartialFeasibilityWarning{Violations: 1})))
}
