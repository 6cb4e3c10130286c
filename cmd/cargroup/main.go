// Command cargroup assigns students to cars from two CSV tables.
package main

import (
	"errors"
	"os"

	"cargroup/internal/opt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cargroup",
	Short: "Balanced car-pool grouping",
	Long: `cargroup assigns every student to a car so that no car is over capacity,
every occupied car has a licensed driver, and gender and grade mixes are
as even as the seats allow.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for bad or impossible input, 3 for a partial result and 1
// for anything else.
func exitCode(err error) int {
	var partial *opt.PartialFeasibilityWarning
	switch {
	case errors.Is(err, opt.ErrSchema), errors.Is(err, opt.ErrInfeasible):
		return 2
	case errors.As(err, &partial):
		return 3
	}
	return 1
}
