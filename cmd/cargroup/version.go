package main

import (
	"fmt"

	"cargroup/internal/buildinfo"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		info := buildinfo.Info()
		line := "cargroup version " + info["version"]
		if c := info["commit"]; c != "" {
			line += " (" + c + ")"
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
