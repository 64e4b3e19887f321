package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lecturegen/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "lecturegen",
	Short:   "Lecture generation orchestration core",
	Long:    "lecturegen turns a study prompt and course id into a rendered slide deck and per-slide talking-avatar video segments.",
	Version: version.String(),
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
