package cmd

import (
	"github.com/spf13/cobra"
)

var (
	flagFormat  string
	flagOutput  string
	flagJobs    int
	flagNoDedup bool
	flagModels  []string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "locksight",
	Short: "Detect potential deadlocks, UI-thread starvation, and lock-contract violations",
	Long: `Locksight statically analyzes programs for concurrency defects:
  - Deadlocks (lock-order inversions and self deadlocks)
  - UI-thread starvation (blocking calls reachable from UI callbacks)
  - Strict Mode violations on the UI thread
  - Lockless-annotation violations

Run 'locksight analyze <program.json>' on an exported IR program, or
'locksight vet ./...' to check Go packages directly.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text, json, or sarif")
	rootCmd.PersistentFlags().StringVar(&flagOutput, "output", "", "Write output to file instead of stdout")
	rootCmd.PersistentFlags().IntVar(&flagJobs, "jobs", 0, "Number of analysis workers (0 = number of CPUs)")
	rootCmd.PersistentFlags().BoolVar(&flagNoDedup, "no-dedup", false, "Emit every report instead of deduplicating per line")
	rootCmd.PersistentFlags().StringSliceVar(&flagModels, "models", nil, "YAML model files extending the built-in call models")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
}
