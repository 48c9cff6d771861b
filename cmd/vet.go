package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/locksight/locksight/internal/logging"
	"github.com/locksight/locksight/pkg/frontend"
	"github.com/locksight/locksight/pkg/models"
)

var vetCmd = &cobra.Command{
	Use:   "vet <packages>",
	Short: "Analyze Go packages for lock-order deadlocks",
	Example: `  locksight vet ./...
  locksight vet ./internal/server --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVet,
}

func init() {
	rootCmd.AddCommand(vetCmd)
}

func runVet(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		logging.SetLevel(logging.Debug)
	}

	prog, _, err := frontend.Load(args)
	if err != nil {
		return fmt.Errorf("vet: %w", err)
	}

	classifier := models.NewClassifier()
	for _, path := range flagModels {
		if err := classifier.LoadFile(path); err != nil {
			return fmt.Errorf("--models: %w", err)
		}
	}

	issues, err := runPipeline(prog, classifier)
	if err != nil {
		return err
	}
	return writeResult(strings.Join(args, " "), prog, issues)
}
