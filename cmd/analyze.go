package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/locksight/locksight/internal/logging"
	"github.com/locksight/locksight/pkg/checker"
	"github.com/locksight/locksight/pkg/ir"
	"github.com/locksight/locksight/pkg/models"
	"github.com/locksight/locksight/pkg/report"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <program.json>",
	Short: "Analyze an exported IR program",
	Example: `  locksight analyze ./program.json
  locksight analyze ./program.json --format sarif --output findings.sarif
  locksight analyze ./program.json --models extra-models.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		logging.SetLevel(logging.Debug)
	}

	prog, err := ir.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
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
	return writeResult(args[0], prog, issues)
}

// runPipeline summarizes every procedure and feeds the summaries through the
// report engine.
func runPipeline(prog *ir.Program, classifier *models.Classifier) ([]report.Issue, error) {
	store := checker.NewMemStore()
	checker.AnalyzeProgram(prog, store, checker.Options{
		Jobs:       flagJobs,
		Classifier: classifier,
	})

	config := report.DefaultConfig()
	config.Deduplicate = !flagNoDedup

	engine := report.NewEngine(prog, store, config)
	for _, name := range prog.ProcNames() {
		sum, ok := store.Read(name, name)
		if !ok {
			continue
		}
		if err := engine.ReportProcedure(prog.Proc(name), sum); err != nil {
			logging.Warnf("reporting %s: %v", name, err)
		}
	}
	return engine.Issues(), nil
}

func writeResult(source string, prog *ir.Program, issues []report.Issue) error {
	out, cleanup, err := outputWriter()
	if err != nil {
		return err
	}
	defer cleanup()

	w, err := report.NewWriter(flagFormat, out)
	if err != nil {
		return err
	}
	return w.Write(&report.Result{
		Program:            source,
		ProceduresAnalyzed: len(prog.Procedures),
		Issues:             issues,
	})
}

// outputWriter returns a writer for the output destination (file or stdout).
func outputWriter() (io.Writer, func(), error) {
	if flagOutput == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(flagOutput)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}
