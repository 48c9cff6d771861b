package frontend

import (
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/buildssa"

	"github.com/locksight/locksight/pkg/checker"
	"github.com/locksight/locksight/pkg/report"
)

// Analyzer adapts the core analysis to the go/analysis framework so Go
// packages can be checked in-process (and so the frontend is testable with
// analysistest).
var Analyzer = &analysis.Analyzer{
	Name:     "locksight",
	Doc:      "detects potential deadlocks from inconsistent lock ordering",
	Run:      run,
	Requires: []*analysis.Analyzer{buildssa.Analyzer},
}

func run(pass *analysis.Pass) (any, error) {
	ssaResult, ok := pass.ResultOf[buildssa.Analyzer].(*buildssa.SSA)
	if !ok {
		return nil, nil
	}

	prog, idx := Translate(pass.Fset, ssaResult.SrcFuncs, pass.Files)
	store := checker.NewMemStore()
	checker.AnalyzeProgram(prog, store, checker.Options{Jobs: 1})

	engine := report.NewEngine(prog, store, report.DefaultConfig())
	for _, name := range prog.ProcNames() {
		sum, ok := store.Read(name, name)
		if !ok {
			continue
		}
		if err := engine.ReportProcedure(prog.Proc(name), sum); err != nil {
			return nil, err
		}
	}

	for _, issue := range engine.Issues() {
		pos := idx.Pos(issue.Loc)
		if !pos.IsValid() {
			continue
		}
		pass.Reportf(pos, "%s", issue.Message)
	}
	return nil, nil
}
