package frontend

import (
	"fmt"
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/locksight/locksight/pkg/ir"
)

// Load builds SSA for the packages matching the given patterns and
// translates them into an IR program. This is the standalone-CLI path; the
// go/analysis path goes through Analyzer.
func Load(patterns []string) (*ir.Program, *PosIndex, error) {
	cfg := &packages.Config{Mode: packages.LoadAllSyntax}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, nil, fmt.Errorf("load packages: %w", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return nil, nil, fmt.Errorf("packages contain errors")
	}
	if len(pkgs) == 0 {
		return nil, nil, fmt.Errorf("no packages matched %v", patterns)
	}

	ssaProg, ssaPkgs := ssautil.Packages(pkgs, ssa.InstantiateGenerics)
	ssaProg.Build()

	inScope := make(map[*ssa.Package]bool)
	for _, p := range ssaPkgs {
		if p != nil {
			inScope[p] = true
		}
	}
	var funcs []*ssa.Function
	for fn := range ssautil.AllFunctions(ssaProg) {
		if fn.Pkg != nil && inScope[fn.Pkg] {
			funcs = append(funcs, fn)
		}
	}

	var fset *token.FileSet
	var files []*ast.File
	for _, p := range pkgs {
		fset = p.Fset
		files = append(files, p.Syntax...)
	}

	prog, idx := Translate(fset, funcs, files)
	return prog, idx, nil
}
