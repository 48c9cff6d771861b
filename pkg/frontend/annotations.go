package frontend

import (
	"go/ast"
	"go/token"
	"strings"

	"golang.org/x/tools/go/ssa"
)

// annotations holds parsed comment directives for the translated packages.
type annotations struct {
	lockless map[*ssa.Function]bool // functions marked //locksight:lockless
}

// parseAnnotations scans comment groups for locksight directives and binds
// them to the function declaration they precede or sit inside.
func parseAnnotations(fset *token.FileSet, files []*ast.File, funcs []*ssa.Function) *annotations {
	ann := &annotations{lockless: make(map[*ssa.Function]bool)}

	for _, file := range files {
		var funcDecls []*ast.FuncDecl
		for _, decl := range file.Decls {
			if fd, ok := decl.(*ast.FuncDecl); ok {
				funcDecls = append(funcDecls, fd)
			}
		}

		for _, cg := range file.Comments {
			for _, comment := range cg.List {
				text := strings.TrimSpace(strings.TrimPrefix(comment.Text, "//"))
				if text != "locksight:lockless" && !strings.HasPrefix(text, "locksight:lockless ") {
					continue
				}
				if fd := findFuncForComment(fset, funcDecls, comment.Pos()); fd != nil {
					if fn := astFuncToSSA(fd, funcs); fn != nil {
						ann.lockless[fn] = true
					}
				}
			}
		}
	}
	return ann
}

// findFuncForComment finds the function declaration that contains or
// immediately follows the comment.
func findFuncForComment(fset *token.FileSet, funcDecls []*ast.FuncDecl, commentPos token.Pos) *ast.FuncDecl {
	commentLine := fset.Position(commentPos).Line
	for _, fd := range funcDecls {
		fdLine := fset.Position(fd.Pos()).Line
		if fdLine >= commentLine && fdLine <= commentLine+1 {
			return fd
		}
		if fd.Body != nil && commentPos >= fd.Pos() && commentPos <= fd.Body.End() {
			return fd
		}
	}
	return nil
}

// astFuncToSSA maps an AST FuncDecl to its SSA function by position matching.
func astFuncToSSA(fd *ast.FuncDecl, funcs []*ssa.Function) *ssa.Function {
	for _, fn := range funcs {
		if fn.Pos() == fd.Name.Pos() {
			return fn
		}
	}
	return nil
}
