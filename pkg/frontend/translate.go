package frontend

import (
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/ssa"

	"github.com/locksight/locksight/pkg/ir"
)

// PosIndex maps IR locations back to token positions so diagnostics can be
// reported through go/analysis.
type PosIndex struct {
	m map[string]token.Pos
}

func (p *PosIndex) Pos(loc ir.Location) token.Pos {
	return p.m[loc.String()]
}

func (p *PosIndex) record(fset *token.FileSet, pos token.Pos) ir.Location {
	if !pos.IsValid() {
		return ir.Location{}
	}
	position := fset.Position(pos)
	loc := ir.Location{File: position.Filename, Line: position.Line}
	if _, ok := p.m[loc.String()]; !ok {
		p.m[loc.String()] = pos
	}
	return loc
}

// Translate lowers SSA functions into an IR program. Each receiver type (or,
// for free functions, the package) becomes a class, so the report engine can
// enumerate the sibling methods of a lock's owner.
func Translate(fset *token.FileSet, funcs []*ssa.Function, files []*ast.File) (*ir.Program, *PosIndex) {
	ann := parseAnnotations(fset, files, funcs)
	prog := ir.NewProgram()
	idx := &PosIndex{m: make(map[string]token.Pos)}

	for _, fn := range funcs {
		if len(fn.Blocks) == 0 {
			continue
		}
		proc := translateFunc(fn, ann, fset, idx)
		prog.AddProc(proc)
		registerMethod(prog, proc.Attrs.Name)
	}
	return prog, idx
}

func translateFunc(fn *ssa.Function, ann *annotations, fset *token.FileSet, idx *PosIndex) *ir.Procedure {
	attrs := ir.Attributes{
		Name:       procnameFor(fn),
		Loc:        idx.record(fset, fn.Pos()),
		Language:   ir.LangGo,
		IsLockless: ann.lockless[fn],
		IsAutogen:  fn.Synthetic != "",
	}
	for _, p := range fn.Params {
		attrs.Formals = append(attrs.Formals, ir.Formal{
			Name: p.Name(),
			Type: baseTypeName(p.Type()),
		})
	}

	blocks := make([]*ir.Block, 0, len(fn.Blocks))
	for _, b := range fn.Blocks {
		blk := &ir.Block{ID: b.Index}
		for _, s := range b.Succs {
			blk.Succs = append(blk.Succs, s.Index)
		}
		for _, instr := range b.Instrs {
			// Deferred unlocks are intentionally not modeled: treating
			// defer mu.Unlock() as releasing at the defer site would make
			// the rest of the body look unlocked. Locks held to function
			// exit are what the deadlock composition needs anyway.
			call, ok := instr.(*ssa.Call)
			if !ok {
				continue
			}
			if di := translateCall(fn, call, fset, idx); di != nil {
				blk.Instrs = append(blk.Instrs, *di)
			}
		}
		blocks = append(blocks, blk)
	}
	return &ir.Procedure{Attrs: attrs, CFG: ir.NewGraph(blocks)}
}

func translateCall(fn *ssa.Function, call *ssa.Call, fset *token.FileSet, idx *PosIndex) *ir.DirectCall {
	common := call.Common()
	loc := idx.record(fset, call.Pos())

	if common.IsInvoke() {
		// Interface dispatch: nothing to resolve statically.
		return nil
	}

	callee := common.StaticCallee()
	if callee == nil {
		return nil
	}

	methodName := callee.Name()
	if isLockMethod(methodName) && len(common.Args) > 0 {
		if base, field, class, ok := mutexReceiver(common.Args[0], methodName); ok {
			exp := resolveExp(fn, base)
			if pe, isPath := exp.(ir.PathExp); isPath && field != "" {
				pe.Path.Fields = append(pe.Path.Fields, ir.Field{Name: field})
				exp = pe
			}
			return &ir.DirectCall{
				Callee:  ir.Procname{Class: class, Method: methodName},
				Actuals: []ir.Exp{exp},
				At:      loc,
			}
		}
	}

	actuals := make([]ir.Exp, 0, len(common.Args))
	for _, arg := range common.Args {
		actuals = append(actuals, resolveExp(fn, arg))
	}
	return &ir.DirectCall{Callee: procnameFor(callee), Actuals: actuals, At: loc}
}

// procnameFor names a function by its receiver type when it has one, and by
// its package otherwise.
func procnameFor(fn *ssa.Function) ir.Procname {
	if recv := fn.Signature.Recv(); recv != nil {
		return ir.Procname{Class: baseTypeName(recv.Type()), Method: fn.Name()}
	}
	return ir.Procname{Class: packageClass(fn.Pkg), Method: fn.Name()}
}

func registerMethod(prog *ir.Program, name ir.Procname) {
	if name.Class == "" {
		return
	}
	c, ok := prog.Classes[name.Class]
	if !ok {
		c = &ir.Class{Name: name.Class}
		prog.Classes[name.Class] = c
	}
	c.Methods = append(c.Methods, name)
}
