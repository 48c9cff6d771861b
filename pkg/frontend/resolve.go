// Package frontend translates Go packages, via go/ssa, into the analyzer's
// IR: sync.Mutex and sync.RWMutex operations become lock effects, static
// calls become direct calls with access-path actuals, and receiver types
// become the class tables the report engine composes over.
package frontend

import (
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/locksight/locksight/pkg/ir"
)

// resolveExp traces an SSA value back to its origin and renders it as an IR
// expression. Values rooted at parameters or globals become access paths;
// everything else is a local, which lock recognition drops.
func resolveExp(fn *ssa.Function, v ssa.Value) ir.Exp {
	var fields []ir.Field
	v = canonicalizeBase(v)
	for {
		fa, ok := v.(*ssa.FieldAddr)
		if !ok {
			break
		}
		if name, ok := fieldName(fa); ok {
			fields = append([]ir.Field{{Name: name}}, fields...)
		}
		v = canonicalizeBase(fa.X)
	}

	switch base := v.(type) {
	case *ssa.Parameter:
		idx := paramIndex(fn, base)
		if idx < 0 {
			return ir.LocalExp{Name: base.Name()}
		}
		return ir.PathExp{Path: ir.AccessPath{
			Root: ir.Root{
				Kind:  ir.RootFormal,
				Index: idx,
				Name:  base.Name(),
				Type:  baseTypeName(base.Type()),
			},
			Fields: fields,
		}}
	case *ssa.Global:
		return ir.PathExp{Path: ir.AccessPath{
			Root: ir.Root{
				Kind: ir.RootGlobal,
				Name: base.String(),
				Type: packageClass(base.Pkg),
			},
			Fields: fields,
		}}
	default:
		return ir.LocalExp{Name: v.Name()}
	}
}

func fieldName(fa *ssa.FieldAddr) (string, bool) {
	ptr, ok := fa.X.Type().Underlying().(*types.Pointer)
	if !ok {
		return "", false
	}
	st, ok := ptr.Elem().Underlying().(*types.Struct)
	if !ok || fa.Field >= st.NumFields() {
		return "", false
	}
	return st.Field(fa.Field).Name(), true
}

func paramIndex(fn *ssa.Function, p *ssa.Parameter) int {
	for i, param := range fn.Params {
		if param == p {
			return i
		}
	}
	return -1
}

// canonicalizeBase strips uniform phi nodes and loads from lifted cells so
// two uses of the same logical variable resolve to the same canonical value.
func canonicalizeBase(v ssa.Value) ssa.Value {
	v = unwrapPhi(v)
	seen := make(map[ssa.Value]bool)
	for {
		if seen[v] {
			return v
		}
		seen[v] = true
		unop, ok := v.(*ssa.UnOp)
		if !ok || unop.Op != token.MUL {
			return v
		}
		v = unwrapPhi(unop.X)
	}
}

func unwrapPhi(v ssa.Value) ssa.Value {
	visited := make(map[*ssa.Phi]bool)
	for {
		phi, ok := v.(*ssa.Phi)
		if !ok {
			return v
		}
		resolved := resolvePhiIfUniform(phi, visited)
		if resolved == nil {
			return v
		}
		v = resolved
	}
}

// resolvePhiIfUniform returns the single unique value if all phi edges agree,
// or nil if they diverge. The visited set prevents infinite recursion on phi
// cycles.
func resolvePhiIfUniform(phi *ssa.Phi, visited map[*ssa.Phi]bool) ssa.Value {
	if visited[phi] {
		return nil
	}
	visited[phi] = true

	var unique ssa.Value
	for _, edge := range phi.Edges {
		if p, ok := edge.(*ssa.Phi); ok {
			if resolved := resolvePhiIfUniform(p, visited); resolved != nil {
				edge = resolved
			}
		}
		if unique == nil {
			unique = edge
		} else if unique != edge {
			return nil
		}
	}
	return unique
}

// baseTypeName names the element type behind pointers, used as the owner
// class of parameter-rooted locks.
func baseTypeName(t types.Type) string {
	if ptr, ok := t.Underlying().(*types.Pointer); ok {
		t = ptr.Elem()
	}
	if named, ok := t.(*types.Named); ok {
		obj := named.Obj()
		if obj.Pkg() != nil {
			return obj.Pkg().Path() + "." + obj.Name()
		}
		return obj.Name()
	}
	return t.String()
}

func packageClass(pkg *ssa.Package) string {
	if pkg == nil || pkg.Pkg == nil {
		return ""
	}
	return pkg.Pkg.Path()
}

// isMutexType reports whether t is sync.Mutex or sync.RWMutex.
func isMutexType(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	if obj == nil || obj.Pkg() == nil || obj.Pkg().Path() != "sync" {
		return false
	}
	return obj.Name() == "Mutex" || obj.Name() == "RWMutex"
}

func isRWMutexType(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj != nil && obj.Pkg() != nil && obj.Pkg().Path() == "sync" && obj.Name() == "RWMutex"
}

func isLockMethod(name string) bool {
	switch name {
	case "Lock", "Unlock", "RLock", "RUnlock", "TryLock":
		return true
	}
	return false
}

func isRWOnlyMethod(name string) bool {
	return name == "RLock" || name == "RUnlock"
}

// mutexReceiver resolves the receiver of a lock-method call to the mutex
// value, handling both direct *sync.Mutex receivers and structs embedding a
// mutex (SSA can emit (*S).Lock(s) for promoted methods). For the embedded
// case the promoted field name comes back so the lock path stays precise.
func mutexReceiver(recv ssa.Value, methodName string) (base ssa.Value, field, class string, ok bool) {
	ptr, isPtr := recv.Type().(*types.Pointer)
	if !isPtr {
		return nil, "", "", false
	}
	if isMutexType(ptr.Elem()) {
		return recv, "", mutexClass(ptr.Elem()), true
	}
	st, isStruct := ptr.Elem().Underlying().(*types.Struct)
	if !isStruct {
		return nil, "", "", false
	}
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Anonymous() || !isMutexType(f.Type()) {
			continue
		}
		if isRWOnlyMethod(methodName) && !isRWMutexType(f.Type()) {
			continue
		}
		return recv, f.Name(), mutexClass(f.Type()), true
	}
	return nil, "", "", false
}

func mutexClass(t types.Type) string {
	if isRWMutexType(t) {
		return "sync.RWMutex"
	}
	return "sync.Mutex"
}
