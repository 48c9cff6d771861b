// Package domain implements the abstract domain of the analysis: lock
// identities, events, acquisition chains, critical pairs, and the
// per-procedure abstract state with its join and widening operators.
package domain

import (
	"strconv"
	"strings"

	"github.com/locksight/locksight/pkg/ir"
)

// Lock is the canonical identity of a monitor: a normalized access path
// rooted at a formal parameter, a global, or a class object. Locks are map
// keys and carry a total order used for stable tie-breaking.
type Lock struct {
	Path ir.AccessPath
}

// MakeLock recognizes a lock in a call-site expression. Expressions rooted at
// formals or globals are accepted after normalization; class literals produce
// a synthetic class-object lock; anything else (locals, temporaries) is not a
// syntactically recognizable lock.
func MakeLock(exp ir.Exp) (Lock, bool) {
	switch e := exp.(type) {
	case ir.PathExp:
		return Lock{Path: e.Path.Normalize()}, true
	case ir.ClassLitExp:
		return MakeClassLock(e.Class), true
	default:
		return Lock{}, false
	}
}

// MakeClassLock builds the synthetic lock taken by static synchronized
// methods and synchronized(Foo.class) constructs: a class-object root with an
// empty path.
func MakeClassLock(class string) Lock {
	return Lock{Path: ir.AccessPath{
		Root: ir.Root{Kind: ir.RootClassObject, Name: class},
	}}
}

// Owner returns the class owning the lock, derived from the declared type of
// its root. Used to locate sibling methods during reporting.
func (l Lock) Owner() string {
	return l.Path.Root.TypeName()
}

// IsClassObject reports whether this is a synthetic class-object lock.
func (l Lock) IsClassObject() bool {
	return l.Path.Root.Kind == ir.RootClassObject && len(l.Path.Fields) == 0
}

// Key renders the lock to a canonical string. Equal source locks have equal
// keys, and the lexicographic order of keys is the lock order.
func (l Lock) Key() string {
	var sb strings.Builder
	switch l.Path.Root.Kind {
	case ir.RootFormal:
		sb.WriteString("p")
		sb.WriteString(strconv.Itoa(l.Path.Root.Index))
		sb.WriteByte(':')
		sb.WriteString(l.Path.Root.Type)
	case ir.RootGlobal:
		sb.WriteString("g:")
		sb.WriteString(l.Path.Root.Name)
	case ir.RootClassObject:
		sb.WriteString("c:")
		sb.WriteString(l.Path.Root.Name)
	}
	for _, f := range l.Path.Fields {
		sb.WriteByte('.')
		sb.WriteString(f.Name)
	}
	return sb.String()
}

// Compare implements the total lock order.
func (l Lock) Compare(o Lock) int {
	return strings.Compare(l.Key(), o.Key())
}

// Equal reports structural equality.
func (l Lock) Equal(o Lock) bool {
	return l.Key() == o.Key()
}

// Rebase substitutes actual arguments for the lock's formal-parameter root at
// a call site. Globals and class objects pass through unchanged. Returns
// false when the path cannot be rebound (local actuals, out-of-range formals,
// field access off a class literal); callers drop such locks.
func (l Lock) Rebase(actuals []ir.Exp) (Lock, bool) {
	root := l.Path.Root
	switch root.Kind {
	case ir.RootGlobal, ir.RootClassObject:
		return l, true
	case ir.RootFormal:
		if root.Index < 0 || root.Index >= len(actuals) {
			return Lock{}, false
		}
		switch a := actuals[root.Index].(type) {
		case ir.PathExp:
			fields := make([]ir.Field, 0, len(a.Path.Fields)+len(l.Path.Fields))
			fields = append(fields, a.Path.Fields...)
			fields = append(fields, l.Path.Fields...)
			p := ir.AccessPath{Root: a.Path.Root, Fields: fields}
			return Lock{Path: p.Normalize()}, true
		case ir.ClassLitExp:
			if len(l.Path.Fields) == 0 {
				return MakeClassLock(a.Class), true
			}
			return Lock{}, false
		default:
			return Lock{}, false
		}
	}
	return Lock{}, false
}

// String renders the lock for diagnostics.
func (l Lock) String() string {
	if l.Path.Root.Kind == ir.RootClassObject {
		s := l.Path.Root.Name + ".class"
		for _, f := range l.Path.Fields {
			s += "." + f.Name
		}
		return s
	}
	return l.Path.String()
}
