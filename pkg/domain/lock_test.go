package domain

import (
	"testing"

	"github.com/locksight/locksight/pkg/ir"
)

func formalPath(idx int, typ string, fields ...string) ir.AccessPath {
	p := ir.AccessPath{Root: ir.Root{Kind: ir.RootFormal, Index: idx, Name: "this", Type: typ}}
	for _, f := range fields {
		p.Fields = append(p.Fields, ir.Field{Name: f})
	}
	return p
}

func formalLock(idx int, typ string, fields ...string) Lock {
	return Lock{Path: formalPath(idx, typ, fields...)}
}

func TestMakeLockRecognition(t *testing.T) {
	if _, ok := MakeLock(ir.LocalExp{Name: "tmp"}); ok {
		t.Fatal("local variable recognized as lock")
	}

	l, ok := MakeLock(ir.PathExp{Path: formalPath(0, "com.example.A", "mu")})
	if !ok {
		t.Fatal("formal-rooted path not recognized")
	}
	if l.Owner() != "com.example.A" {
		t.Errorf("owner = %q, want com.example.A", l.Owner())
	}

	cl, ok := MakeLock(ir.ClassLitExp{Class: "com.example.B"})
	if !ok {
		t.Fatal("class literal not recognized")
	}
	if !cl.IsClassObject() {
		t.Error("class literal lock is not a class-object lock")
	}
	if cl.Owner() != "com.example.B" {
		t.Errorf("class lock owner = %q, want com.example.B", cl.Owner())
	}
}

func TestNormalizeFoldsInnerClassChain(t *testing.T) {
	// this.this$0.mu reached through an inner class canonicalizes to the
	// enclosing class's this.mu.
	inner := ir.AccessPath{
		Root: ir.Root{Kind: ir.RootFormal, Index: 0, Name: "this", Type: "com.example.A$1"},
		Fields: []ir.Field{
			{Name: "this$0", Class: "com.example.A"},
			{Name: "mu"},
		},
	}
	l, ok := MakeLock(ir.PathExp{Path: inner})
	if !ok {
		t.Fatal("inner-class path not recognized")
	}
	direct := formalLock(0, "com.example.A", "mu")
	if !l.Equal(direct) {
		t.Errorf("normalized lock %s != direct lock %s", l.Key(), direct.Key())
	}
	if l.Owner() != "com.example.A" {
		t.Errorf("owner after folding = %q, want com.example.A", l.Owner())
	}
}

func TestLockOrderTotalAndStable(t *testing.T) {
	a := formalLock(0, "com.example.A", "x")
	b := formalLock(0, "com.example.A", "y")
	if a.Compare(b) >= 0 {
		t.Error("expected x < y in lock order")
	}
	if b.Compare(a) <= 0 {
		t.Error("order not antisymmetric")
	}
	if a.Compare(a) != 0 {
		t.Error("order not reflexive")
	}
}

func TestRebaseFormalOntoActual(t *testing.T) {
	// A callee lock rooted at formal 0 with path .mu, called with actual
	// this.child, rebases to this.child.mu.
	calleeLock := formalLock(0, "com.example.Child", "mu")
	actuals := []ir.Exp{ir.PathExp{Path: formalPath(0, "com.example.Parent", "child")}}

	got, ok := calleeLock.Rebase(actuals)
	if !ok {
		t.Fatal("rebase failed")
	}
	want := formalLock(0, "com.example.Parent", "child", "mu")
	if !got.Equal(want) {
		t.Errorf("rebased = %s, want %s", got.Key(), want.Key())
	}
}

func TestRebasePassesGlobalsAndClassLocks(t *testing.T) {
	g := Lock{Path: ir.AccessPath{Root: ir.Root{Kind: ir.RootGlobal, Name: "LOG", Type: "com.example.Log"}}}
	got, ok := g.Rebase(nil)
	if !ok || !got.Equal(g) {
		t.Error("global lock should pass through rebase unchanged")
	}

	c := MakeClassLock("com.example.A")
	got, ok = c.Rebase(nil)
	if !ok || !got.Equal(c) {
		t.Error("class lock should pass through rebase unchanged")
	}
}

func TestRebaseDropsUnbindable(t *testing.T) {
	l := formalLock(1, "com.example.A", "mu")

	if _, ok := l.Rebase([]ir.Exp{ir.PathExp{Path: formalPath(0, "T")}}); ok {
		t.Error("out-of-range formal index should not rebase")
	}
	if _, ok := l.Rebase([]ir.Exp{ir.LocalExp{Name: "a"}, ir.LocalExp{Name: "b"}}); ok {
		t.Error("local actual should not rebase")
	}
}
