package domain

import (
	"strings"
	"testing"

	"github.com/locksight/locksight/pkg/ir"
)

func pairAcquiring(target Lock, held []Lock, proc ir.Procname, loc ir.Location, ui bool) CriticalPair {
	acqs := NewAcquisitions()
	for i, l := range held {
		acqs = acqs.Add(Acquisition{Lock: l, Proc: proc, Loc: ir.Location{File: loc.File, Line: loc.Line - i - 1}})
	}
	return CriticalPair{
		Acquisitions: acqs,
		Event:        AcquireEvent(target),
		Loc:          loc,
		OnUIThread:   ui,
	}
}

func TestMayDeadlockInversion(t *testing.T) {
	x := formalLock(0, "com.example.A", "x")
	y := formalLock(0, "com.example.A", "y")

	p := pairAcquiring(y, []Lock{x}, procM, locAt(10), false)
	q := pairAcquiring(x, []Lock{y}, procM, locAt(20), false)

	if !MayDeadlock(p, q) || !MayDeadlock(q, p) {
		t.Error("opposing acquisition orders not flagged")
	}

	// Same order on both sides: no inversion.
	r := pairAcquiring(y, []Lock{x}, procM, locAt(30), false)
	if MayDeadlock(p, r) {
		t.Error("same-order pairs flagged as deadlock")
	}

	// Same lock on both sides is not an inversion.
	s := pairAcquiring(x, []Lock{x}, procM, locAt(40), false)
	if MayDeadlock(s, s) {
		t.Error("single lock flagged as inversion with itself")
	}
}

func TestMayDeadlockRequiresAcquires(t *testing.T) {
	x := formalLock(0, "com.example.A", "x")
	blocked := CriticalPair{
		Acquisitions: NewAcquisitions().Add(Acquisition{Lock: x, Proc: procM, Loc: locAt(1)}),
		Event:        MayBlockEvent("Object.wait", SeverityHigh),
		Loc:          locAt(2),
	}
	acq := pairAcquiring(x, nil, procM, locAt(3), false)
	if MayDeadlock(blocked, acq) || MayDeadlock(acq, blocked) {
		t.Error("non-acquire event considered for deadlock")
	}
}

func TestCanRunInParallel(t *testing.T) {
	x := formalLock(0, "com.example.A", "x")
	uiPair := pairAcquiring(x, nil, procM, locAt(1), true)
	bgPair := pairAcquiring(x, nil, procM, locAt(2), false)

	if CanRunInParallel(uiPair, uiPair) {
		t.Error("two UI-thread pairs cannot run in parallel")
	}
	if !CanRunInParallel(uiPair, bgPair) || !CanRunInParallel(bgPair, bgPair) {
		t.Error("conservative default should be parallel")
	}
}

func TestEarliestLockOrCallLoc(t *testing.T) {
	x := formalLock(0, "com.example.A", "x")
	y := formalLock(0, "com.example.A", "y")
	other := ir.Procname{Class: "com.example.B", Method: "helper"}

	acqs := NewAcquisitions().
		Add(Acquisition{Lock: x, Proc: other, Loc: locAt(5)}).
		Add(Acquisition{Lock: y, Proc: procM, Loc: locAt(7)})
	p := CriticalPair{Acquisitions: acqs, Event: MayBlockEvent("Thread.sleep", SeverityHigh), Loc: locAt(9)}

	if got := p.EarliestLockOrCallLoc(procM); got != locAt(7) {
		t.Errorf("anchored at %s, want the acquisition owned by %s", got, procM)
	}
	unknown := ir.Procname{Class: "com.example.C", Method: "nope"}
	if got := p.EarliestLockOrCallLoc(unknown); got != locAt(9) {
		t.Errorf("fallback loc = %s, want the event location", got)
	}
}

func TestMakeTrace(t *testing.T) {
	x := formalLock(0, "com.example.A", "x")
	p := pairAcquiring(x, []Lock{formalLock(0, "com.example.A", "y")}, procM, locAt(10), false)
	p.Calls = []TraceFrame{{Proc: ir.Procname{Class: "com.example.A", Method: "outer"}, Loc: locAt(3)}}

	trace := p.MakeTrace("[T1] ", true)
	if len(trace) != 3 {
		t.Fatalf("trace has %d steps, want 3 (call + acquisition + event)", len(trace))
	}
	for _, step := range trace {
		if !strings.HasPrefix(step, "[T1] ") {
			t.Errorf("step %q missing header", step)
		}
	}
	if !strings.Contains(trace[0], "call to com.example.A.outer") {
		t.Errorf("first step %q should be the call frame", trace[0])
	}
}

func TestWithCallsitePrependsAndWraps(t *testing.T) {
	held := formalLock(0, "com.example.A", "outer")
	inner := formalLock(0, "com.example.A", "inner")

	callerHeld := NewAcquisitions().Add(Acquisition{Lock: held, Proc: procM, Loc: locAt(1)})
	calleePair := pairAcquiring(inner, nil, ir.Procname{Class: "com.example.A", Method: "callee"}, locAt(12), false)

	got := calleePair.WithCallsite(callerHeld, ir.Procname{Class: "com.example.A", Method: "callee"}, locAt(4), true)
	if !got.Acquisitions.Holds(held) {
		t.Error("caller-held lock not prepended")
	}
	if len(got.Calls) != 1 || got.Calls[0].Loc != locAt(4) {
		t.Error("call-site frame not wrapped around trace")
	}
	if !got.OnUIThread {
		t.Error("caller UI context not propagated to transferred pair")
	}
}

func TestPairRebaseDropsUnbindable(t *testing.T) {
	calleeLock := formalLock(1, "com.example.B", "mu")
	p := pairAcquiring(calleeLock, nil, procM, locAt(8), false)

	if _, ok := p.Rebase([]ir.Exp{ir.LocalExp{Name: "a"}, ir.LocalExp{Name: "b"}}); ok {
		t.Error("pair with unbindable event lock should drop")
	}

	actuals := []ir.Exp{
		ir.LocalExp{Name: "ignored"},
		ir.PathExp{Path: formalPath(0, "com.example.A", "b")},
	}
	got, ok := p.Rebase(actuals)
	if !ok {
		t.Fatal("bindable pair dropped")
	}
	want := formalLock(0, "com.example.A", "b", "mu")
	if !got.Event.Lock.Equal(want) {
		t.Errorf("rebased event lock = %s, want %s", got.Event.Lock.Key(), want.Key())
	}
}
