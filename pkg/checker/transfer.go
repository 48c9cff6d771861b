// Package checker runs the per-procedure analysis: it interprets IR
// instructions as transformers over the abstract state, integrates callee
// summaries at call sites, and drives the CFG worklist to a fixpoint.
package checker

import (
	"github.com/locksight/locksight/internal/logging"
	"github.com/locksight/locksight/pkg/domain"
	"github.com/locksight/locksight/pkg/ir"
	"github.com/locksight/locksight/pkg/models"
)

// SummaryReader is the read side of the summary store. A missing summary
// reads as bottom; the scheduler revisits the caller on a later pass.
type SummaryReader interface {
	Read(caller, callee ir.Procname) (domain.Summary, bool)
}

// Transfer interprets the instructions of one procedure.
type Transfer struct {
	Attrs      *ir.Attributes
	Classifier *models.Classifier
	Summaries  SummaryReader
}

// Exec applies one instruction to the state. Assignments, assumptions,
// metadata, and indirect calls are identity.
func (t *Transfer) Exec(st domain.State, instr ir.Instr) domain.State {
	call, ok := instr.(ir.DirectCall)
	if !ok {
		return st
	}
	return t.call(st, call)
}

func (t *Transfer) call(st domain.State, call ir.DirectCall) domain.State {
	eff := t.Classifier.ClassifyLockEffect(call.Callee, call.Actuals)
	switch eff.Kind {
	case models.EffectLock:
		return t.lockAll(st, eff.Locks, call.At)

	case models.EffectUnlock:
		return t.unlockAll(st, eff.Locks)

	case models.EffectGuardConstruct:
		lock, ok := t.recognize(eff.Locks)
		if !ok {
			logging.Debugf("%s: guard construct with unparsable lock at %s", t.Attrs.Name, call.At)
			return st
		}
		st.Guards = st.Guards.Bind(eff.Guard, lock)
		if eff.AcquireNow {
			st = st.Acquire(lock, t.Attrs.Name, call.At)
		}
		return st

	case models.EffectGuardLock:
		if lock, ok := st.Guards.Lookup(eff.Guard); ok {
			return st.Acquire(lock, t.Attrs.Name, call.At)
		}
		logging.Debugf("%s: lock of unbound guard %q at %s", t.Attrs.Name, eff.Guard, call.At)
		return st

	case models.EffectGuardUnlock:
		if lock, ok := st.Guards.Lookup(eff.Guard); ok {
			return st.Release(lock)
		}
		logging.Debugf("%s: unlock of unbound guard %q at %s", t.Attrs.Name, eff.Guard, call.At)
		return st

	case models.EffectGuardDestroy:
		if lock, ok := st.Guards.Lookup(eff.Guard); ok {
			st = st.Release(lock)
			st.Guards = st.Guards.Unbind(eff.Guard)
		}
		return st

	case models.EffectLockedIfTrue, models.EffectGuardLockedIfTrue:
		// No unconditional effect.
		return st
	}

	return t.noEffectCall(st, call)
}

// noEffectCall handles calls with no lock effect: synchronized wrappers,
// thread/blocking/strict-mode models, skip models, and finally callee
// summary integration.
func (t *Transfer) noEffectCall(st domain.State, call ir.DirectCall) domain.State {
	if t.Classifier.IsSynchronizedWrapper(call.Callee) {
		if lock, ok := t.recognize(call.Actuals); ok {
			st = st.Acquire(lock, t.Attrs.Name, call.At)
			st = st.Release(lock)
		}
		return st
	}

	// Blocking-call, Strict Mode, and thread-context analysis only apply to
	// Java; for Clang and Go only deadlock behavior is meaningful.
	if t.Attrs.Language == ir.LangJava {
		if t.Classifier.IsUIThreadMarker(call.Callee) {
			return st.OnUI()
		}
		if desc, ok := t.Classifier.StrictModeViolation(call.Callee); ok {
			return st.StrictMode(desc, call.At)
		}
		if m, ok := t.Classifier.MayBlock(call.Callee); ok {
			return st.Blocking(m.Description, m.Severity, call.At)
		}
	}

	if t.Classifier.ShouldSkip(call.Callee) {
		return st
	}

	sum, ok := t.Summaries.Read(t.Attrs.Name, call.Callee)
	if !ok {
		// Not yet summarized: bottom, i.e. nothing to integrate.
		return st
	}
	return Integrate(st, sum, call.Callee, call.Actuals, call.At)
}

// lockAll pushes an acquisition for every recognized lock expression and
// witnesses the acquire. Unrecognized expressions (locals) drop silently.
func (t *Transfer) lockAll(st domain.State, exps []ir.Exp, loc ir.Location) domain.State {
	for _, e := range exps {
		lock, ok := domain.MakeLock(e)
		if !ok {
			continue
		}
		st = st.Acquire(lock, t.Attrs.Name, loc)
	}
	return st
}

// unlockAll pops matching acquisitions. Unmatched unlocks are ignored.
func (t *Transfer) unlockAll(st domain.State, exps []ir.Exp) domain.State {
	for _, e := range exps {
		lock, ok := domain.MakeLock(e)
		if !ok {
			continue
		}
		st = st.Release(lock)
	}
	return st
}

func (t *Transfer) recognize(exps []ir.Exp) (domain.Lock, bool) {
	if len(exps) == 0 {
		return domain.Lock{}, false
	}
	return domain.MakeLock(exps[0])
}

// InitialState builds the entry state of a procedure: UI-thread annotations
// set the thread flag, and synchronized methods hold their monitor from the
// first instruction (the class object for static synchronized methods, the
// receiver otherwise).
func InitialState(attrs *ir.Attributes) domain.State {
	st := domain.Bottom()
	if attrs.OnUIThread {
		st = st.OnUI()
	}
	switch {
	case attrs.IsStaticSync:
		st = st.Acquire(domain.MakeClassLock(attrs.Name.Class), attrs.Name, attrs.Loc)
	case attrs.IsSync && len(attrs.Formals) > 0:
		recv := domain.Lock{Path: ir.AccessPath{Root: ir.Root{
			Kind:  ir.RootFormal,
			Index: 0,
			Name:  attrs.Formals[0].Name,
			Type:  attrs.Formals[0].Type,
		}}}
		st = st.Acquire(recv, attrs.Name, attrs.Loc)
	}
	return st
}
