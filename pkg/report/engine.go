package report

import (
	"fmt"
	"strings"

	"github.com/locksight/locksight/pkg/checker"
	"github.com/locksight/locksight/pkg/domain"
	"github.com/locksight/locksight/pkg/ir"
)

// Engine scans procedure summaries and composes them pairwise with the
// summaries of the lock-owner class's methods.
type Engine struct {
	prog   *ir.Program
	store  checker.SummaryReader
	config Config
	sink   *reportMap
}

func NewEngine(prog *ir.Program, store checker.SummaryReader, config Config) *Engine {
	return &Engine{
		prog:   prog,
		store:  store,
		config: config,
		sink:   newReportMap(),
	}
}

// ReportProcedure scans one procedure's critical pairs and accumulates
// reports in the engine's sink. An internal invariant violation aborts this
// procedure's reporting only.
func (e *Engine) ReportProcedure(proc *ir.Procedure, sum domain.Summary) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(domain.InvariantError); ok {
				err = ie
				return
			}
			panic(r)
		}
	}()

	attrs := &proc.Attrs
	if !attrs.Reportable() {
		return nil
	}

	for _, cp := range sum.Pairs.All() {
		e.reportLocal(attrs, cp)
		if cp.Event.Kind == domain.EventLockAcquire {
			e.reportComposed(attrs, cp)
		}
	}
	return nil
}

// reportLocal applies the single-summary rules: lockless violations,
// self-deadlock, and UI-thread blocking or Strict Mode.
func (e *Engine) reportLocal(attrs *ir.Attributes, cp domain.CriticalPair) {
	switch cp.Event.Kind {
	case domain.EventLockAcquire:
		lock := cp.Event.Lock
		if attrs.IsLockless {
			e.sink.add(Issue{
				Kind:     KindLockless,
				Severity: domain.SeverityMedium,
				Proc:     attrs.Name,
				Loc:      cp.EarliestLockOrCallLoc(attrs.Name),
				Message: fmt.Sprintf("%s acquires lock %s but is annotated as lockless.",
					attrs.Name, lock),
				Trace: cp.MakeTrace("", true),
			})
		}
		if e.config.Deadlocks && cp.Acquisitions.Holds(lock) {
			e.sink.add(Issue{
				Kind:     KindDeadlock,
				Severity: domain.SeverityHigh,
				Proc:     attrs.Name,
				Loc:      cp.EarliestLockOrCallLoc(attrs.Name),
				Message: fmt.Sprintf("Potential self deadlock. %s could be acquired by %s twice.",
					lock, attrs.Name),
				Trace: cp.MakeTrace("", true),
			})
		}

	case domain.EventMayBlock:
		if cp.OnUIThread && !attrs.IsConstructor {
			e.sink.add(Issue{
				Kind:     KindStarvation,
				Severity: cp.Event.Severity,
				Proc:     attrs.Name,
				Loc:      cp.EarliestLockOrCallLoc(attrs.Name),
				Message: fmt.Sprintf("%s runs on the UI thread and may block; %s.",
					attrs.Name, cp.Event.Describe()),
				Trace: cp.MakeTrace("", false),
			})
		}

	case domain.EventStrictModeCall:
		if cp.OnUIThread && !attrs.IsConstructor {
			e.sink.add(Issue{
				Kind:     KindStrictMode,
				Severity: domain.SeverityMedium,
				Proc:     attrs.Name,
				Loc:      cp.EarliestLockOrCallLoc(attrs.Name),
				Message: fmt.Sprintf("%s runs on the UI thread and %s.",
					attrs.Name, cp.Event.Describe()),
				Trace: cp.MakeTrace("", false),
			})
		}
	}
}

// reportComposed composes cp, which acquires a lock, against the critical
// pairs of every reportable method of the lock's owner class: held-lock
// blocking starving the UI thread, and lock-order inversions.
func (e *Engine) reportComposed(attrs *ir.Attributes, cp domain.CriticalPair) {
	lock := cp.Event.Lock
	if lock.Path.Root.Kind == ir.RootFormal && lock.Path.Root.Index < 0 {
		domain.Invariantf("lock %s with logical-variable root survived filtering in %s",
			lock, attrs.Name)
	}
	owner := lock.Owner()
	if owner == "" {
		return
	}

	for _, other := range e.prog.MethodsOf(owner) {
		if other == attrs.Name {
			continue
		}
		otherSum, ok := e.store.Read(attrs.Name, other)
		if !ok {
			continue
		}
		for _, op := range otherSum.Pairs.All() {
			if !domain.CanRunInParallel(cp, op) {
				continue
			}
			switch op.Event.Kind {
			case domain.EventMayBlock:
				if cp.OnUIThread && !attrs.IsConstructor && op.Acquisitions.Holds(lock) {
					e.reportHeldBlocking(attrs, cp, other, op, lock)
				}
			case domain.EventLockAcquire:
				if e.config.Deadlocks && domain.MayDeadlock(cp, op) && e.shouldReport(cp, op) {
					e.reportDeadlock(attrs, cp, other, op)
				}
			}
		}
	}
}

func (e *Engine) reportHeldBlocking(attrs *ir.Attributes, cp domain.CriticalPair, other ir.Procname, op domain.CriticalPair, lock domain.Lock) {
	trace := cp.MakeTrace("[UI thread] ", true)
	trace = append(trace, op.MakeTrace("[Other thread] ", true)...)
	e.sink.add(Issue{
		Kind:     KindStarvation,
		Severity: op.Event.Severity,
		Proc:     attrs.Name,
		Loc:      cp.EarliestLockOrCallLoc(attrs.Name),
		Message: fmt.Sprintf("%s on the UI thread waits for %s, which %s while holding %s.",
			attrs.Name, other, op.Event.Describe(), lock),
		Trace: trace,
	})
}

func (e *Engine) reportDeadlock(attrs *ir.Attributes, cp domain.CriticalPair, other ir.Procname, op domain.CriticalPair) {
	if cp.Event.Kind != domain.EventLockAcquire || op.Event.Kind != domain.EventLockAcquire {
		domain.Invariantf("deadlock candidate between non-acquire events in %s and %s",
			attrs.Name, other)
	}
	trace := cp.MakeTrace("[Trace 1] ", true)
	trace = append(trace, op.MakeTrace("[Trace 2] ", true)...)
	e.sink.add(Issue{
		Kind:     KindDeadlock,
		Severity: domain.SeverityHigh,
		Proc:     attrs.Name,
		Loc:      cp.EarliestLockOrCallLoc(attrs.Name),
		Message: fmt.Sprintf("Potential deadlock. %s and %s acquire locks %s and %s in reverse orders.",
			attrs.Name, other, cp.Event.Lock, op.Event.Lock),
		Trace: trace,
	})
}

// shouldReport breaks the symmetry of deadlock pairs so each inversion is
// reported once. Class-object locks always report: the reverse pairing is
// structurally inaccessible from the other class's methods. Otherwise the
// owner-type strings of the two event locks order the pair, with the source
// location as tie-break. With deduplication off every direction reports.
func (e *Engine) shouldReport(cp, op domain.CriticalPair) bool {
	if !e.config.Deduplicate {
		return true
	}
	if cp.Event.Lock.IsClassObject() || op.Event.Lock.IsClassObject() {
		return true
	}
	c := strings.Compare(cp.Event.Lock.Path.Root.TypeName(), op.Event.Lock.Path.Root.TypeName())
	if c != 0 {
		return c < 0
	}
	return cp.Loc.Compare(op.Loc) < 0
}

// Issues flattens the sink, applying same-location deduplication when
// configured.
func (e *Engine) Issues() []Issue {
	return e.sink.emit(e.config.Deduplicate)
}
