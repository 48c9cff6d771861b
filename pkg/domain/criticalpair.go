package domain

import (
	"fmt"

	"github.com/locksight/locksight/pkg/ir"
)

// TraceFrame is one call step on the path from the reported procedure down to
// the witnessed event.
type TraceFrame struct {
	Proc ir.Procname
	Loc  ir.Location
}

// CriticalPair is an atomic event witnessed in a state where a specific
// ordered chain of locks was held. The chain is a structural clone of the
// held set at creation time, never an alias.
type CriticalPair struct {
	Acquisitions Acquisitions
	Event        Event
	Loc          ir.Location
	OnUIThread   bool
	Calls        []TraceFrame // outermost call site first
}

// Fingerprint identifies the pair for deduplication by
// (acquisitions, event, location).
func (p CriticalPair) Fingerprint() string {
	return p.Acquisitions.key() + "|" + p.Event.Key() + "|" + p.Loc.String()
}

// CanRunInParallel reports whether the procedures witnessing p and q could
// execute concurrently. Two pairs both witnessed on the single UI thread
// cannot; the conservative default is that they can.
func CanRunInParallel(p, q CriticalPair) bool {
	return !(p.OnUIThread && q.OnUIThread)
}

// MayDeadlock is the classical lock-order inversion check: p acquires B while
// holding A, q acquires A while holding B, with A distinct from B.
func MayDeadlock(p, q CriticalPair) bool {
	if p.Event.Kind != EventLockAcquire || q.Event.Kind != EventLockAcquire {
		return false
	}
	lockB := p.Event.Lock
	lockA := q.Event.Lock
	if lockA.Equal(lockB) {
		return false
	}
	return p.Acquisitions.Holds(lockA) && q.Acquisitions.Holds(lockB)
}

// EarliestLockOrCallLoc returns the location of the first acquisition
// belonging to proc, falling back to the event location. Anchors diagnostics
// in the reported procedure's own source where possible.
func (p CriticalPair) EarliestLockOrCallLoc(proc ir.Procname) ir.Location {
	for _, a := range p.Acquisitions.All() {
		if a.Proc == proc {
			return a.Loc
		}
	}
	return p.Loc
}

// MakeTrace materializes the human-readable call-step trace, each step
// prefixed with header.
func (p CriticalPair) MakeTrace(header string, includeAcquisitions bool) []string {
	var steps []string
	for _, fr := range p.Calls {
		steps = append(steps, fmt.Sprintf("%scall to %s at %s", header, fr.Proc, fr.Loc))
	}
	if includeAcquisitions {
		for _, a := range p.Acquisitions.All() {
			steps = append(steps, fmt.Sprintf("%s%s holds lock %s (acquired at %s)",
				header, a.Proc, a.Lock, a.Loc))
		}
	}
	steps = append(steps, fmt.Sprintf("%s%s at %s", header, p.Event.Describe(), p.Loc))
	return steps
}

// Rebase substitutes call-site actuals into the pair's acquisition chain and
// event. An unbindable path drops the whole pair (eliding is preferred over
// over-approximating here).
func (p CriticalPair) Rebase(actuals []ir.Exp) (CriticalPair, bool) {
	ev, ok := p.Event.Rebase(actuals)
	if !ok {
		return CriticalPair{}, false
	}
	acqs := NewAcquisitions()
	for _, a := range p.Acquisitions.All() {
		l, ok := a.Lock.Rebase(actuals)
		if !ok {
			return CriticalPair{}, false
		}
		acqs = acqs.Add(Acquisition{Lock: l, Proc: a.Proc, Loc: a.Loc, Anchor: AnchorInherited})
	}
	q := p
	q.Event = ev
	q.Acquisitions = acqs
	return q, true
}

// WithCallsite transfers the pair from a callee summary into a caller:
// the caller's held chain is prepended (the caller held it while the callee
// ran) and the trace gains a frame for the call site.
func (p CriticalPair) WithCallsite(callerHeld Acquisitions, callee ir.Procname, loc ir.Location, callerOnUI bool) CriticalPair {
	q := p
	q.Acquisitions = callerHeld.Union(p.Acquisitions)
	calls := make([]TraceFrame, 0, len(p.Calls)+1)
	calls = append(calls, TraceFrame{Proc: callee, Loc: loc})
	calls = append(calls, p.Calls...)
	q.Calls = calls
	q.OnUIThread = p.OnUIThread || callerOnUI
	return q
}

func (p CriticalPair) String() string {
	return fmt.Sprintf("%s under %s at %s", p.Event.Describe(), p.Acquisitions, p.Loc)
}
