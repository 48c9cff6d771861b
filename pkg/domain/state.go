package domain

import (
	"fmt"

	"github.com/locksight/locksight/pkg/ir"
)

// UIThread is the three-valued thread-context flag. Once a state learns it is
// on the UI thread, joins preserve that knowledge.
type UIThread int

const (
	UIBottom UIThread = iota // nothing known yet
	UITop                    // may run on any thread
	UITrue                   // known to run on the UI thread
)

func (u UIThread) IsTrue() bool { return u == UITrue }

// Join: true absorbs anything, bottom is the identity.
func (u UIThread) Join(o UIThread) UIThread {
	switch {
	case u == UITrue || o == UITrue:
		return UITrue
	case u == UIBottom:
		return o
	case o == UIBottom:
		return u
	}
	return UITop
}

// Leq is the order induced by Join.
func (u UIThread) Leq(o UIThread) bool {
	return u == o || u == UIBottom || o == UITrue
}

func (u UIThread) String() string {
	switch u {
	case UIBottom:
		return "unknown"
	case UITrue:
		return "ui"
	}
	return "any"
}

// State is the procedure-local abstract state: the currently held lock chain,
// the critical pairs witnessed so far, the live guard bindings, and the
// thread-context flag.
type State struct {
	Held     Acquisitions
	Pairs    Pairs
	Guards   Guards
	UIThread UIThread
}

// Bottom is the initial state: empty everywhere, thread context unknown.
func Bottom() State {
	return State{
		Held:     NewAcquisitions(),
		Pairs:    NewPairs(),
		Guards:   NewGuards(),
		UIThread: UIBottom,
	}
}

// Join merges states at a CFG merge point: locks not held on all incoming
// paths are dropped, critical pairs accumulate, guard bindings survive only
// when they agree, and the thread flag joins in its own lattice.
func (s State) Join(o State) State {
	return State{
		Held:     s.Held.Intersect(o.Held),
		Pairs:    s.Pairs.Union(o.Pairs),
		Guards:   s.Guards.Intersect(o.Guards),
		UIThread: s.UIThread.Join(o.UIThread),
	}
}

// Widen coincides with Join: the critical-pair set is bounded by the finite
// lock alphabet of the procedure, so termination needs no extra widening.
func (s State) Widen(o State) State {
	return s.Join(o)
}

// Leq is the component-wise partial order induced by Join.
func (s State) Leq(o State) bool {
	// held: fewer locks is higher (join intersects), so s ≤ o iff s ⊇ o.
	for _, a := range o.Held.All() {
		if !s.Held.Holds(a.Lock) {
			return false
		}
	}
	for _, p := range s.Pairs.All() {
		if _, ok := o.Pairs.ensure().Get(p.Fingerprint()); !ok {
			return false
		}
	}
	for itr := o.Guards.ensure().Iterator(); !itr.Done(); {
		id, l, _ := itr.Next()
		sl, ok := s.Guards.Lookup(id)
		if !ok || !sl.Equal(l) {
			return false
		}
	}
	return s.UIThread.Leq(o.UIThread)
}

// Equal is structural equality on all four components.
func (s State) Equal(o State) bool {
	return s.UIThread == o.UIThread &&
		s.Held.Equal(o.Held) &&
		s.Guards.Equal(o.Guards) &&
		s.Pairs.Equal(o.Pairs)
}

// capturePair records an event against the current held chain, cloning the
// chain structurally and stamping the thread flag.
func (s State) capturePair(ev Event, loc ir.Location) State {
	p := CriticalPair{
		Acquisitions: s.Held,
		Event:        ev,
		Loc:          loc,
		OnUIThread:   s.UIThread.IsTrue(),
	}
	s.Pairs = s.Pairs.Add(p)
	return s
}

// Acquire witnesses a lock acquisition and extends the held chain. The
// critical pair is captured against the chain held before the acquisition,
// so a re-acquire of a held lock carries its own lock in the chain — the
// self-deadlock signal the report engine looks for. The held chain stays
// duplicate-free: a re-acquire keeps the original acquisition record.
func (s State) Acquire(l Lock, proc ir.Procname, loc ir.Location) State {
	s = s.capturePair(AcquireEvent(l), loc)
	s.Held = s.Held.Add(Acquisition{Lock: l, Proc: proc, Loc: loc, Anchor: AnchorDirect})
	return s
}

// Release pops the lock from the held chain. Unmatched releases are ignored.
func (s State) Release(l Lock) State {
	s.Held = s.Held.Remove(l)
	return s
}

// Blocking witnesses a call that may block.
func (s State) Blocking(description string, sev Severity, loc ir.Location) State {
	return s.capturePair(MayBlockEvent(description, sev), loc)
}

// StrictMode witnesses a Strict Mode violation call.
func (s State) StrictMode(description string, loc ir.Location) State {
	return s.capturePair(StrictModeEvent(description), loc)
}

// OnUI marks the state as running on the UI thread.
func (s State) OnUI() State {
	s.UIThread = UITrue
	return s
}

func (s State) String() string {
	return fmt.Sprintf("held=%s pairs=%d guards=%d thread=%s",
		s.Held, s.Pairs.Len(), s.Guards.Len(), s.UIThread)
}
