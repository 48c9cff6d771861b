package domain

import (
	"fmt"

	"github.com/locksight/locksight/pkg/ir"
)

// Severity ranks how disruptive a blocking call is when it starves the UI
// thread.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	}
	return "UNKNOWN"
}

// EventKind tags the event variant.
type EventKind int

const (
	EventLockAcquire EventKind = iota
	EventMayBlock
	EventStrictModeCall
)

// Event is an atomic abstract event witnessed during analysis. LockAcquire is
// the only event that also appears in the held-acquisition chain.
type Event struct {
	Kind        EventKind
	Lock        Lock   // valid iff Kind == EventLockAcquire
	Description string // valid for MayBlock and StrictModeCall
	Severity    Severity
}

func AcquireEvent(l Lock) Event {
	return Event{Kind: EventLockAcquire, Lock: l}
}

func MayBlockEvent(description string, sev Severity) Event {
	return Event{Kind: EventMayBlock, Description: description, Severity: sev}
}

func StrictModeEvent(description string) Event {
	return Event{Kind: EventStrictModeCall, Description: description}
}

// Key renders the event canonically for deduplication.
func (e Event) Key() string {
	switch e.Kind {
	case EventLockAcquire:
		return "acq(" + e.Lock.Key() + ")"
	case EventMayBlock:
		return fmt.Sprintf("blk(%s,%d)", e.Description, e.Severity)
	case EventStrictModeCall:
		return "strict(" + e.Description + ")"
	}
	return ""
}

// Describe renders the event for trace steps and messages.
func (e Event) Describe() string {
	switch e.Kind {
	case EventLockAcquire:
		return fmt.Sprintf("acquires lock %s", e.Lock)
	case EventMayBlock:
		return fmt.Sprintf("calls %s, which may block", e.Description)
	case EventStrictModeCall:
		return fmt.Sprintf("calls %s, a Strict Mode violation", e.Description)
	}
	return ""
}

// Rebase substitutes actuals into the event's lock, when it has one.
func (e Event) Rebase(actuals []ir.Exp) (Event, bool) {
	if e.Kind != EventLockAcquire {
		return e, true
	}
	l, ok := e.Lock.Rebase(actuals)
	if !ok {
		return Event{}, false
	}
	return AcquireEvent(l), true
}

// Anchor records whether an acquisition was observed directly in the
// procedure or inherited via a callee summary.
type Anchor int

const (
	AnchorDirect Anchor = iota
	AnchorInherited
)

// Acquisition records where a lock was taken.
type Acquisition struct {
	Lock   Lock
	Proc   ir.Procname
	Loc    ir.Location
	Anchor Anchor
}

func (a Acquisition) String() string {
	return fmt.Sprintf("%s in %s at %s", a.Lock, a.Proc, a.Loc)
}
