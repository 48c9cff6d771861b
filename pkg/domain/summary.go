package domain

import (
	"encoding/json"

	"github.com/locksight/locksight/pkg/ir"
)

// Summary is the final abstract state of a procedure at its exit, published
// once the fixpoint converges. Summaries are values with structural equality;
// the serialization hooks below let an external store persist them.
type Summary struct {
	State
}

func MakeSummary(s State) Summary {
	return Summary{State: s}
}

type jsonLock struct {
	Path ir.AccessPath `json:"path"`
}

type jsonAcquisition struct {
	Lock      jsonLock    `json:"lock"`
	Proc      ir.Procname `json:"proc"`
	Loc       ir.Location `json:"loc"`
	Inherited bool        `json:"inherited,omitempty"`
}

type jsonEvent struct {
	Kind        string    `json:"kind"` // "acquire", "may_block", "strict_mode"
	Lock        *jsonLock `json:"lock,omitempty"`
	Description string    `json:"description,omitempty"`
	Severity    string    `json:"severity,omitempty"`
}

type jsonFrame struct {
	Proc ir.Procname `json:"proc"`
	Loc  ir.Location `json:"loc"`
}

type jsonPair struct {
	Acquisitions []jsonAcquisition `json:"acquisitions,omitempty"`
	Event        jsonEvent         `json:"event"`
	Loc          ir.Location       `json:"loc"`
	OnUIThread   bool              `json:"on_ui_thread,omitempty"`
	Calls        []jsonFrame       `json:"calls,omitempty"`
}

type jsonSummary struct {
	Pairs    []jsonPair `json:"critical_pairs"`
	UIThread string     `json:"ui_thread"`
}

func encodeEvent(e Event) jsonEvent {
	switch e.Kind {
	case EventLockAcquire:
		return jsonEvent{Kind: "acquire", Lock: &jsonLock{Path: e.Lock.Path}}
	case EventMayBlock:
		return jsonEvent{Kind: "may_block", Description: e.Description, Severity: e.Severity.String()}
	default:
		return jsonEvent{Kind: "strict_mode", Description: e.Description}
	}
}

func decodeEvent(je jsonEvent) Event {
	switch je.Kind {
	case "acquire":
		var l Lock
		if je.Lock != nil {
			l = Lock{Path: je.Lock.Path}
		}
		return AcquireEvent(l)
	case "may_block":
		return MayBlockEvent(je.Description, decodeSeverity(je.Severity))
	default:
		return StrictModeEvent(je.Description)
	}
}

func decodeSeverity(s string) Severity {
	switch s {
	case "HIGH":
		return SeverityHigh
	case "MEDIUM":
		return SeverityMedium
	}
	return SeverityLow
}

// MarshalJSON renders the summary with pairs in deterministic fingerprint
// order. Held locks and guards are not serialized: procedures are assumed
// balanced, so exit states carry neither.
func (s Summary) MarshalJSON() ([]byte, error) {
	js := jsonSummary{UIThread: s.UIThread.String()}
	for _, p := range s.Pairs.All() {
		jp := jsonPair{
			Event:      encodeEvent(p.Event),
			Loc:        p.Loc,
			OnUIThread: p.OnUIThread,
		}
		for _, a := range p.Acquisitions.All() {
			jp.Acquisitions = append(jp.Acquisitions, jsonAcquisition{
				Lock:      jsonLock{Path: a.Lock.Path},
				Proc:      a.Proc,
				Loc:       a.Loc,
				Inherited: a.Anchor == AnchorInherited,
			})
		}
		for _, fr := range p.Calls {
			jp.Calls = append(jp.Calls, jsonFrame{Proc: fr.Proc, Loc: fr.Loc})
		}
		js.Pairs = append(js.Pairs, jp)
	}
	return json.Marshal(js)
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	var js jsonSummary
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}
	st := Bottom()
	switch js.UIThread {
	case "ui":
		st.UIThread = UITrue
	case "any":
		st.UIThread = UITop
	}
	for _, jp := range js.Pairs {
		acqs := NewAcquisitions()
		for _, ja := range jp.Acquisitions {
			anchor := AnchorDirect
			if ja.Inherited {
				anchor = AnchorInherited
			}
			acqs = acqs.Add(Acquisition{
				Lock:   Lock{Path: ja.Lock.Path},
				Proc:   ja.Proc,
				Loc:    ja.Loc,
				Anchor: anchor,
			})
		}
		p := CriticalPair{
			Acquisitions: acqs,
			Event:        decodeEvent(jp.Event),
			Loc:          jp.Loc,
			OnUIThread:   jp.OnUIThread,
		}
		for _, fr := range jp.Calls {
			p.Calls = append(p.Calls, TraceFrame{Proc: fr.Proc, Loc: fr.Loc})
		}
		st.Pairs = st.Pairs.Add(p)
	}
	s.State = st
	return nil
}
