package report

import (
	"fmt"
	"sort"
	"strings"
)

// reportMap accumulates issues keyed by source location. Emission keeps, per
// location and problem kind, the issue with the largest weight and notes the
// suppression; non-dedup mode emits everything.
type reportMap struct {
	byLoc map[string][]Issue
}

func newReportMap() *reportMap {
	return &reportMap{byLoc: make(map[string][]Issue)}
}

func (m *reportMap) add(i Issue) {
	key := i.Loc.String()
	m.byLoc[key] = append(m.byLoc[key], i)
}

func (m *reportMap) emit(dedup bool) []Issue {
	keys := make([]string, 0, len(m.byLoc))
	for k := range m.byLoc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Issue
	for _, k := range keys {
		issues := m.byLoc[k]
		if !dedup {
			out = append(out, sortedStable(issues)...)
			continue
		}
		out = append(out, dedupAtLocation(issues)...)
	}
	return out
}

// dedupAtLocation keeps one issue per kind: the heaviest, by the kind's
// weight rule. Duplicate identical messages collapse without a note.
func dedupAtLocation(issues []Issue) []Issue {
	byKind := make(map[Kind][]Issue)
	for _, i := range issues {
		byKind[i.Kind] = append(byKind[i.Kind], i)
	}

	kinds := make([]Kind, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	var out []Issue
	for _, k := range kinds {
		group := sortedStable(byKind[k])
		best := group[0]
		suppressed := 0
		for _, i := range group[1:] {
			if i.Message == best.Message {
				continue
			}
			if i.weight() > best.weight() {
				best = i
			}
			suppressed++
		}
		if suppressed > 0 {
			best.Message += fmt.Sprintf(" %d similar report(s) on the same line suppressed.", suppressed)
		}
		out = append(out, best)
	}
	return out
}

// sortedStable orders issues deterministically by kind, weight (heaviest
// first), then message.
func sortedStable(issues []Issue) []Issue {
	out := make([]Issue, len(issues))
	copy(out, issues)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].weight() != out[j].weight() {
			return out[i].weight() > out[j].weight()
		}
		return strings.Compare(out[i].Message, out[j].Message) < 0
	})
	return out
}
