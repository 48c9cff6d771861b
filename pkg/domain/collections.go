package domain

import (
	"strings"

	"github.com/benbjohnson/immutable"
	"golang.org/x/exp/slices"
)

// Acquisitions is the ordered chain of currently held locks, keyed and
// ordered by lock key. Duplicate-free by construction: re-acquiring a held
// lock keeps the original acquisition (the re-acquire itself surfaces as a
// self-deadlock critical pair). Backed by a persistent sorted map so critical
// pairs capture structural clones for free.
type Acquisitions struct {
	m *immutable.SortedMap[string, Acquisition]
}

func NewAcquisitions() Acquisitions {
	return Acquisitions{m: immutable.NewSortedMap[string, Acquisition](nil)}
}

func (as Acquisitions) ensure() *immutable.SortedMap[string, Acquisition] {
	if as.m == nil {
		return immutable.NewSortedMap[string, Acquisition](nil)
	}
	return as.m
}

// Add records an acquisition. Identity when the lock is already held.
func (as Acquisitions) Add(a Acquisition) Acquisitions {
	m := as.ensure()
	if _, ok := m.Get(a.Lock.Key()); ok {
		return Acquisitions{m: m}
	}
	return Acquisitions{m: m.Set(a.Lock.Key(), a)}
}

// Remove drops the acquisition of the given lock, if held.
func (as Acquisitions) Remove(l Lock) Acquisitions {
	return Acquisitions{m: as.ensure().Delete(l.Key())}
}

// Holds reports whether the lock is in the chain.
func (as Acquisitions) Holds(l Lock) bool {
	_, ok := as.ensure().Get(l.Key())
	return ok
}

func (as Acquisitions) Len() int {
	return as.ensure().Len()
}

// All returns the acquisitions in lock order.
func (as Acquisitions) All() []Acquisition {
	out := make([]Acquisition, 0, as.Len())
	for itr := as.ensure().Iterator(); !itr.Done(); {
		_, a, _ := itr.Next()
		out = append(out, a)
	}
	return out
}

// Intersect keeps only locks held in both chains, preferring the receiver's
// acquisition records.
func (as Acquisitions) Intersect(other Acquisitions) Acquisitions {
	m := as.ensure()
	o := other.ensure()
	res := m
	for itr := m.Iterator(); !itr.Done(); {
		k, _, _ := itr.Next()
		if _, ok := o.Get(k); !ok {
			res = res.Delete(k)
		}
	}
	return Acquisitions{m: res}
}

// Union merges two chains; on shared locks the receiver's record wins.
func (as Acquisitions) Union(other Acquisitions) Acquisitions {
	res := as
	for _, a := range other.All() {
		res = res.Add(a)
	}
	return res
}

func (as Acquisitions) Equal(other Acquisitions) bool {
	m, o := as.ensure(), other.ensure()
	if m.Len() != o.Len() {
		return false
	}
	for itr := m.Iterator(); !itr.Done(); {
		k, a, _ := itr.Next()
		b, ok := o.Get(k)
		if !ok || !a.Lock.Equal(b.Lock) || a.Proc != b.Proc || a.Loc != b.Loc || a.Anchor != b.Anchor {
			return false
		}
	}
	return true
}

// key is the canonical rendering of the lock chain, used in fingerprints.
func (as Acquisitions) key() string {
	var sb strings.Builder
	for itr := as.ensure().Iterator(); !itr.Done(); {
		k, _, _ := itr.Next()
		sb.WriteString(k)
		sb.WriteByte(';')
	}
	return sb.String()
}

func (as Acquisitions) String() string {
	parts := make([]string, 0, as.Len())
	for _, a := range as.All() {
		parts = append(parts, a.Lock.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Guards maps live guard identifiers to the lock they manage. RAII-style
// guard objects may unlock and relock; destruction removes the binding.
type Guards struct {
	m *immutable.Map[string, Lock]
}

func NewGuards() Guards {
	return Guards{m: immutable.NewMap[string, Lock](nil)}
}

func (g Guards) ensure() *immutable.Map[string, Lock] {
	if g.m == nil {
		return immutable.NewMap[string, Lock](nil)
	}
	return g.m
}

func (g Guards) Bind(id string, l Lock) Guards {
	return Guards{m: g.ensure().Set(id, l)}
}

func (g Guards) Lookup(id string) (Lock, bool) {
	return g.ensure().Get(id)
}

func (g Guards) Unbind(id string) Guards {
	return Guards{m: g.ensure().Delete(id)}
}

func (g Guards) Len() int {
	return g.ensure().Len()
}

// Intersect keeps bindings present in both maps with the same lock.
func (g Guards) Intersect(other Guards) Guards {
	m := g.ensure()
	res := m
	for itr := m.Iterator(); !itr.Done(); {
		id, l, _ := itr.Next()
		ol, ok := other.ensure().Get(id)
		if !ok || !l.Equal(ol) {
			res = res.Delete(id)
		}
	}
	return Guards{m: res}
}

func (g Guards) Equal(other Guards) bool {
	m, o := g.ensure(), other.ensure()
	if m.Len() != o.Len() {
		return false
	}
	for itr := m.Iterator(); !itr.Done(); {
		id, l, _ := itr.Next()
		ol, ok := o.Get(id)
		if !ok || !l.Equal(ol) {
			return false
		}
	}
	return true
}

// Pairs is the set of critical pairs witnessed so far, deduplicated by
// fingerprint (acquisitions, event, location).
type Pairs struct {
	m *immutable.Map[string, CriticalPair]
}

func NewPairs() Pairs {
	return Pairs{m: immutable.NewMap[string, CriticalPair](nil)}
}

func (ps Pairs) ensure() *immutable.Map[string, CriticalPair] {
	if ps.m == nil {
		return immutable.NewMap[string, CriticalPair](nil)
	}
	return ps.m
}

// Add inserts a pair. On fingerprint collision the UI-thread-witnessed pair
// wins, keeping joins monotone in the thread flag.
func (ps Pairs) Add(p CriticalPair) Pairs {
	m := ps.ensure()
	fp := p.Fingerprint()
	if prev, ok := m.Get(fp); ok && prev.OnUIThread && !p.OnUIThread {
		return Pairs{m: m}
	}
	return Pairs{m: m.Set(fp, p)}
}

// Union merges two pair sets.
func (ps Pairs) Union(other Pairs) Pairs {
	res := ps
	for itr := other.ensure().Iterator(); !itr.Done(); {
		_, p, _ := itr.Next()
		res = res.Add(p)
	}
	return res
}

func (ps Pairs) Len() int {
	return ps.ensure().Len()
}

// All returns the pairs sorted by fingerprint for deterministic iteration.
func (ps Pairs) All() []CriticalPair {
	type kv struct {
		k string
		p CriticalPair
	}
	items := make([]kv, 0, ps.Len())
	for itr := ps.ensure().Iterator(); !itr.Done(); {
		k, p, _ := itr.Next()
		items = append(items, kv{k, p})
	}
	slices.SortFunc(items, func(a, b kv) int {
		return strings.Compare(a.k, b.k)
	})
	out := make([]CriticalPair, len(items))
	for i, it := range items {
		out[i] = it.p
	}
	return out
}

func (ps Pairs) Equal(other Pairs) bool {
	m, o := ps.ensure(), other.ensure()
	if m.Len() != o.Len() {
		return false
	}
	for itr := m.Iterator(); !itr.Done(); {
		k, p, _ := itr.Next()
		op, ok := o.Get(k)
		if !ok || p.OnUIThread != op.OnUIThread {
			return false
		}
	}
	return true
}
