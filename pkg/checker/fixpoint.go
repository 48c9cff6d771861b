package checker

import (
	"github.com/locksight/locksight/pkg/domain"
	"github.com/locksight/locksight/pkg/ir"
)

// TransferFunc applies one instruction to a state.
type TransferFunc func(domain.State, ir.Instr) domain.State

// Engine is the intra-procedural worklist fixpoint. It joins at merge points
// and iterates until block entry states stabilize; widening coincides with
// join, so the iteration count is bounded by the procedure's lock alphabet.
type Engine struct {
	// MaxSteps bounds worklist pops as a safety net against non-monotone
	// transfer functions. Zero means the default.
	MaxSteps int
}

const defaultMaxSteps = 100000

// Analyze runs tf over the CFG from the initial state and returns the exit
// state: the join of the final states of all exit blocks.
func (e Engine) Analyze(cfg ir.CFG, init domain.State, tf TransferFunc) domain.State {
	entry := cfg.EntryBlock()
	if entry == nil {
		return init
	}

	maxSteps := e.MaxSteps
	if maxSteps == 0 {
		maxSteps = defaultMaxSteps
	}

	pre := map[int]domain.State{entry.ID: init}
	post := make(map[int]domain.State)
	wl := newWorklist(entry)

	for steps := 0; !wl.empty() && steps < maxSteps; steps++ {
		b := wl.pop()
		st := pre[b.ID]
		for _, instr := range b.Instrs {
			st = tf(st, instr)
		}
		post[b.ID] = st

		for _, succID := range b.Succs {
			succ := cfg.BlockByID(succID)
			if succ == nil {
				continue
			}
			old, seen := pre[succID]
			merged := st
			if seen {
				merged = old.Widen(st)
				if merged.Equal(old) {
					continue
				}
			}
			pre[succID] = merged
			wl.push(succ)
		}
	}

	return exitState(cfg, post, init)
}

// exitState joins the post-states of all blocks without successors. A CFG
// where every block loops (no exit) contributes the join of everything
// reached, so the summary is still meaningful.
func exitState(cfg ir.CFG, post map[int]domain.State, init domain.State) domain.State {
	var exit domain.State
	found := false
	for _, b := range cfg.AllBlocks() {
		st, visited := post[b.ID]
		if !visited {
			continue
		}
		if len(b.Succs) > 0 {
			continue
		}
		if !found {
			exit = st
			found = true
		} else {
			exit = exit.Join(st)
		}
	}
	if found {
		return exit
	}
	for _, b := range cfg.AllBlocks() {
		st, visited := post[b.ID]
		if !visited {
			continue
		}
		if !found {
			exit = st
			found = true
		} else {
			exit = exit.Join(st)
		}
	}
	if !found {
		return init
	}
	return exit
}

// worklist is a FIFO queue of blocks with membership tracking.
type worklist struct {
	queue   []*ir.Block
	inQueue map[int]bool
}

func newWorklist(entry *ir.Block) *worklist {
	return &worklist{
		queue:   []*ir.Block{entry},
		inQueue: map[int]bool{entry.ID: true},
	}
}

func (w *worklist) push(b *ir.Block) {
	if !w.inQueue[b.ID] {
		w.queue = append(w.queue, b)
		w.inQueue[b.ID] = true
	}
}

func (w *worklist) pop() *ir.Block {
	b := w.queue[0]
	w.queue = w.queue[1:]
	w.inQueue[b.ID] = false
	return b
}

func (w *worklist) empty() bool {
	return len(w.queue) == 0
}
