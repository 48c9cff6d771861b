package checker

import (
	"github.com/locksight/locksight/pkg/domain"
	"github.com/locksight/locksight/pkg/ir"
)

// Integrate substitutes a callee's summary into the caller's state at a call
// site. Critical pairs are rebased onto the actual arguments, extended with
// the caller's held chain, and their traces gain a frame for the call site.
// Pairs whose paths cannot be rebound are dropped. The callee's held locks
// and guards are not inherited: callees are assumed balanced. Integration is
// monotone in both arguments and idempotent for a fixed summary.
func Integrate(st domain.State, sum domain.Summary, callee ir.Procname, actuals []ir.Exp, loc ir.Location) domain.State {
	callerOnUI := st.UIThread.IsTrue()
	for _, cp := range sum.Pairs.All() {
		rebased, ok := cp.Rebase(actuals)
		if !ok {
			continue
		}
		transferred := rebased.WithCallsite(st.Held, callee, loc, callerOnUI)
		st.Pairs = st.Pairs.Add(transferred)
	}
	st.UIThread = st.UIThread.Join(sum.UIThread)
	return st
}
