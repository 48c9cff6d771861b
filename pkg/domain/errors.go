package domain

import "fmt"

// InvariantError signals a structurally impossible configuration reaching
// the analyzer — a defect in the analyzer itself, not in the analyzed
// program. It is raised as a panic and recovered at procedure granularity so
// one broken procedure aborts with a diagnostic instead of killing the run.
type InvariantError struct {
	Msg string
}

func (e InvariantError) Error() string {
	return "internal invariant violation: " + e.Msg
}

// Invariantf panics with an InvariantError.
func Invariantf(format string, args ...any) {
	panic(InvariantError{Msg: fmt.Sprintf(format, args...)})
}
