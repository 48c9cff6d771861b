package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	bold      = color.New(color.Bold)
	red       = color.New(color.FgRed, color.Bold)
	yellow    = color.New(color.FgYellow, color.Bold)
	cyan      = color.New(color.FgCyan)
	green     = color.New(color.FgGreen)
	dim       = color.New(color.Faint)
	separator = strings.Repeat("━", 40)
)

// TextWriter renders a human-readable colored report.
type TextWriter struct {
	w io.Writer
}

func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

func (t *TextWriter) Write(result *Result) error {
	bold.Fprintln(t.w, "\nLocksight Analysis")
	fmt.Fprintln(t.w, separator)
	fmt.Fprintln(t.w)

	counts := make(map[Kind]int)
	for _, i := range result.Issues {
		counts[i.Kind]++
	}
	for _, k := range []Kind{KindDeadlock, KindStarvation, KindStrictMode, KindLockless} {
		line := pluralize(counts[k], kindNoun(k))
		if counts[k] > 0 {
			red.Fprintf(t.w, "  %s\n", line)
		} else {
			green.Fprintf(t.w, "  %s\n", line)
		}
	}

	if len(result.Issues) == 0 {
		fmt.Fprintln(t.w)
		green.Fprintln(t.w, "  No concurrency issues detected.")
	}

	for _, i := range result.Issues {
		fmt.Fprintln(t.w)
		t.printIssue(i)
	}

	fmt.Fprintln(t.w)
	fmt.Fprintln(t.w, separator)
	dim.Fprintf(t.w, "  Analyzed %d procedures · %s\n", result.ProceduresAnalyzed, result.Program)
	fmt.Fprintln(t.w)
	return nil
}

func (t *TextWriter) printIssue(i Issue) {
	switch i.Kind {
	case KindDeadlock:
		red.Fprintf(t.w, "● %s", i.Kind)
	case KindStarvation:
		yellow.Fprintf(t.w, "● %s", i.Kind)
	default:
		yellow.Fprintf(t.w, "● %s", i.Kind)
	}
	dim.Fprintf(t.w, "  (%s severity)\n", i.Severity)

	fmt.Fprintf(t.w, "  Procedure: ")
	cyan.Fprintf(t.w, "%s\n", i.Proc)
	fmt.Fprintf(t.w, "  Location: ")
	cyan.Fprintf(t.w, "%s\n", i.Loc)
	fmt.Fprintf(t.w, "  %s\n", i.Message)

	if len(i.Trace) > 0 {
		fmt.Fprintln(t.w, "  Trace:")
		for _, step := range i.Trace {
			dim.Fprintf(t.w, "    %s\n", step)
		}
	}
}

func kindNoun(k Kind) string {
	switch k {
	case KindDeadlock:
		return "potential deadlock"
	case KindStarvation:
		return "UI-thread starvation"
	case KindStrictMode:
		return "Strict Mode violation"
	case KindLockless:
		return "lockless violation"
	}
	return "issue"
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
