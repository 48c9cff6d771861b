package report

import (
	"fmt"
	"io"
)

// Result holds the outcome of one analysis run.
type Result struct {
	Program            string
	ProceduresAnalyzed int
	Issues             []Issue
}

// Writer renders a Result to an output stream.
type Writer interface {
	Write(result *Result) error
}

// NewWriter selects a writer by format name: "text", "json", or "sarif".
func NewWriter(format string, w io.Writer) (Writer, error) {
	switch format {
	case "text", "":
		return NewTextWriter(w), nil
	case "json":
		return NewJSONWriter(w), nil
	case "sarif":
		return NewSARIFWriter(w), nil
	}
	return nil, fmt.Errorf("unsupported format: %s", format)
}
