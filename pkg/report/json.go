package report

import (
	"encoding/json"
	"fmt"
	"io"
)

type jsonIssue struct {
	Kind     string   `json:"kind"`
	Severity string   `json:"severity"`
	Proc     string   `json:"procedure"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line"`
	Message  string   `json:"message"`
	Trace    []string `json:"trace,omitempty"`
}

type jsonReport struct {
	Program            string      `json:"program"`
	ProceduresAnalyzed int         `json:"procedures_analyzed"`
	Issues             []jsonIssue `json:"issues"`
}

// JSONWriter renders the report as indented JSON.
type JSONWriter struct {
	w io.Writer
}

func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

func (j *JSONWriter) Write(result *Result) error {
	out := jsonReport{
		Program:            result.Program,
		ProceduresAnalyzed: result.ProceduresAnalyzed,
		Issues:             make([]jsonIssue, 0, len(result.Issues)),
	}
	for _, i := range result.Issues {
		out.Issues = append(out.Issues, jsonIssue{
			Kind:     i.Kind.String(),
			Severity: i.Severity.String(),
			Proc:     i.Proc.String(),
			File:     i.Loc.File,
			Line:     i.Loc.Line,
			Message:  i.Message,
			Trace:    i.Trace,
		})
	}
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
