package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/locksight/locksight/pkg/domain"
	"github.com/locksight/locksight/pkg/ir"
)

func sampleResult() *Result {
	return &Result{
		Program:            "testdata/program.json",
		ProceduresAnalyzed: 2,
		Issues: []Issue{
			{
				Kind:     KindDeadlock,
				Severity: domain.SeverityHigh,
				Proc:     ir.Procname{Class: "com.example.A", Method: "m1"},
				Loc:      ir.Location{File: "A.java", Line: 10},
				Message:  "Potential deadlock. com.example.A.m1 and com.example.A.m2 acquire locks this.y and this.x in reverse orders.",
				Trace: []string{
					"[Trace 1] acquires lock this.y at A.java:12",
					"[Trace 2] acquires lock this.x at A.java:22",
				},
			},
			{
				Kind:     KindStarvation,
				Severity: domain.SeverityHigh,
				Proc:     ir.Procname{Class: "com.example.A", Method: "onClick"},
				Loc:      ir.Location{File: "A.java", Line: 30},
				Message:  "com.example.A.onClick runs on the UI thread and may block; calls Thread.sleep, which may block.",
			},
		},
	}
}

func TestJSONWriterGolden(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONWriter(&buf).Write(sampleResult()); err != nil {
		t.Fatal(err)
	}
	g := goldie.New(t)
	g.Assert(t, "json_report", buf.Bytes())
}

func TestTextWriterRendersIssues(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextWriter(&buf).Write(sampleResult()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Locksight Analysis",
		"DEADLOCK",
		"STARVATION",
		"com.example.A.m1",
		"A.java:10",
		"[Trace 1] acquires lock this.y at A.java:12",
		"Analyzed 2 procedures",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q", want)
		}
	}
}

func TestTextWriterEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextWriter(&buf).Write(&Result{Program: "p", ProceduresAnalyzed: 1}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No concurrency issues detected.") {
		t.Error("empty result should say no issues were found")
	}
}

func TestSARIFWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewSARIFWriter(&buf).Write(sampleResult()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		`"version": "2.1.0"`,
		`"name": "locksight"`,
		`"ruleId": "LS0001"`,
		`"ruleId": "LS0002"`,
		`"uri": "A.java"`,
		`"startLine": 10`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("sarif output missing %q", want)
		}
	}
}

func TestNewWriterRejectsUnknownFormat(t *testing.T) {
	if _, err := NewWriter("xml", &bytes.Buffer{}); err == nil {
		t.Error("unknown format accepted")
	}
}
