package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/locksight/locksight/pkg/domain"
)

// SARIF 2.1.0 output, the minimal subset code-review tooling consumes.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

// SARIFWriter renders the report as a SARIF 2.1.0 log.
type SARIFWriter struct {
	w io.Writer
}

func NewSARIFWriter(w io.Writer) *SARIFWriter {
	return &SARIFWriter{w: w}
}

func (s *SARIFWriter) Write(result *Result) error {
	ruleSeen := make(map[string]bool)
	var rules []sarifRule
	results := make([]sarifResult, 0, len(result.Issues))

	for _, i := range result.Issues {
		ruleID := ruleIDFor(i.Kind)
		if !ruleSeen[ruleID] {
			ruleSeen[ruleID] = true
			rules = append(rules, sarifRule{ID: ruleID, Name: i.Kind.String()})
		}
		text := i.Message
		if len(i.Trace) > 0 {
			text += "\n" + strings.Join(i.Trace, "\n")
		}
		results = append(results, sarifResult{
			RuleID:  ruleID,
			Level:   sarifLevel(i),
			Message: sarifMessage{Text: text},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: i.Loc.File},
					Region:           sarifRegion{StartLine: i.Loc.Line},
				},
			}},
		})
	}

	log := sarifLog{
		Version: "2.1.0",
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: "locksight", Rules: rules}},
			Results: results,
		}},
	}

	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(log); err != nil {
		return fmt.Errorf("encode sarif: %w", err)
	}
	return nil
}

func ruleIDFor(k Kind) string {
	switch k {
	case KindDeadlock:
		return "LS0001"
	case KindStarvation:
		return "LS0002"
	case KindStrictMode:
		return "LS0003"
	case KindLockless:
		return "LS0004"
	}
	return "LS0000"
}

func sarifLevel(i Issue) string {
	if i.Kind == KindDeadlock || i.Severity == domain.SeverityHigh {
		return "error"
	}
	return "warning"
}
