package models

import (
	"sort"

	"github.com/panbanda/javaperf/pkg/callgraph"
)

// DefaultMaxSecondary is the number of P1 issues shown in a full report.
const DefaultMaxSecondary = 5

// Summary aggregates counts across a scan.
type Summary struct {
	Files        int            `json:"files" yaml:"files"`
	FailedFiles  int            `json:"failed_files,omitempty" yaml:"failed_files,omitempty"`
	P0           int            `json:"p0" yaml:"p0"`
	P1           int            `json:"p1" yaml:"p1"`
	OmittedP1    int            `json:"omitted_p1,omitempty" yaml:"omitted_p1,omitempty"`
	ByRule       map[string]int `json:"by_rule,omitempty" yaml:"by_rule,omitempty"`
	ByConfidence map[string]int `json:"by_confidence,omitempty" yaml:"by_confidence,omitempty"`
}

// FailedFile records a file that could not be analyzed.
type FailedFile struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// Report is the result of a project scan.
type Report struct {
	Root    string                `json:"root" yaml:"root"`
	Compact bool                  `json:"compact" yaml:"compact"`
	Summary Summary               `json:"summary" yaml:"summary"`
	Issues  []Issue               `json:"issues" yaml:"issues"`
	Chains  []callgraph.Chain     `json:"chains,omitempty" yaml:"chains,omitempty"`
	Graph   *callgraph.GraphStats `json:"graph,omitempty" yaml:"graph,omitempty"`
	Failed  []FailedFile          `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// SortIssues orders issues by severity, file, line and rule.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool { return Less(issues[i], issues[j]) })
}

// NewReport builds a report from all issues found. Counts always cover every
// issue. Compact mode lists only P0 issues; full mode lists every P0 issue
// and at most maxSecondary P1 issues.
func NewReport(root string, files int, issues []Issue, compact bool, maxSecondary int) *Report {
	SortIssues(issues)

	r := &Report{
		Root:    root,
		Compact: compact,
		Summary: Summary{
			Files:        files,
			ByRule:       make(map[string]int),
			ByConfidence: make(map[string]int),
		},
		Issues: make([]Issue, 0, len(issues)),
	}

	if maxSecondary < 0 {
		maxSecondary = 0
	}

	shownP1 := 0
	for _, i := range issues {
		r.Summary.ByRule[i.RuleID]++
		if i.Confidence != ConfidenceNone {
			r.Summary.ByConfidence[string(i.Confidence)]++
		}

		switch i.Severity {
		case SeverityP0:
			r.Summary.P0++
			r.Issues = append(r.Issues, i)
		case SeverityP1:
			r.Summary.P1++
			if !compact && shownP1 < maxSecondary {
				r.Issues = append(r.Issues, i)
				shownP1++
			}
		}
	}
	r.Summary.OmittedP1 = r.Summary.P1 - shownP1

	return r
}
