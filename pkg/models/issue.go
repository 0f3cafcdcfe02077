package models

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Severity ranks how urgently an issue should be fixed.
type Severity string

const (
	SeverityP0 Severity = "P0" // Critical: likely production incident
	SeverityP1 Severity = "P1" // Warning: degrades under load
)

// Rank orders severities, most severe first.
func (s Severity) Rank() int {
	switch s {
	case SeverityP0:
		return 0
	case SeverityP1:
		return 1
	default:
		return 2
	}
}

// ParseSeverity accepts "P0"/"P1" in any case.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "P0":
		return SeverityP0, true
	case "P1":
		return SeverityP1, true
	default:
		return "", false
	}
}

// Confidence grades how sure a semantic judgment is.
type Confidence string

const (
	ConfidenceNone   Confidence = ""
	ConfidenceHigh   Confidence = "high"   // Type resolved through the symbol table
	ConfidenceMedium Confidence = "medium" // Heuristic match on a known field
	ConfidenceLow    Confidence = "low"    // Naming convention only
)

// Issue is one reported finding.
type Issue struct {
	RuleID      string     `json:"id" yaml:"id"`
	Severity    Severity   `json:"severity" yaml:"severity"`
	Confidence  Confidence `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	File        string     `json:"file" yaml:"file"`
	Line        int        `json:"line" yaml:"line"`
	Description string     `json:"description" yaml:"description"`
	Evidence    string     `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}

// Fingerprint identifies an issue by rule, file and line.
func (i Issue) Fingerprint() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(i.RuleID)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(i.File)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(strconv.Itoa(i.Line))
	return d.Sum64()
}

// Dedupe drops later issues whose fingerprint was already seen.
func Dedupe(issues []Issue) []Issue {
	seen := make(map[uint64]struct{}, len(issues))
	out := issues[:0]
	for _, i := range issues {
		fp := i.Fingerprint()
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, i)
	}
	return out
}

// Less orders issues by severity, file, line, then rule.
func Less(a, b Issue) bool {
	if a.Severity.Rank() != b.Severity.Rank() {
		return a.Severity.Rank() < b.Severity.Rank()
	}
	if a.File != b.File {
		return a.File < b.File
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.RuleID < b.RuleID
}
