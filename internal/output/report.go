package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/panbanda/javaperf/pkg/models"
	"github.com/panbanda/javaperf/pkg/rules"
)

// evidenceWidth bounds evidence in text tables; structured formats keep it
// whole.
const evidenceWidth = 80

// ReportView renders a scan report.
type ReportView struct {
	Report *models.Report
}

func (v ReportView) RenderData() any { return v.Report }

func (v ReportView) RenderText(w io.Writer, colored bool) error {
	r := v.Report
	writeTitle(w, "Java Performance Report", "=", colored)
	fmt.Fprintf(w, "Root:   %s\n", r.Root)
	fmt.Fprintln(w, summaryLine(r.Summary))
	if r.Summary.OmittedP1 > 0 {
		hint := "use full mode to list them"
		if !r.Compact {
			hint = "raise --max-secondary to list them"
		}
		fmt.Fprintf(w, "%d P1 issue(s) not listed; %s\n", r.Summary.OmittedP1, hint)
	}
	fmt.Fprintln(w)

	if len(r.Issues) == 0 {
		msg := "No issues found."
		if colored {
			msg = color.GreenString(msg)
		}
		fmt.Fprintln(w, msg)
		fmt.Fprintln(w)
	} else if err := IssuesView(r.Issues).table(colored, evidenceWidth).RenderText(w, colored); err != nil {
		return err
	}

	if len(r.Chains) > 0 {
		writeTitle(w, "N+1 Call Chains", "-", colored)
		for _, c := range r.Chains {
			fmt.Fprintf(w, "  %s:%d  %s\n", c.File, c.Line, c.String())
		}
		fmt.Fprintln(w)
	}

	if len(r.Failed) > 0 {
		writeTitle(w, "Failed Files", "-", colored)
		for _, f := range r.Failed {
			line := fmt.Sprintf("  %s: %s", f.Path, f.Error)
			if colored {
				line = color.RedString(line)
			}
			fmt.Fprintln(w, line)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func (v ReportView) RenderMarkdown(w io.Writer) error {
	r := v.Report
	fmt.Fprintf(w, "# Java Performance Report\n\n")
	fmt.Fprintf(w, "- Root: `%s`\n", r.Root)
	fmt.Fprintf(w, "- %s\n", summaryLine(r.Summary))
	if r.Summary.OmittedP1 > 0 {
		fmt.Fprintf(w, "- P1 not listed: %d\n", r.Summary.OmittedP1)
	}
	fmt.Fprintln(w)

	if len(r.Issues) > 0 {
		if err := IssuesView(r.Issues).table(false, 0).RenderMarkdown(w); err != nil {
			return err
		}
	}

	if len(r.Summary.ByRule) > 0 {
		ids := make([]string, 0, len(r.Summary.ByRule))
		for id := range r.Summary.ByRule {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		rows := make([][]string, len(ids))
		for i, id := range ids {
			rows[i] = []string{id, strconv.Itoa(r.Summary.ByRule[id])}
		}
		if err := NewTable("By Rule", []string{"Rule", "Count"}, rows, nil, nil).RenderMarkdown(w); err != nil {
			return err
		}
	}

	if len(r.Chains) > 0 {
		fmt.Fprintf(w, "## N+1 Call Chains\n\n")
		for _, c := range r.Chains {
			fmt.Fprintf(w, "- `%s:%d` %s\n", c.File, c.Line, c.String())
		}
		fmt.Fprintln(w)
	}

	if len(r.Failed) > 0 {
		fmt.Fprintf(w, "## Failed Files\n\n")
		for _, f := range r.Failed {
			fmt.Fprintf(w, "- `%s`: %s\n", f.Path, f.Error)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func summaryLine(s models.Summary) string {
	line := fmt.Sprintf("Files: %d  P0: %d  P1: %d", s.Files, s.P0, s.P1)
	if s.FailedFiles > 0 {
		line += fmt.Sprintf("  Failed: %d", s.FailedFiles)
	}
	return line
}

// IssuesView renders a flat issue list, as produced for a single file.
type IssuesView []models.Issue

func (v IssuesView) RenderData() any { return []models.Issue(v) }

func (v IssuesView) RenderText(w io.Writer, colored bool) error {
	if len(v) == 0 {
		fmt.Fprintln(w, "No issues found.")
		return nil
	}
	return v.table(colored, evidenceWidth).RenderText(w, colored)
}

func (v IssuesView) RenderMarkdown(w io.Writer) error {
	if len(v) == 0 {
		fmt.Fprintf(w, "No issues found.\n\n")
		return nil
	}
	return v.table(false, 0).RenderMarkdown(w)
}

// table builds the issue table. A positive width truncates evidence.
func (v IssuesView) table(colored bool, width int) *Table {
	rows := make([][]string, len(v))
	for i, issue := range v {
		sev := string(issue.Severity)
		conf := string(issue.Confidence)
		evidence := issue.Evidence
		if colored {
			sev = SeverityColor(sev, sev)
			conf = SeverityColor(conf, conf)
		}
		if width > 0 {
			evidence = truncate(evidence, width)
		}
		rows[i] = []string{
			sev,
			issue.RuleID,
			fmt.Sprintf("%s:%d", issue.File, issue.Line),
			conf,
			issue.Description,
			evidence,
		}
	}
	return NewTable("Issues", []string{"Severity", "Rule", "Location", "Confidence", "Description", "Evidence"}, rows, nil, []models.Issue(v))
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

// RuleInfo is the serialized form of a rule in listings.
type RuleInfo struct {
	ID          string `json:"id" yaml:"id"`
	Category    string `json:"category" yaml:"category"`
	Severity    string `json:"severity" yaml:"severity"`
	Description string `json:"description" yaml:"description"`
	Rationale   string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Fix         string `json:"fix,omitempty" yaml:"fix,omitempty"`
}

// RulesView renders the rule catalog grouped by category.
type RulesView struct {
	Groups map[rules.Category][]*rules.Rule
}

func (v RulesView) categories() []rules.Category {
	out := make([]rules.Category, 0, len(v.Groups))
	for _, c := range rules.Categories {
		if len(v.Groups[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

func (v RulesView) RenderData() any {
	var out []RuleInfo
	for _, c := range v.categories() {
		for _, r := range v.Groups[c] {
			out = append(out, RuleInfo{
				ID:          r.ID,
				Category:    string(c),
				Severity:    string(r.Severity),
				Description: r.Description,
				Rationale:   r.Rationale,
				Fix:         r.Fix,
			})
		}
	}
	return out
}

func (v RulesView) tables(colored bool) []*Table {
	var out []*Table
	for _, c := range v.categories() {
		rows := make([][]string, 0, len(v.Groups[c]))
		for _, r := range v.Groups[c] {
			sev := string(r.Severity)
			if colored {
				sev = SeverityColor(sev, sev)
			}
			rows = append(rows, []string{r.ID, sev, r.Description})
		}
		out = append(out, NewTable(titleCase(string(c)), []string{"Rule", "Severity", "Description"}, rows, nil, nil))
	}
	return out
}

func (v RulesView) RenderText(w io.Writer, colored bool) error {
	for _, t := range v.tables(colored) {
		if err := t.RenderText(w, colored); err != nil {
			return err
		}
	}
	return nil
}

func (v RulesView) RenderMarkdown(w io.Writer) error {
	for _, t := range v.tables(false) {
		if err := t.RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
