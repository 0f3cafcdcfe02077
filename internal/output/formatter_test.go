package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/panbanda/javaperf/pkg/callgraph"
	"github.com/panbanda/javaperf/pkg/models"
	"github.com/panbanda/javaperf/pkg/rules"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"JSON", FormatJSON},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"yml", FormatYAML},
		{"yaml", FormatYAML},
		{"toon", FormatTOON},
		{"", FormatText},
		{"html", FormatText},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFormat(tt.input))
		})
	}
}

func TestNewFormatter_FileDisablesColor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	f, err := NewFormatter(FormatText, path, true)
	require.NoError(t, err)

	assert.False(t, f.Colored())
	f.Warning("careful %d", 1)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "WARNING: careful 1\n", string(data))
}

func TestNewFormatter_BadPath(t *testing.T) {
	_, err := NewFormatter(FormatText, filepath.Join(t.TempDir(), "missing", "out.txt"), false)
	assert.Error(t, err)
}

func sampleReport() *models.Report {
	issues := []models.Issue{
		{
			RuleID: "N_PLUS_ONE", Severity: models.SeverityP0, Confidence: models.ConfidenceHigh,
			File: "svc/OrderService.java", Line: 20, Description: "Repository call inside loop",
			Evidence: "orderRepository.findById() via A.list -> B.load",
		},
		{
			RuleID: "SYNC_BLOCK", Severity: models.SeverityP1,
			File: "svc/OrderService.java", Line: 23, Description: "synchronized block",
			Evidence: "synchronized (this) | loads++",
		},
		{
			RuleID: "STRING_CONCAT_LOOP", Severity: models.SeverityP1,
			File: "svc/Util.java", Line: 4, Description: "String concatenation in loop",
		},
	}
	r := models.NewReport("/repo", 3, issues, false, 1)
	r.Chains = []callgraph.Chain{{
		Path: []callgraph.MethodSig{
			callgraph.ResolvedSig("com.a.A", "list"),
			callgraph.ResolvedSig("com.a.B", "load"),
		},
		File: "svc/OrderService.java",
		Line: 20,
	}}
	r.Failed = []models.FailedFile{{Path: "Broken.java", Error: "source is not valid UTF-8"}}
	r.Summary.FailedFiles = 1
	return r
}

func render(t *testing.T, format Format, data any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewFormatterTo(&buf, format, false).Output(data))
	return buf.String()
}

func TestReportView_Text(t *testing.T) {
	out := render(t, FormatText, ReportView{Report: sampleReport()})

	assert.Contains(t, out, "Java Performance Report")
	assert.Contains(t, out, "Files: 3  P0: 1  P1: 2  Failed: 1")
	assert.Contains(t, out, "1 P1 issue(s) not listed")
	assert.Contains(t, out, "svc/OrderService.java:20")
	assert.Contains(t, out, "svc/OrderService.java:23")
	assert.NotContains(t, out, "svc/Util.java:4")
	assert.Contains(t, out, "A.list -> B.load")
	assert.Contains(t, out, "Broken.java: source is not valid UTF-8")
}

func TestReportView_TextNoIssues(t *testing.T) {
	r := models.NewReport("/repo", 2, nil, true, 0)
	out := render(t, FormatText, ReportView{Report: r})
	assert.Contains(t, out, "No issues found.")
	assert.NotContains(t, out, "Failed Files")
}

func TestReportView_Markdown(t *testing.T) {
	out := render(t, FormatMarkdown, ReportView{Report: sampleReport()})

	assert.True(t, strings.HasPrefix(out, "# Java Performance Report\n"))
	assert.Contains(t, out, "| Severity | Rule | Location | Confidence | Description | Evidence |")
	assert.Contains(t, out, `synchronized (this) \| loads++`, "pipes are escaped")
	assert.Contains(t, out, "| N_PLUS_ONE | 1 |")
	assert.Contains(t, out, "- `svc/OrderService.java:20` A.list -> B.load")
	assert.Contains(t, out, "## Failed Files")
}

func TestReportView_Structured(t *testing.T) {
	report := sampleReport()

	var fromJSON models.Report
	require.NoError(t, json.Unmarshal([]byte(render(t, FormatJSON, ReportView{Report: report})), &fromJSON))
	assert.Equal(t, report.Issues, fromJSON.Issues)
	assert.Equal(t, report.Summary.P1, fromJSON.Summary.P1)

	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(render(t, FormatYAML, ReportView{Report: report})), &fromYAML))
	assert.Contains(t, fromYAML, "issues")

	toonOut := render(t, FormatTOON, ReportView{Report: report})
	assert.Contains(t, toonOut, "N_PLUS_ONE")
	assert.Contains(t, toonOut, "svc/OrderService.java")
}

func TestIssuesView(t *testing.T) {
	assert.Equal(t, "No issues found.\n", render(t, FormatText, IssuesView(nil)))

	issues := IssuesView{{RuleID: "SYNC_METHOD", Severity: models.SeverityP1, File: "A.java", Line: 3, Description: "synchronized method"}}
	out := render(t, FormatText, issues)
	assert.Contains(t, out, "SYNC_METHOD")
	assert.Contains(t, out, "A.java:3")

	var decoded []models.Issue
	require.NoError(t, json.Unmarshal([]byte(render(t, FormatJSON, issues)), &decoded))
	assert.Equal(t, []models.Issue(issues), decoded)
}

func TestRulesView(t *testing.T) {
	view := RulesView{Groups: rules.Default().ByCategory()}

	text := render(t, FormatText, view)
	assert.Contains(t, text, "Concurrency")
	assert.Contains(t, text, "SYNC_METHOD")

	var infos []RuleInfo
	require.NoError(t, json.Unmarshal([]byte(render(t, FormatJSON, view)), &infos))
	require.Len(t, infos, len(rules.Default().All()))
	for _, info := range infos {
		assert.NotEmpty(t, info.Category, info.ID)
	}
}

func TestOutput_RawData(t *testing.T) {
	data := map[string]int{"files": 2}

	assert.JSONEq(t, `{"files": 2}`, render(t, FormatText, data))

	md := render(t, FormatMarkdown, data)
	assert.True(t, strings.HasPrefix(md, "```json\n"))
	assert.True(t, strings.HasSuffix(md, "```\n"))

	assert.Equal(t, "files: 2\n", render(t, FormatYAML, data))
}

func TestTable_RenderData(t *testing.T) {
	table := NewTable("", []string{"a", "b"}, [][]string{{"1", "2"}, {"3"}}, nil, nil)
	assert.Equal(t, []map[string]string{{"a": "1", "b": "2"}, {"a": "3"}}, table.RenderData())

	wrapped := NewTable("", nil, nil, nil, 42)
	assert.Equal(t, 42, wrapped.RenderData())
}

func TestSection_Markdown(t *testing.T) {
	s := &Section{Title: "Top", Content: "body", Sections: []Section{{Title: "Sub", Content: "inner"}}}
	var buf bytes.Buffer
	require.NoError(t, s.RenderMarkdown(&buf))
	assert.Equal(t, "## Top\n\nbody\n\n### Sub\n\ninner\n\n", buf.String())
}

func TestMessages_Plain(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatterTo(&buf, FormatText, false)
	f.Success("ok")
	f.Error("bad %s", "thing")
	f.Info("note")
	assert.Equal(t, "ok\nERROR: bad thing\nnote\n", buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
}
