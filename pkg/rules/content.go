package rules

import (
	"bytes"

	"github.com/panbanda/javaperf/pkg/models"
	"github.com/panbanda/javaperf/pkg/parser"
)

// analyzeContent runs regex rules over comment-blanked source.
func analyzeContent(rules []*Rule, ctx *RuleContext) []models.Issue {
	if len(rules) == 0 {
		return nil
	}
	blanked := parser.BlankComments(ctx.Source)

	var issues []models.Issue
	for _, r := range rules {
		if r.Guard != nil && !r.Guard(ctx.Source) {
			continue
		}
		for _, loc := range r.Content.FindAllIndex(blanked, -1) {
			issues = append(issues, models.Issue{
				RuleID:      r.IssueID(),
				Severity:    r.Severity,
				File:        ctx.Path,
				Line:        bytes.Count(blanked[:loc[0]], []byte{'\n'}) + 1,
				Description: r.Description,
				Evidence:    compact(string(blanked[loc[0]:loc[1]]), 60),
			})
		}
	}
	return issues
}
