// Package suppression parses java-perf-ignore directives and
// @SuppressWarnings("java-perf:ID") annotations.
package suppression

import (
	"regexp"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/javaperf/pkg/models"
	"github.com/panbanda/javaperf/pkg/parser"
)

const annotationMarker = "@SuppressWarnings"

var (
	markerRE = regexp.MustCompile(`java-perf-ignore(-next-line|-file)?`)
	idListRE = regexp.MustCompile(`^\s*:\s*([A-Z][A-Z0-9_]*(?:\s*,\s*[A-Z][A-Z0-9_]*)*)`)
	nsIDRE   = regexp.MustCompile(`java-perf:([A-Z][A-Z0-9_]*)`)
)

// Context holds the suppressions declared in one file.
type Context struct {
	lines   map[int]map[string]struct{}
	all     *roaring.Bitmap
	fileIDs map[string]struct{}
	fileAll bool
}

// Parse scans source for directives. Malformed directives are ignored.
func Parse(source string) *Context {
	c := &Context{
		lines:   make(map[int]map[string]struct{}),
		all:     roaring.New(),
		fileIDs: make(map[string]struct{}),
	}

	src := []byte(source)
	// Directives only count inside comments; annotations only outside.
	comments := strings.Split(string(parser.CommentsOnly(src)), "\n")
	code := strings.Split(string(parser.BlankComments(src)), "\n")
	for i, text := range comments {
		c.parseComment(text, i+1)
	}
	for i, text := range code {
		if strings.Contains(text, annotationMarker) {
			c.parseAnnotation(code, i)
		}
	}
	return c
}

func (c *Context) parseComment(text string, lineNo int) {
	for _, loc := range markerRE.FindAllStringSubmatchIndex(text, -1) {
		end := loc[1]
		rest := text[end:]
		if rest != "" && isMarkerChar(rest[0]) {
			continue
		}

		var ids []string
		if strings.HasPrefix(strings.TrimSpace(rest), ":") {
			m := idListRE.FindStringSubmatch(rest)
			if m == nil {
				continue
			}
			for _, id := range strings.Split(m[1], ",") {
				ids = append(ids, strings.TrimSpace(id))
			}
		}

		var kind string
		if loc[2] >= 0 {
			kind = text[loc[2]:loc[3]]
		}
		switch kind {
		case "-file":
			if len(ids) == 0 {
				c.fileAll = true
			}
			for _, id := range ids {
				c.fileIDs[id] = struct{}{}
			}
		case "-next-line":
			c.addLine(lineNo+1, ids)
		default:
			c.addLine(lineNo, ids)
		}
	}
}

// parseAnnotation handles a @SuppressWarnings starting on lines[start]. The
// argument list may span lines. Suppression covers the annotation through
// the declaration line that follows it.
func (c *Context) parseAnnotation(lines []string, start int) {
	var args strings.Builder
	depth, opened := 0, false
	end := start
	for end < len(lines) {
		text := lines[end]
		if end == start {
			text = text[strings.Index(text, annotationMarker):]
		}
		for _, r := range text {
			switch r {
			case '(':
				depth++
				opened = true
			case ')':
				depth--
			}
		}
		args.WriteString(text)
		args.WriteByte('\n')
		if !opened || depth <= 0 {
			break
		}
		end++
	}

	var ids []string
	for _, m := range nsIDRE.FindAllStringSubmatch(args.String(), -1) {
		ids = append(ids, m[1])
	}
	if len(ids) == 0 {
		return
	}

	decl := end + 1
	for decl < len(lines) {
		t := strings.TrimSpace(lines[decl])
		if t != "" && !strings.HasPrefix(t, "@") {
			break
		}
		decl++
	}
	for l := start; l <= decl && l < len(lines); l++ {
		c.addLine(l+1, ids)
	}
}

func (c *Context) addLine(line int, ids []string) {
	if len(ids) == 0 {
		c.all.Add(uint32(line))
		return
	}
	set := c.lines[line]
	if set == nil {
		set = make(map[string]struct{}, len(ids))
		c.lines[line] = set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
}

// IsSuppressed reports whether ruleID is withheld at line.
func (c *Context) IsSuppressed(ruleID string, line int) bool {
	if c == nil {
		return false
	}
	if c.fileAll {
		return true
	}
	if _, ok := c.fileIDs[ruleID]; ok {
		return true
	}
	if line > 0 && c.all.Contains(uint32(line)) {
		return true
	}
	_, ok := c.lines[line][ruleID]
	return ok
}

// FileSuppressed reports whether the whole file is suppressed.
func (c *Context) FileSuppressed() bool {
	return c != nil && c.fileAll
}

// Empty reports whether the file declares no suppressions at all.
func (c *Context) Empty() bool {
	return c == nil || (!c.fileAll && len(c.fileIDs) == 0 && c.all.IsEmpty() && len(c.lines) == 0)
}

// Filter removes suppressed issues in place and returns the survivors.
func (c *Context) Filter(issues []models.Issue) []models.Issue {
	if c.Empty() {
		return issues
	}
	out := issues[:0]
	for _, i := range issues {
		if !c.IsSuppressed(i.RuleID, i.Line) {
			out = append(out, i)
		}
	}
	return out
}

func isMarkerChar(b byte) bool {
	return b == '-' || b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
