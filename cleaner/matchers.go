package cleaner

import (
	"regexp"
	"strings"
)

// Category names one kind of duplicate artifact.
type Category string

const (
	CategoryColumn       Category = "columns"
	CategoryForeignKey   Category = "foreign_keys"
	CategoryIndex        Category = "indexes"
	CategoryProperty     Category = "properties"
	CategoryModelIndex   Category = "model_indexes"
	CategoryRelationship Category = "relationships"
)

// Categories lists every category in the order the cleaner applies them.
var Categories = []Category{
	CategoryColumn,
	CategoryForeignKey,
	CategoryIndex,
	CategoryProperty,
	CategoryModelIndex,
	CategoryRelationship,
}

// Label is the human readable name used in reports.
func (c Category) Label() string {
	switch c {
	case CategoryColumn:
		return "Duplicate columns"
	case CategoryForeignKey:
		return "Foreign keys"
	case CategoryIndex:
		return "Indexes"
	case CategoryProperty:
		return "Snapshot properties"
	case CategoryModelIndex:
		return "Snapshot indexes"
	case CategoryRelationship:
		return "Snapshot relationships"
	}
	return string(c)
}

// statementEnd says how a matched artifact is terminated.
type statementEnd int

const (
	// endSemicolon: the call may be followed by chained calls and ends at ';'.
	endSemicolon statementEnd = iota
	// endComma: a member of an initializer, optionally followed by ','.
	endComma
)

// anchorMatch is what a matcher's accept func gets to look at.
type anchorMatch struct {
	Groups []string // regexp submatches of the anchor
	Args   string   // argument text of the anchor call
	Calls  []call   // chained calls after the anchor call
}

// Matcher finds one kind of duplicate artifact in a document.
type Matcher struct {
	Category Category

	// anchor must end at the '(' opening the first call of the statement.
	anchor *regexp.Regexp
	// receiver is the anchor submatch holding the receiver variable, or 0.
	receiver    int
	lineStart   bool
	end         statementEnd
	absorbBlank bool
	accept      func(m anchorMatch) bool
}

// span is a region of the document to delete.
type span struct {
	start, end int
}

var (
	nameArgRE      = regexp.MustCompile(`\bname\s*:\s*"([^"]*)"`)
	stringArgRE    = regexp.MustCompile(`"(\w+)"`)
	singleStringRE = regexp.MustCompile(`^\s*"(\w+)"\s*$`)
)

func nameArg(args string) string {
	if m := nameArgRE.FindStringSubmatch(args); m != nil {
		return m[1]
	}
	return ""
}

// topLevelStrings returns the string literal arguments that are not nested
// inside another call or lambda.
func topLevelStrings(args string) []string {
	var out []string
	depth := 0
	for i := 0; i < len(args); {
		if args[i] == '"' {
			j := skipNonCode(args, i)
			if depth == 0 {
				if m := stringArgRE.FindStringSubmatch(args[i:j]); m != nil {
					out = append(out, m[1])
				}
			}
			i = j
			continue
		}
		if j := skipNonCode(args, i); j != i {
			i = j
			continue
		}
		switch args[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
		i++
	}
	return out
}

// buildMatchers returns the ordered, declarative matcher list for rules.
func buildMatchers(r Rules) []Matcher {
	isDup := r.IsDuplicateColumn
	refsDup := r.ReferencesDuplicate
	typeOK := func(t string) bool {
		t = strings.TrimSuffix(t, "?")
		for _, ct := range r.ColumnTypes {
			if t == ct {
				return true
			}
		}
		return false
	}
	anyDup := func(names []string) bool {
		for _, n := range names {
			if isDup(n) {
				return true
			}
		}
		return false
	}

	return []Matcher{
		{
			Category: CategoryColumn,
			anchor:   regexp.MustCompile(`(?m)^[ \t]*(\w+)[ \t]*=[ \t]*\w+\.Column<([\w.]+\??)>\s*\(`),
			end:      endComma,
			accept: func(m anchorMatch) bool {
				return isDup(m.Groups[1]) && typeOK(m.Groups[2])
			},
		},
		{
			Category:    CategoryColumn,
			anchor:      regexp.MustCompile(`\b\w+\.AddColumn<([\w.]+\??)>\s*\(`),
			absorbBlank: true,
			accept: func(m anchorMatch) bool {
				return isDup(nameArg(m.Args)) && typeOK(m.Groups[1])
			},
		},
		{
			Category:    CategoryColumn,
			anchor:      regexp.MustCompile(`\b\w+\.DropColumn\s*\(`),
			absorbBlank: true,
			accept: func(m anchorMatch) bool {
				return isDup(nameArg(m.Args))
			},
		},
		{
			Category: CategoryForeignKey,
			anchor:   regexp.MustCompile(`\b\w+\.ForeignKey\s*\(`),
			accept: func(m anchorMatch) bool {
				return refsDup(nameArg(m.Args))
			},
		},
		{
			Category:    CategoryForeignKey,
			anchor:      regexp.MustCompile(`\b\w+\.(?:Add|Drop)ForeignKey\s*\(`),
			absorbBlank: true,
			accept: func(m anchorMatch) bool {
				return refsDup(nameArg(m.Args))
			},
		},
		{
			Category:    CategoryIndex,
			anchor:      regexp.MustCompile(`\b\w+\.(?:Create|Drop)Index\s*\(`),
			absorbBlank: true,
			accept: func(m anchorMatch) bool {
				return refsDup(nameArg(m.Args))
			},
		},
		{
			Category:    CategoryProperty,
			anchor:      regexp.MustCompile(`\b(\w+)\.Property(?:<[^>;\n]*>)?\s*\(`),
			receiver:    1,
			lineStart:   true,
			absorbBlank: true,
			accept: func(m anchorMatch) bool {
				s := singleStringRE.FindStringSubmatch(m.Args)
				return s != nil && isDup(s[1])
			},
		},
		{
			Category:    CategoryModelIndex,
			anchor:      regexp.MustCompile(`\b(\w+)\.HasIndex\s*\(`),
			receiver:    1,
			lineStart:   true,
			absorbBlank: true,
			accept: func(m anchorMatch) bool {
				return anyDup(topLevelStrings(m.Args))
			},
		},
		{
			Category:    CategoryRelationship,
			anchor:      regexp.MustCompile(`\b(\w+)\.HasOne\s*\(`),
			receiver:    1,
			lineStart:   true,
			absorbBlank: true,
			accept: func(m anchorMatch) bool {
				for _, c := range m.Calls {
					if c.Name == "HasForeignKey" && anyDup(topLevelStrings(c.Args)) {
						return true
					}
				}
				return false
			},
		},
	}
}

// find returns the regions to delete, in ascending order, plus the duplicate
// artifacts that could not be bounded safely.
func (m Matcher) find(doc string, terminators map[string]bool) ([]span, []Skip) {
	var (
		spans []span
		skips []Skip
		from  int
	)
	for _, loc := range m.anchor.FindAllStringSubmatchIndex(doc, -1) {
		start, open := loc[0], loc[1]-1
		if start < from || doc[open] != '(' {
			continue
		}
		if m.lineStart && !onlySpaceBefore(doc, start) {
			continue
		}
		groups := make([]string, len(loc)/2)
		for g := range groups {
			if loc[2*g] >= 0 {
				groups[g] = doc[loc[2*g]:loc[2*g+1]]
			}
		}
		closing, ok := matchClose(doc, open)
		if !ok {
			continue
		}
		am := anchorMatch{Groups: groups, Args: doc[open+1 : closing]}

		var end int
		switch m.end {
		case endComma:
			if !m.accept(am) {
				continue
			}
			end = closing + 1
			for end < len(doc) && (doc[end] == ' ' || doc[end] == '\t') {
				end++
			}
			if end < len(doc) && doc[end] == ',' {
				end++
			}
		default:
			recv := ""
			if m.receiver > 0 {
				recv = groups[m.receiver]
			}
			stmtEnd, calls, err := scanChain(doc, closing+1, recv, terminators)
			am.Calls = calls
			if !m.accept(am) {
				continue
			}
			if err != nil {
				skips = append(skips, Skip{
					Category: m.Category,
					Line:     lineOf(doc, start),
					Text:     firstLine(doc[start:]),
					Reason:   err.Error(),
				})
				continue
			}
			end = stmtEnd
		}

		s := widen(doc, start, end, m.absorbBlank)
		if len(spans) > 0 && s.start < spans[len(spans)-1].end {
			s.start = spans[len(spans)-1].end
		}
		spans = append(spans, s)
		from = end
	}
	return spans, skips
}

func onlySpaceBefore(doc string, i int) bool {
	for j := i - 1; j >= 0; j-- {
		switch doc[j] {
		case '\n':
			return true
		case ' ', '\t':
		default:
			return false
		}
	}
	return true
}

func lineOf(doc string, i int) int {
	return strings.Count(doc[:i], "\n") + 1
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// lineBounds returns the start of the line holding i and the index just past
// its '\n' (or len(doc)).
func lineBounds(doc string, i int) (int, int) {
	start := strings.LastIndexByte(doc[:i], '\n') + 1
	end := len(doc)
	if j := strings.IndexByte(doc[i:], '\n'); j >= 0 {
		end = i + j + 1
	}
	return start, end
}

func isBlank(s string) bool {
	return strings.TrimLeft(s, " \t\r\n") == ""
}

// widen grows [start,end) to whole lines when the artifact is alone on its
// lines, and optionally takes one adjacent blank line with it.
func widen(doc string, start, end int, absorbBlank bool) span {
	lineStart, _ := lineBounds(doc, start)
	if !isBlank(doc[lineStart:start]) {
		return span{start, end}
	}
	restEnd := len(doc)
	if j := strings.IndexByte(doc[end:], '\n'); j >= 0 {
		restEnd = end + j + 1
	}
	if !isBlank(doc[end:restEnd]) {
		return span{start, end}
	}
	s := span{lineStart, restEnd}
	if !absorbBlank {
		return s
	}
	if s.end < len(doc) {
		_, nextEnd := lineBounds(doc, s.end)
		if isBlank(doc[s.end:nextEnd]) && strings.HasSuffix(doc[s.end:nextEnd], "\n") {
			s.end = nextEnd
			return s
		}
	}
	if s.start > 0 {
		prevStart, _ := lineBounds(doc, s.start-1)
		if isBlank(doc[prevStart:s.start]) {
			s.start = prevStart
		}
	}
	return s
}
