package cleaner

import (
	"fmt"
	"strings"
)

// call is one invocation inside a chained statement, e.g. `.HasForeignKey("CustomerId1")`.
type call struct {
	Name string
	Args string
}

// chainError explains why a statement could not be bounded.
type chainError struct {
	reason string
}

func (e *chainError) Error() string { return e.reason }

// skipNonCode returns the index just past the string literal, char literal or
// comment starting at i. It returns i when none starts there.
func skipNonCode(doc string, i int) int {
	rest := doc[i:]
	switch {
	case strings.HasPrefix(rest, "//"):
		if j := strings.IndexByte(rest, '\n'); j >= 0 {
			return i + j
		}
		return len(doc)
	case strings.HasPrefix(rest, "/*"):
		if j := strings.Index(rest[2:], "*/"); j >= 0 {
			return i + 2 + j + 2
		}
		return len(doc)
	case strings.HasPrefix(rest, `@"`):
		j := i + 2
		for j < len(doc) {
			if doc[j] == '"' {
				if j+1 < len(doc) && doc[j+1] == '"' {
					j += 2
					continue
				}
				return j + 1
			}
			j++
		}
		return len(doc)
	case rest[0] == '"' || rest[0] == '\'':
		quote := rest[0]
		j := i + 1
		for j < len(doc) {
			switch doc[j] {
			case '\\':
				j += 2
				continue
			case quote:
				return j + 1
			case '\n':
				// unterminated literal; stop at the line end
				return j
			}
			j++
		}
		return len(doc)
	}
	return i
}

// matchClose returns the index of the ')' closing the '(' at open.
// Nesting of (), [] and {} is tracked; literals and comments are skipped.
func matchClose(doc string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(doc); {
		if j := skipNonCode(doc, i); j != i {
			i = j
			continue
		}
		switch doc[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i, doc[i] == ')'
			}
			if depth < 0 {
				return i, false
			}
		}
		i++
	}
	return -1, false
}

// skipSpace skips whitespace and comments.
func skipSpace(doc string, i int) int {
	for i < len(doc) {
		switch doc[i] {
		case ' ', '\t', '\r', '\n':
			i++
			continue
		}
		if strings.HasPrefix(doc[i:], "//") || strings.HasPrefix(doc[i:], "/*") {
			i = skipNonCode(doc, i)
			continue
		}
		break
	}
	return i
}

func isIdentByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

func readIdent(doc string, i int) (string, int) {
	j := i
	for j < len(doc) && isIdentByte(doc[j]) {
		j++
	}
	return doc[i:j], j
}

// skipGeneric skips a `<...>` type argument list starting at i.
func skipGeneric(doc string, i int) int {
	if i >= len(doc) || doc[i] != '<' {
		return i
	}
	depth := 0
	for j := i; j < len(doc); j++ {
		switch doc[j] {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return j + 1
			}
		case ';', '(', '\n':
			return i
		}
	}
	return i
}

// scanChain walks the chained calls that follow a statement's first call,
// starting at i, and returns the index just past the terminating ';'.
//
// The chain may only continue through `.Name(...)` segments. When the scan
// meets `recv.Name` where Name is a terminating call, the statement is
// unterminated and is rejected instead of swallowing the next declaration.
// The calls seen so far are returned in both cases.
func scanChain(doc string, i int, recv string, terminators map[string]bool) (int, []call, error) {
	var calls []call
	for {
		i = skipSpace(doc, i)
		if i >= len(doc) {
			return -1, calls, &chainError{reason: "reached end of file before ';'"}
		}
		switch c := doc[i]; {
		case c == ';':
			return i + 1, calls, nil
		case c == '.':
			j := skipSpace(doc, i+1)
			name, k := readIdent(doc, j)
			if name == "" {
				return -1, calls, &chainError{reason: "malformed chained call"}
			}
			if terminators[name] {
				return -1, calls, &chainError{reason: fmt.Sprintf("chained call .%s starts a new declaration", name)}
			}
			k = skipSpace(doc, skipGeneric(doc, k))
			if k < len(doc) && doc[k] == '(' {
				closing, ok := matchClose(doc, k)
				if !ok {
					return -1, calls, &chainError{reason: fmt.Sprintf("unbalanced arguments in .%s", name)}
				}
				calls = append(calls, call{Name: name, Args: doc[k+1 : closing]})
				i = closing + 1
				continue
			}
			calls = append(calls, call{Name: name})
			i = k
		case isIdentByte(c):
			ident, j := readIdent(doc, i)
			j = skipSpace(doc, j)
			if ident == recv && j < len(doc) && doc[j] == '.' {
				next, _ := readIdent(doc, skipSpace(doc, j+1))
				if terminators[next] {
					return -1, calls, &chainError{reason: fmt.Sprintf("reached %s.%s before ';'", recv, next)}
				}
			}
			return -1, calls, &chainError{reason: fmt.Sprintf("unexpected %q before ';'", ident)}
		default:
			return -1, calls, &chainError{reason: fmt.Sprintf("unexpected %q before ';'", string(c))}
		}
	}
}
