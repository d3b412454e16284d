// Package cleaner removes the artifacts of an accidental duplicate relation
// from generated EF Core migration and model snapshot files.
//
// A duplicate relation shows up as a shadow foreign-key column carrying a
// fixed suffix (CustomerId1 next to CustomerId), together with the constraint,
// index, snapshot property, snapshot index and relationship generated for it.
// The cleaner deletes those statements, rewrites cascading deletes to a
// non-cascading action, and leaves every other byte of the file alone.
package cleaner

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Skip is a duplicate artifact that was found but left in place because its
// statement could not be bounded without consuming the next declaration.
type Skip struct {
	Category Category `json:"category"`
	Line     int      `json:"line"`
	Text     string   `json:"text"`
	Reason   string   `json:"reason"`
}

// Result describes what one run did to one document.
type Result struct {
	Path      string           `json:"path,omitempty"`
	Removed   map[Category]int `json:"removed"`
	Rewritten int              `json:"cascade_rewritten"`
	Skipped   []Skip           `json:"skipped,omitempty"`
	Changed   bool             `json:"changed"`
}

// TotalRemoved sums the removals over all categories.
func (r *Result) TotalRemoved() int {
	total := 0
	for _, n := range r.Removed {
		total += n
	}
	return total
}

type rewriter struct {
	re *regexp.Regexp
	to string
}

// Cleaner applies a fixed rule set. It holds no per-document state and is
// safe for concurrent use.
type Cleaner struct {
	rules       Rules
	matchers    []Matcher
	rewriters   []rewriter
	terminators map[string]bool
	logger      *zap.Logger
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cleaner) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New validates rules and compiles them into a Cleaner.
func New(rules Rules, opts ...Option) (*Cleaner, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}

	c := &Cleaner{
		rules:       rules,
		matchers:    buildMatchers(rules),
		terminators: make(map[string]bool, len(rules.Terminators)),
		logger:      zap.NewNop(),
	}
	for _, t := range rules.Terminators {
		c.terminators[t] = true
	}
	for _, rw := range rules.Rewrites {
		c.rewriters = append(c.rewriters, rewriter{re: tokenRegexp(rw.From), to: rw.To})
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// tokenRegexp matches tok as a whole token, so DeleteBehavior.Cascade does not
// match inside DeleteBehavior.ClientCascade.
func tokenRegexp(tok string) *regexp.Regexp {
	expr := regexp.QuoteMeta(tok)
	if isIdentByte(tok[0]) {
		expr = `\b` + expr
	}
	if isIdentByte(tok[len(tok)-1]) {
		expr += `\b`
	}
	return regexp.MustCompile(expr)
}

// Rules returns the rules the cleaner was built with.
func (c *Cleaner) Rules() Rules {
	return c.rules
}

// Clean runs every matcher in order over doc, then the cascade rewrites.
func (c *Cleaner) Clean(doc string) (string, *Result) {
	res := &Result{Removed: make(map[Category]int, len(Categories))}
	for _, cat := range Categories {
		res.Removed[cat] = 0
	}

	out := doc
	for _, m := range c.matchers {
		spans, skips := m.find(out, c.terminators)
		for _, s := range skips {
			c.logger.Warn("left ambiguous statement in place",
				zap.String("category", string(s.Category)),
				zap.Int("line", s.Line),
				zap.String("reason", s.Reason))
		}
		res.Skipped = append(res.Skipped, skips...)
		if len(spans) == 0 {
			continue
		}
		out = cut(out, spans)
		res.Removed[m.Category] += len(spans)
		c.logger.Debug("removed duplicate artifacts",
			zap.String("category", string(m.Category)),
			zap.Int("count", len(spans)))
	}

	for _, rw := range c.rewriters {
		n := len(rw.re.FindAllStringIndex(out, -1))
		if n == 0 {
			continue
		}
		out = rw.re.ReplaceAllLiteralString(out, rw.to)
		res.Rewritten += n
		c.logger.Debug("rewrote cascading deletes", zap.String("to", rw.to), zap.Int("count", n))
	}

	res.Changed = out != doc
	return out, res
}

// cut deletes the ascending, non-overlapping spans from doc.
func cut(doc string, spans []span) string {
	var b strings.Builder
	b.Grow(len(doc))
	prev := 0
	for _, s := range spans {
		b.WriteString(doc[prev:s.start])
		prev = s.end
	}
	b.WriteString(doc[prev:])
	return b.String()
}

// FixFile cleans the file at path. The file is rewritten, keeping its
// permissions, only when something changed and dryRun is false.
func (c *Cleaner) FixFile(path string, dryRun bool) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotRegularFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidEncoding)
	}

	out, res := c.Clean(string(data))
	res.Path = path
	if !res.Changed {
		c.logger.Debug("no changes needed", zap.String("path", path))
		return res, nil
	}
	if dryRun {
		c.logger.Debug("dry run, not writing", zap.String("path", path))
		return res, nil
	}

	if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	c.logger.Info("fixed migration",
		zap.String("path", path),
		zap.Int("removed", res.TotalRemoved()),
		zap.Int("cascade_rewritten", res.Rewritten))
	return res, nil
}
