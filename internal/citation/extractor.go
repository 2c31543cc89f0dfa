// Package citation finds candidate case citations in free text.
//
// Extraction is a surface-pattern heuristic, not a citation grammar parser.
// It matches "Party v. Party" shapes, optionally followed by a reporter
// reference such as ", 457 U.S. 800". Statutes, regulations and party names
// that are not single capitalized words are not recognized.
package citation

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultPattern matches "<Capitalized> v[.] <Capitalized>" with an optional
// ", <volume> <reporter> <page>" suffix. Reporters may contain capitals,
// periods, digits and spaces between abbreviations ("U.S.", "S. Ct.",
// "F.3d", "L. Ed. 2d").
const DefaultPattern = `\b[A-Z][a-z]+\s+v\.?\s+[A-Z][a-z]+` +
	`(?:,\s+\d+\s+[A-Z][A-Za-z0-9.]*(?:\s[A-Z][A-Za-z0-9.]*)*(?:\s\d[a-z]{1,2})?\s+\d+)?`

var (
	defaultExtractor = &RegexExtractor{re: regexp.MustCompile(DefaultPattern)}
	whitespace       = regexp.MustCompile(`\s+`)
)

// Extractor turns a block of text into a set of citation strings.
// Implementations must be deterministic and must not fail on any input.
// Runs of whitespace inside a citation are collapsed to a single space so
// that a line-wrapped citation equals its unwrapped form; no other rewriting
// is applied unless an implementation documents it.
type Extractor interface {
	Extract(text string) *Set
}

// ExtractorFunc allows plain functions to implement Extractor.
type ExtractorFunc func(text string) *Set

// Extract calls f(text).
func (f ExtractorFunc) Extract(text string) *Set {
	return f(text)
}

// RegexExtractor collects every non-overlapping match of a regular expression.
type RegexExtractor struct {
	re *regexp.Regexp
}

// Default returns the extractor for DefaultPattern.
func Default() *RegexExtractor {
	return defaultExtractor
}

// NewRegexExtractor compiles pattern into an extractor.
func NewRegexExtractor(pattern string) (*RegexExtractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling citation pattern: %w", err)
	}
	return &RegexExtractor{re: re}, nil
}

// Extract returns the distinct matches in text. Runs of whitespace inside a
// match (line wraps) are collapsed to one space; nothing else is rewritten.
func (e *RegexExtractor) Extract(text string) *Set {
	out := NewSet()
	for _, m := range e.re.FindAllString(text, -1) {
		out.Add(whitespace.ReplaceAllString(m, " "))
	}
	return out
}

// Extract runs the default extractor over text.
func Extract(text string) *Set {
	return defaultExtractor.Extract(text)
}

// NormalizingExtractor canonicalizes the citations produced by Base so that
// "Harlow v Fitzgerald" and "Harlow v. Fitzgerald, 457 U.S. 800" compare equal.
// It is opt-in; the default treats those as different strings.
type NormalizingExtractor struct {
	Base Extractor
}

// Extract runs Base and maps every citation to its case-name form.
func (n NormalizingExtractor) Extract(text string) *Set {
	base := n.Base
	if base == nil {
		base = defaultExtractor
	}
	out := NewSet()
	for _, c := range base.Extract(text).Items() {
		out.Add(CaseName(c))
	}
	return out
}

// CaseName strips any reporter reference from c and spells the versus
// marker as "v.".
func CaseName(c string) string {
	if i := strings.Index(c, ","); i >= 0 {
		c = c[:i]
	}
	fields := strings.Fields(c)
	for i, f := range fields {
		if f == "v" {
			fields[i] = "v."
		}
	}
	return strings.Join(fields, " ")
}
