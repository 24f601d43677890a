// Package scope decides whether a guideline scope pattern applies to a file
// path and how narrowly it targets files.
//
// Patterns use doublestar glob syntax: `*` matches any run of characters
// except `/`, `**` matches zero or more whole path segments, `?` matches one
// non-separator character, `[...]` is a character class and `{a,b}` an
// alternation. Matching is case-sensitive.
package scope

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Scores only order matches against each other. On this scale `**/*.ts`
// scores 1, `**/*.component.html` 2 and `src/app/*.ts` 21; wildcard segments
// and `**` add nothing.
const (
	// SegmentWeight is awarded per literal path segment.
	SegmentWeight = 10
	// ExtensionBonus is awarded per dot in the literal suffix of a wildcard
	// final segment, so `*.component.html` outranks `*.html`.
	ExtensionBonus = 1
)

// Pattern is a validated scope pattern with its precomputed specificity.
type Pattern struct {
	Raw         string
	Specificity int
}

// Compile validates raw and computes its specificity.
func Compile(raw string) (Pattern, error) {
	if err := Validate(raw); err != nil {
		return Pattern{}, err
	}
	return Pattern{Raw: raw, Specificity: Specificity(raw)}, nil
}

// Match reports whether p selects filePath.
func (p Pattern) Match(filePath string) (bool, error) {
	return Match(p.Raw, filePath)
}

// Validate returns an error wrapping doublestar.ErrBadPattern when pattern
// has unbalanced brackets or braces or a trailing escape.
func Validate(pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("%w: %q", doublestar.ErrBadPattern, pattern)
	}
	return nil
}

// Match reports whether pattern selects filePath. An empty pattern matches
// nothing.
func Match(pattern, filePath string) (bool, error) {
	if pattern == "" {
		return false, nil
	}
	return doublestar.Match(pattern, Normalize(filePath))
}

// Normalize converts filePath to the slash-separated form patterns are
// evaluated against.
func Normalize(filePath string) string {
	if filePath == "" {
		return ""
	}
	p := path.Clean(strings.ReplaceAll(filePath, `\`, "/"))
	if p == "." {
		return ""
	}
	return p
}

// Specificity scores how narrowly pattern targets files. It is only used to
// order matches, never to reject one.
func Specificity(pattern string) int {
	if pattern == "" {
		return 0
	}
	segments := strings.Split(pattern, "/")
	score := 0
	for i, seg := range segments {
		if seg == "" || seg == "**" {
			continue
		}
		wild, suffix := scanSegment(seg)
		if !wild {
			score += SegmentWeight
			continue
		}
		if i == len(segments)-1 {
			score += ExtensionBonus * strings.Count(suffix, ".")
		}
	}
	return score
}

// Best returns the highest-specificity pattern in patterns that matches
// filePath. Ties go to the pattern declared first.
func Best(patterns []Pattern, filePath string) (Pattern, bool, error) {
	var (
		best  Pattern
		found bool
	)
	for _, p := range patterns {
		ok, err := p.Match(filePath)
		if err != nil {
			return Pattern{}, false, err
		}
		if ok && (!found || p.Specificity > best.Specificity) {
			best, found = p, true
		}
	}
	return best, found, nil
}

// scanSegment reports whether seg contains unescaped glob syntax and returns
// the literal text following the last wildcard construct.
func scanSegment(seg string) (bool, string) {
	wild := false
	suffixStart := 0
	for i := 0; i < len(seg); i++ {
		switch seg[i] {
		case '\\':
			i++
		case '*', '?':
			wild = true
			suffixStart = i + 1
		case '[':
			wild = true
			i = skipClass(seg, i)
			suffixStart = i + 1
		case '{':
			wild = true
			i = skipAlternation(seg, i)
			suffixStart = i + 1
		}
	}
	if suffixStart > len(seg) {
		return wild, ""
	}
	return wild, strings.ReplaceAll(seg[suffixStart:], `\`, "")
}

func skipClass(seg string, open int) int {
	for i := open + 1; i < len(seg); i++ {
		switch seg[i] {
		case '\\':
			i++
		case ']':
			return i
		}
	}
	return len(seg)
}

func skipAlternation(seg string, open int) int {
	depth := 0
	for i := open; i < len(seg); i++ {
		switch seg[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(seg)
}
