// Package markdown parses guideline files: an optional YAML front matter
// block declaring id, scope patterns and precedence, followed by markdown
// whose headings split the body into sections.
package markdown

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
	"guide/internal/domain"
)

var ErrUnterminatedFrontMatter = errors.New("front matter is not terminated")

const delimiter = "---"

// FrontMatter is the metadata block at the top of a guideline file.
type FrontMatter struct {
	ID          string      `yaml:"id"`
	Description string      `yaml:"description"`
	ApplyTo     PatternList `yaml:"applyTo"`
	Globs       PatternList `yaml:"globs"`
	Precedence  *int        `yaml:"precedence"`
}

// PatternList accepts a YAML list or a comma-separated string.
type PatternList []string

func (p *PatternList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*p = splitPatterns(node.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		var out PatternList
		for _, item := range items {
			out = append(out, splitPatterns(item)...)
		}
		*p = out
		return nil
	default:
		return fmt.Errorf("line %d: patterns must be a string or a list", node.Line)
	}
}

func splitPatterns(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Parse turns the content of the file at relPath into a document. The id
// defaults to relPath without its extension.
func Parse(relPath, content string) (domain.GuidelineDocument, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	fm, body, err := splitFrontMatter(content)
	if err != nil {
		return domain.GuidelineDocument{}, fmt.Errorf("%s: %w", relPath, err)
	}

	id := strings.TrimSpace(fm.ID)
	if id == "" {
		id = strings.TrimSuffix(relPath, path.Ext(relPath))
	}

	patterns := append([]string{}, fm.ApplyTo...)
	patterns = append(patterns, fm.Globs...)

	return domain.GuidelineDocument{
		ID:            id,
		ScopePatterns: dedupe(patterns),
		Sections:      SplitSections(body),
		Precedence:    fm.Precedence,
		Source:        relPath,
	}, nil
}

func splitFrontMatter(content string) (FrontMatter, string, error) {
	var fm FrontMatter
	if !strings.HasPrefix(content, delimiter+"\n") {
		return fm, content, nil
	}

	rest := content[len(delimiter)+1:]
	var header string
	switch {
	case strings.HasPrefix(rest, delimiter+"\n") || rest == delimiter:
		header, rest = "", strings.TrimPrefix(strings.TrimPrefix(rest, delimiter), "\n")
	default:
		end := strings.Index(rest, "\n"+delimiter+"\n")
		if end < 0 {
			if !strings.HasSuffix(rest, "\n"+delimiter) {
				return fm, "", ErrUnterminatedFrontMatter
			}
			end = len(rest) - len(delimiter) - 1
			header, rest = rest[:end], ""
		} else {
			header, rest = rest[:end], rest[end+len(delimiter)+2:]
		}
	}

	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return fm, "", fmt.Errorf("invalid front matter: %w", err)
	}
	return fm, rest, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// SplitSections splits markdown into sections at ATX headings outside fenced
// code blocks. Text before the first heading becomes an untitled section and
// sections with a blank body are dropped.
func SplitSections(body string) []domain.Section {
	var (
		sections []domain.Section
		title    string
		buf      strings.Builder
		fence    string
	)

	flush := func() {
		text := strings.TrimSpace(buf.String())
		if text != "" {
			sections = append(sections, domain.Section{Title: title, Body: text})
		}
		buf.Reset()
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)

		if marker := fenceMarker(trimmed); marker != "" {
			switch {
			case fence == "":
				fence = marker
			case strings.HasPrefix(trimmed, fence) && strings.TrimLeft(trimmed, fence[:1]) == "":
				fence = ""
			}
		} else if fence == "" {
			if heading, ok := parseHeading(line); ok {
				flush()
				title = heading
				continue
			}
		}

		buf.WriteString(line)
		buf.WriteString("\n")
	}
	flush()

	return sections
}

func fenceMarker(trimmed string) string {
	for _, ch := range []string{"`", "~"} {
		n := len(trimmed) - len(strings.TrimLeft(trimmed, ch))
		if n >= 3 {
			return strings.Repeat(ch, n)
		}
	}
	return ""
}

// parseHeading recognizes `# Title` through `###### Title`, allowing up to
// three leading spaces and an optional closing run of #.
func parseHeading(line string) (string, bool) {
	indent := len(line) - len(strings.TrimLeft(line, " "))
	if indent > 3 {
		return "", false
	}
	s := line[indent:]
	level := len(s) - len(strings.TrimLeft(s, "#"))
	if level == 0 || level > 6 {
		return "", false
	}
	rest := s[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	title := strings.TrimSpace(rest)
	if closing := strings.TrimRight(title, "#"); closing != title {
		if closing == "" || strings.HasSuffix(closing, " ") {
			title = strings.TrimSpace(closing)
		}
	}
	return title, true
}
