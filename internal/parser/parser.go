// Package parser splits a Markdown document into its frontmatter block and body.
//
// The supported frontmatter grammar is deliberately flat: one "key: value"
// pair per line, values optionally wrapped in double quotes. Anything the
// grammar does not recognize is ignored rather than reported.
package parser

import (
	"regexp"
	"strings"
)

// Delimiter opens and closes a frontmatter block.
const Delimiter = "---"

var keyValueRe = regexp.MustCompile(`^([a-zA-Z0-9_-]+):\s*(.*)$`)

// Document is the result of splitting a fetched document.
type Document struct {
	Frontmatter map[string]string
	Body        string
}

// Get returns the frontmatter value for key, or "" when absent.
func (d Document) Get(key string) string {
	return d.Frontmatter[key]
}

// Parse splits raw into frontmatter and body. Text without a leading
// delimiter, or without a closing delimiter line, is returned untouched as
// body with empty frontmatter.
func Parse(raw string) Document {
	block, body, ok := splitBlock(raw)
	if !ok {
		return Document{Frontmatter: map[string]string{}, Body: raw}
	}
	return Document{Frontmatter: parseBlock(block), Body: body}
}

// splitBlock locates the frontmatter lines and the body that follows the
// closing delimiter.
func splitBlock(raw string) ([]string, string, bool) {
	if !strings.HasPrefix(raw, Delimiter) {
		return nil, "", false
	}

	lines := strings.Split(raw, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == Delimiter {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, "", false
	}

	return lines[1:end], strings.Join(lines[end+1:], "\n"), true
}

// parseBlock matches each line against the key/value grammar. Later keys
// overwrite earlier ones.
func parseBlock(lines []string) map[string]string {
	out := make(map[string]string, len(lines))
	for _, line := range lines {
		m := keyValueRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out[m[1]] = unquote(strings.TrimSpace(m[2]))
	}
	return out
}

func unquote(v string) string {
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		return v[1 : len(v)-1]
	}
	return v
}
