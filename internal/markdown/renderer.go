// Package markdown turns transformed document bodies into display markup.
package markdown

import (
	"bytes"
	"fmt"
	"html"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Renderer converts a Markdown body into HTML.
type Renderer interface {
	Render(body string) (template.HTML, error)
}

// Goldmark renders GitHub-flavoured Markdown. Raw HTML in documents is
// omitted from the output.
type Goldmark struct {
	md goldmark.Markdown
}

var _ Renderer = (*Goldmark)(nil)

// NewGoldmark creates a GFM renderer with generated heading ids.
func NewGoldmark() *Goldmark {
	return &Goldmark{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// Render converts body to HTML.
func (g *Goldmark) Render(body string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := g.md.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("markdown: convert: %w", err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // goldmark escapes raw HTML by default
}

// PlainText shows the body verbatim, escaped, inside a pre block.
type PlainText struct{}

var _ Renderer = PlainText{}

// Render escapes body.
func (PlainText) Render(body string) (template.HTML, error) {
	return template.HTML("<pre class=\"plain\">" + html.EscapeString(body) + "</pre>"), nil //nolint:gosec // escaped above
}

// RenderOrPlain uses r when available and falls back to PlainText when r is
// nil or fails.
func RenderOrPlain(r Renderer, body string) template.HTML {
	if r != nil {
		if out, err := r.Render(body); err == nil {
			return out
		}
	}
	out, _ := PlainText{}.Render(body)
	return out
}
