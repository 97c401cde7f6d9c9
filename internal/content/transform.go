// Package content cleans parsed document bodies for display.
package content

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	overviewRe = regexp.MustCompile(`(?is)##\s+Overview\s+(.*?)(?:\n##\s|$)`)
	headingRe  = regexp.MustCompile(`^#+\s*`)
)

// StripLeadingHeading drops the first line of body when it is a heading that
// repeats expectedTitle (case-insensitive), or when expectedTitle is empty.
// Leading whitespace of the remainder is removed along with it.
func StripLeadingHeading(body, expectedTitle string) string {
	first, rest, _ := strings.Cut(body, "\n")
	first = strings.TrimSpace(first)
	if !strings.HasPrefix(first, "#") {
		return body
	}

	heading := strings.ToLower(strings.TrimSpace(headingRe.ReplaceAllString(first, "")))
	title := strings.ToLower(strings.TrimSpace(expectedTitle))
	if title != "" && heading != title {
		return body
	}
	return strings.TrimLeftFunc(rest, unicode.IsSpace)
}

// ExtractOverview returns the first paragraph of the "## Overview" section
// with whitespace collapsed, or "" when the section is missing.
func ExtractOverview(body string) string {
	m := overviewRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	section := strings.TrimSpace(m[1])
	paragraph, _, _ := strings.Cut(section, "\n\n")
	// Fields splits on Unicode space, so NBSP and em spaces collapse too.
	return strings.Join(strings.Fields(paragraph), " ")
}

// Truncate shortens text to at most maxRunes runes, ending with an ellipsis
// when anything was cut.
func Truncate(text string, maxRunes int) string {
	r := []rune(text)
	if len(r) <= maxRunes {
		return text
	}
	if maxRunes <= 1 {
		return "…"
	}
	return strings.TrimSpace(string(r[:maxRunes-1])) + "…"
}

// ReferenceBadge labels a reference count ("1 ref", "3 refs").
func ReferenceBadge(n int) string {
	if n == 1 {
		return "1 ref"
	}
	return strconv.Itoa(n) + " refs"
}
