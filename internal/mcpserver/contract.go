package mcpserver

// DocumentFormatContract describes how skill documents are laid out and how
// the viewer reads them.
const DocumentFormatContract = `# Skill Document Format

Each skill lives in its own folder. The folder holds a main document named
` + "`SKILL.md`" + ` and, optionally, reference documents listed in the catalog
(usually under ` + "`references/`" + `).

## Frontmatter

A document may open with a block fenced by ` + "`---`" + ` lines:

` + "```" + `markdown
---
name: App Store Changelog
description: "Generate App Store release notes from git history."
---
` + "```" + `

- Only flat ` + "`key: value`" + ` lines are read. Keys use letters, digits, ` + "`_`" + ` and ` + "`-`" + `.
- Values are trimmed; one layer of surrounding double quotes is removed.
- Lines that do not match (nested YAML, lists, comments) are ignored.
- A block with no closing fence is treated as body text.
- ` + "`name`" + ` replaces the title shown for the skill; ` + "`description`" + ` replaces its description.

## Body

- A first line heading that repeats the title (case-insensitive) is dropped.
- The first paragraph of a ` + "`## Overview`" + ` section becomes the usage line.
  Without one, the catalog description is used.
- The rest is GitHub-flavored Markdown.
`
