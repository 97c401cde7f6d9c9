package catalog

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/starford/skillview/internal/parser"
)

// Discover builds a catalog from a content tree. Every top-level folder
// holding a SKILL.md becomes an entry; Markdown files under its references/
// directory become reference links. Name and description come from the
// main document's frontmatter, falling back to the folder id.
func Discover(fsys fs.FS) (*Catalog, error) {
	mains, err := doublestar.Glob(fsys, "*/"+MainDocument)
	if err != nil {
		return nil, fmt.Errorf("catalog: discover: %w", err)
	}
	sort.Strings(mains)

	entries := make([]Entry, 0, len(mains))
	for _, main := range mains {
		folder := path.Dir(main)
		if !folderRe.MatchString(folder) {
			continue
		}
		raw, err := fs.ReadFile(fsys, main)
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", main, err)
		}
		doc := parser.Parse(string(raw))

		e := Entry{
			Name:        doc.Get("name"),
			FolderID:    folder,
			Description: doc.Get("description"),
		}
		if e.Name == "" {
			e.Name = folder
		}

		refs, err := doublestar.Glob(fsys, folder+"/references/**/*.md")
		if err != nil {
			return nil, fmt.Errorf("catalog: discover %s: %w", folder, err)
		}
		sort.Strings(refs)
		for _, ref := range refs {
			rel := strings.TrimPrefix(ref, folder+"/")
			e.References = append(e.References, ReferenceLink{
				Title:        titleFromFile(rel),
				RelativePath: rel,
			})
		}
		entries = append(entries, e)
	}
	return New(entries)
}

// titleFromFile turns "references/mv-patterns.md" into "Mv patterns".
func titleFromFile(rel string) string {
	stem := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	words := strings.FieldsFunc(stem, func(r rune) bool { return r == '-' || r == '_' })
	if len(words) == 0 {
		return stem
	}
	words[0] = cases.Title(language.English).String(strings.ToLower(words[0]))
	return strings.Join(words, " ")
}
