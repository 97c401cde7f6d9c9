// Package catalog holds the fixed list of skill entries the viewer can show.
package catalog

import (
	"fmt"
	"os"
	"path"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/skillview/internal/apperr"
)

// MainDocument is the document every entry folder provides.
const MainDocument = "SKILL.md"

var folderRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ReferenceLink points at a secondary document inside an entry's folder.
type ReferenceLink struct {
	Title        string `json:"title" yaml:"title"`
	RelativePath string `json:"relative_path" yaml:"file"`
}

// Validate validates the reference link.
func (r ReferenceLink) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.RelativePath, validation.Required, validation.By(relativePath)),
	)
}

// Entry is one selectable documentation unit.
type Entry struct {
	Name        string          `json:"name" yaml:"name"`
	FolderID    string          `json:"folder" yaml:"folder"`
	Description string          `json:"description" yaml:"description"`
	References  []ReferenceLink `json:"references" yaml:"references"`
}

// Validate validates the entry and its references.
func (e Entry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required),
		validation.Field(&e.FolderID, validation.Required, validation.Match(folderRe)),
		validation.Field(&e.References),
	)
}

// Documents returns the entry's document set: the main document followed by
// every reference path, in catalog order.
func (e Entry) Documents() []string {
	out := make([]string, 0, len(e.References)+1)
	out = append(out, MainDocument)
	for _, r := range e.References {
		out = append(out, r.RelativePath)
	}
	return out
}

// HasDocument reports whether id belongs to the entry's document set.
func (e Entry) HasDocument(id string) bool {
	for _, d := range e.Documents() {
		if d == id {
			return true
		}
	}
	return false
}

// DocumentPath joins the folder and a document id into a repository path.
func (e Entry) DocumentPath(id string) string {
	return e.FolderID + "/" + id
}

// Catalog is an ordered, read-only list of entries.
type Catalog struct {
	entries []Entry
}

// New validates entries and builds a catalog. Folder ids must be unique.
func New(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog: no entries")
	}
	seen := make(map[string]struct{}, len(entries))
	cp := make([]Entry, len(entries))
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: entry %d (%s): %w", i, e.FolderID, err)
		}
		if _, dup := seen[e.FolderID]; dup {
			return nil, fmt.Errorf("catalog: duplicate folder %q", e.FolderID)
		}
		seen[e.FolderID] = struct{}{}
		e.References = append([]ReferenceLink(nil), e.References...)
		cp[i] = e
	}
	return &Catalog{entries: cp}, nil
}

// Entries returns a copy of the entries in catalog order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// First returns the default selection.
func (c *Catalog) First() Entry { return c.entries[0] }

// Lookup finds an entry by folder id.
func (c *Catalog) Lookup(folderID string) (Entry, error) {
	for _, e := range c.entries {
		if e.FolderID == folderID {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("catalog: entry %q: %w", folderID, apperr.ErrNotFound)
}

type fileFormat struct {
	Skills []Entry `yaml:"skills"`
}

// LoadFile reads a YAML catalog of the form:
//
//	skills:
//	  - name: App Store Changelog
//	    folder: app-store-changelog
//	    description: ...
//	    references:
//	      - title: Release notes guidelines
//	        file: references/release-notes-guidelines.md
func LoadFile(filename string) (*Catalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", filename, err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", filename, err)
	}
	return New(f.Skills)
}

// MarshalYAML renders the catalog in the LoadFile format.
func (c *Catalog) MarshalYAML() (any, error) {
	return fileFormat{Skills: c.Entries()}, nil
}

func relativePath(value any) error {
	p, _ := value.(string)
	if path.IsAbs(p) || path.Clean(p) != p || p == ".." || len(p) >= 3 && p[:3] == "../" {
		return fmt.Errorf("must be a clean relative path")
	}
	return nil
}
