package viewer

import (
	"html/template"

	"github.com/starford/skillview/internal/catalog"
	"github.com/starford/skillview/internal/content"
)

// PreviewLength is the maximum rune length of an entry preview in the list.
const PreviewLength = 110

// UsagePrefix starts a non-empty usage line.
const UsagePrefix = "Usage: "

// NoReferencesLabel is shown when an entry has no reference documents.
const NoReferencesLabel = "No references"

// EntryItem is one row of the entry list.
type EntryItem struct {
	Name    string `json:"name"`
	Folder  string `json:"folder"`
	Badge   string `json:"badge"`
	Preview string `json:"preview"`
	Active  bool   `json:"active"`
}

// Pill is one button of the reference bar.
type Pill struct {
	Label    string `json:"label"`
	Document string `json:"document"`
	Active   bool   `json:"active"`
}

// View is a platform-neutral description of the page.
type View struct {
	State        State         `json:"state"`
	Loading      bool          `json:"loading"`
	RepoURL      string        `json:"repo_url"`
	Entries      []EntryItem   `json:"entries"`
	Folder       string        `json:"folder"`
	Pills        []Pill        `json:"pills"`
	NoReferences string        `json:"no_references,omitempty"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Usage        string        `json:"usage"`
	Body         template.HTML `json:"body"`
	Message      string        `json:"message,omitempty"`
	Checksum     string        `json:"checksum,omitempty"`
	Seq          uint64        `json:"seq"`
}

// Render turns a snapshot into a View. It has no side effects.
func Render(s Snapshot) View {
	v := View{
		State:       s.State,
		Loading:     s.State == DocumentLoading,
		RepoURL:     s.RepoURL,
		Entries:     make([]EntryItem, 0, len(s.Catalog)),
		Title:       s.Title,
		Description: s.Description,
		Body:        s.Body,
		Message:     s.Message,
		Checksum:    s.Checksum,
		Seq:         s.Seq,
	}
	if s.Usage != "" {
		v.Usage = UsagePrefix + s.Usage
	}

	for _, e := range s.Catalog {
		v.Entries = append(v.Entries, EntryItem{
			Name:    e.Name,
			Folder:  e.FolderID,
			Badge:   content.ReferenceBadge(len(e.References)),
			Preview: content.Truncate(e.Description, PreviewLength),
			Active:  s.HasEntry && e.FolderID == s.Entry.FolderID,
		})
	}

	if !s.HasEntry {
		return v
	}

	v.Folder = s.Entry.FolderID
	v.Pills = append(v.Pills, Pill{
		Label:    catalog.MainDocument,
		Document: catalog.MainDocument,
		Active:   s.Document == catalog.MainDocument,
	})
	if len(s.Entry.References) == 0 {
		v.NoReferences = NoReferencesLabel
	}
	for _, r := range s.Entry.References {
		v.Pills = append(v.Pills, Pill{
			Label:    r.Title,
			Document: r.RelativePath,
			Active:   s.Document == r.RelativePath,
		})
	}
	return v
}
