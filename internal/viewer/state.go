// Package viewer drives the catalog browser: it owns the selection, loads
// documents for it and produces a platform-neutral description of the page.
package viewer

import (
	"fmt"

	"github.com/starford/skillview/internal/apperr"
	"github.com/starford/skillview/internal/catalog"
)

// State is the controller's lifecycle state.
type State int

const (
	Idle State = iota
	EntrySelected
	DocumentLoading
	DocumentDisplayed
	LoadFailed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case EntrySelected:
		return "entry_selected"
	case DocumentLoading:
		return "document_loading"
	case DocumentDisplayed:
		return "document_displayed"
	case LoadFailed:
		return "load_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Selection tracks the active entry and the active document within it.
// The active document always belongs to the active entry's document set.
type Selection struct {
	entry    catalog.Entry
	document string
	set      bool
}

// Entry returns the active entry; ok is false before the first selection.
func (s *Selection) Entry() (catalog.Entry, bool) {
	return s.entry, s.set
}

// Document returns the active document id.
func (s *Selection) Document() string {
	return s.document
}

// SetEntry activates e and resets the document to its main document.
func (s *Selection) SetEntry(e catalog.Entry) {
	s.entry = e
	s.document = catalog.MainDocument
	s.set = true
}

// SetDocument activates a document of the active entry.
func (s *Selection) SetDocument(id string) error {
	if !s.set {
		return fmt.Errorf("viewer: no active entry: %w", apperr.ErrInvalid)
	}
	if !s.entry.HasDocument(id) {
		return fmt.Errorf("viewer: document %q of %q: %w", id, s.entry.FolderID, apperr.ErrNotFound)
	}
	s.document = id
	return nil
}

// Is reports whether folderID/documentID is the active pair.
func (s *Selection) Is(folderID, documentID string) bool {
	return s.set && s.entry.FolderID == folderID && s.document == documentID
}
