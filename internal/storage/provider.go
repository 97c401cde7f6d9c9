// Package storage defines read access to a local content tree.
package storage

import "io/fs"

// Provider reads documents from a content root.
type Provider interface {
	// Read returns the raw bytes of the file at path (slash-separated,
	// relative to the content root).
	Read(path string) ([]byte, error)
	// Root returns the absolute content root.
	Root() string
	// FS exposes the tree for walking and globbing.
	FS() fs.FS
}
