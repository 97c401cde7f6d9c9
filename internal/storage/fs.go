package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

var _ Provider = (*FS)(nil)

// FS implements Provider on an os.Root, so reads cannot leave the content
// root through "..", absolute names or symlinks.
type FS struct {
	dir  string
	root *os.Root
}

// NewFS opens the content root. The directory must already exist.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: open root: %w", err)
	}
	return &FS{dir: abs, root: root}, nil
}

// Root returns the absolute content root.
func (f *FS) Root() string { return f.dir }

// FS returns a read-only view of the content root.
func (f *FS) FS() fs.FS { return f.root.FS() }

// Close releases the root directory handle.
func (f *FS) Close() error { return f.root.Close() }

// Read returns the raw bytes of a file under the root. Missing files wrap
// os.ErrNotExist.
func (f *FS) Read(name string) ([]byte, error) {
	if name == "" || path.IsAbs(name) || filepath.IsAbs(name) {
		return nil, fmt.Errorf("storage: invalid path %q", name)
	}

	file, err := f.root.Open(filepath.FromSlash(name))
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("storage: stat %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("storage: read %s: is a directory", name)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}
