// Package testutil provides shared test helpers for content trees and fetchers.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/skillview/internal/apperr"
	"github.com/starford/skillview/internal/storage"
)

// ContentTree writes files (slash-separated path → content) into a temporary
// directory and returns a storage provider rooted there.
func ContentTree(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return root, store
}

// StubFetcher serves documents from memory. Unknown addresses fail like a
// 404. Individual addresses can be held back to control completion order.
type StubFetcher struct {
	mu    sync.Mutex
	docs  map[string]string
	gates map[string]chan struct{}
	calls []string
}

// NewStubFetcher creates a stub serving docs (address → text).
func NewStubFetcher(docs map[string]string) *StubFetcher {
	f := &StubFetcher{
		docs:  make(map[string]string, len(docs)),
		gates: make(map[string]chan struct{}),
	}
	for k, v := range docs {
		f.docs[k] = v
	}
	return f
}

// Set adds or replaces a document.
func (f *StubFetcher) Set(address, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[address] = text
}

// Remove makes address fail from now on.
func (f *StubFetcher) Remove(address string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, address)
}

// Hold blocks fetches of address until the returned release is called.
func (f *StubFetcher) Hold(address string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[address] = ch
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, address)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns every address fetched so far, in call order.
func (f *StubFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Fetch implements fetch.Fetcher.
func (f *StubFetcher) Fetch(ctx context.Context, address string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, address)
	gate := f.gates[address]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", apperr.ErrFetchFailed, ctx.Err())
		}
	}

	f.mu.Lock()
	text, ok := f.docs[address]
	f.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: HTTP 404 for %s", apperr.ErrFetchFailed, address)
	}
	return text, nil
}
