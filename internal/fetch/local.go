package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/skillview/internal/apperr"
	"github.com/starford/skillview/internal/locator"
	"github.com/starford/skillview/internal/storage"
)

var _ Fetcher = (*Local)(nil)

// Local serves parent-relative addresses ("../<folder>/<file>") from a
// content root. The viewer is assumed to live one level below the root, so
// the parent prefix is dropped before reading.
type Local struct {
	store storage.Provider
}

// NewLocal creates a Local fetcher reading from store.
func NewLocal(store storage.Provider) *Local {
	return &Local{store: store}
}

// Fetch reads the document behind address.
func (l *Local) Fetch(ctx context.Context, address string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrFetchFailed, err)
	}
	rel := strings.TrimPrefix(address, locator.ParentPrefix)
	data, err := l.store.Read(rel)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrFetchFailed, err)
	}
	return string(data), nil
}
