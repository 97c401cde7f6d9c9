// Package fetch retrieves raw document text for a resolved address.
package fetch

import (
	"context"
	"strings"
)

// Fetcher retrieves the UTF-8 text behind an address.
// Any failure, including a non-2xx response, is returned as an error
// wrapping apperr.ErrFetchFailed.
type Fetcher interface {
	Fetch(ctx context.Context, address string) (string, error)
}

// Func adapts a plain function to Fetcher.
type Func func(ctx context.Context, address string) (string, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, address string) (string, error) {
	return f(ctx, address)
}

// Router sends absolute http(s) addresses to Remote and everything else to Local.
type Router struct {
	Remote Fetcher
	Local  Fetcher
}

var _ Fetcher = (*Router)(nil)

// Fetch dispatches address to the matching fetcher.
func (r *Router) Fetch(ctx context.Context, address string) (string, error) {
	if IsRemote(address) {
		return r.Remote.Fetch(ctx, address)
	}
	return r.Local.Fetch(ctx, address)
}

// IsRemote reports whether address is an absolute http or https URL.
func IsRemote(address string) bool {
	return strings.HasPrefix(address, "https://") || strings.HasPrefix(address, "http://")
}
