// Package apperr holds the sentinel errors shared across skillview packages.
package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrFetchFailed = errors.New("fetch failed")
	ErrInvalid     = errors.New("invalid argument")
)
