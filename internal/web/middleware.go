// Package web serves the catalog browser page and its JSON API using chi.
package web

import "net/http"

// NoStore marks responses as uncacheable. The view changes with every
// selection, so intermediaries must not keep copies.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
