package web

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/skillview/internal/catalog"
	"github.com/starford/skillview/internal/viewer"
)

// NewRouter creates a chi router with the page, form and API routes.
// sseHandler, if non-nil, is mounted at GET /api/events.
func NewRouter(ctrl *viewer.Controller, cat *catalog.Catalog, sseHandler http.Handler) chi.Router {
	h := NewHandler(ctrl, cat)

	r := chi.NewRouter()

	static, _ := fs.Sub(assets, "templates")
	r.Get("/static/style.css", http.StripPrefix("/static/", http.FileServer(http.FS(static))).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(NoStore)

		// Page and form posts.
		r.Get("/", h.Page)
		r.Post("/entries/{folder}", h.SelectEntry)
		r.Post("/entries/{folder}/documents/*", h.SelectDocument)
		r.Post("/reload", h.Reload)

		// JSON API.
		r.Get("/api/catalog", h.Catalog)
		r.Get("/api/view", h.View)
		r.Post("/api/selection", h.Select)
		r.Post("/api/reload", func(w http.ResponseWriter, _ *http.Request) {
			ctrl.Reload()
			writeJSON(w, http.StatusAccepted, ctrl.View())
		})

		if sseHandler != nil {
			r.Get("/api/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
