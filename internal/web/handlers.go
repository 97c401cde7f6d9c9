package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/skillview/internal/catalog"
	"github.com/starford/skillview/internal/viewer"
)

//go:embed templates
var assets embed.FS

var pageTmpl = template.Must(template.New("page.html").
	Funcs(template.FuncMap{"pathEscape": url.PathEscape}).
	ParseFS(assets, "templates/page.html"))

// Handler holds the page and API route handlers.
type Handler struct {
	ctrl *viewer.Controller
	cat  *catalog.Catalog
}

// NewHandler creates a new Handler.
func NewHandler(ctrl *viewer.Controller, cat *catalog.Catalog) *Handler {
	return &Handler{ctrl: ctrl, cat: cat}
}

// documentID extracts the document id from the URL (everything after
// /documents/). Encoded slashes are accepted. chi matches on RawPath when the
// request has one, so the parameter is only still escaped in that case.
func documentID(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Page handles GET /.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	v := h.ctrl.View()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, v); err != nil {
		slog.Error("render page failed", slog.String("error", err.Error()))
	}
}

// SelectEntry handles POST /entries/{folder}.
func (h *Handler) SelectEntry(w http.ResponseWriter, r *http.Request) {
	folder := chi.URLParam(r, "folder")
	if err := h.ctrl.SelectEntry(folder); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SelectDocument handles POST /entries/{folder}/documents/*.
func (h *Handler) SelectDocument(w http.ResponseWriter, r *http.Request) {
	folder := chi.URLParam(r, "folder")
	if err := h.ctrl.SelectDocument(folder, documentID(r)); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Reload handles POST /reload.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Reload()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Catalog handles GET /api/catalog.
func (h *Handler) Catalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"skills": h.cat.Entries(),
	})
}

// View handles GET /api/view. The ETag changes with every load.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	v := h.ctrl.View()
	etag := `"` + strconv.FormatUint(v.Seq, 10) + "-" + v.State.String() + "-" + v.Checksum + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// selectionRequest is the body of POST /api/selection.
type selectionRequest struct {
	Folder   string `json:"folder"`
	Document string `json:"document,omitempty"`
}

// Select handles POST /api/selection. An empty document selects the entry
// and its main document.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Folder == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("folder is required"))
		return
	}

	var err error
	if req.Document == "" {
		err = h.ctrl.SelectEntry(req.Folder)
	} else {
		err = h.ctrl.SelectDocument(req.Folder, req.Document)
	}
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			slog.Error("select failed", slog.String("folder", req.Folder), slog.String("error", err.Error()))
		}
		writeJSON(w, status, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusAccepted, h.ctrl.View())
}
