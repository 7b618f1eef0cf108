// internal/console/handlers.go
//
// chi routes for the scan-report console.
//
/*
Context
--------
Every state change is a POST that answers 303 See Other back to the
navigator's current location, so the browser's address bar always
mirrors History-Sync.  GET /scanreports/ is a navigation in its own right:
the `filter=archived` flag in the requested URL selects the partition.

Clients that send `Accept: application/json`, or add `?format=json`, get
the Page model and plain JSON errors instead of HTML and redirects.

Routes
------
  GET  /scanreports/                  listing (HTML or JSON)
  POST /scanreports/mode              mode=active|archived
  POST /scanreports/back              history back
  POST /scanreports/forward           history forward
  POST /scanreports/filters           column, value
  POST /scanreports/filters/remove    label
  POST /scanreports/reload            re-run the loader
  POST /scanreports/{id}/status       status
  POST /scanreports/{id}/hidden       hidden=true|false
  GET  /scanreports/{id}/audit        journaled mutations (JSON)
  GET  /healthz, GET /metrics

Notes
-----
  • Oxford commas, two spaces after periods.
*/
package console

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/scanconsole/internal/api"
	"github.com/yanizio/scanconsole/internal/middleware"
	"github.com/yanizio/scanconsole/internal/requestinfo"
	"github.com/yanizio/scanconsole/internal/scanreport"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.New("console").Funcs(template.FuncMap{
	"filterMenu": func(column, title, current string, values []string) filterMenu {
		return filterMenu{Column: column, Title: title, Current: current, Values: values}
	},
}).ParseFS(templateFS, "templates/*.html"))

type filterMenu struct {
	Column  string
	Title   string
	Current string
	Values  []string
}

/*──────────────────────────── router ───────────────────────────────────────*/

// NewRouter mounts the console on a fresh chi router with the standard
// middleware stack.
func NewRouter(s *Session) http.Handler {
	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(requestinfo.Enrich)
	mux.Use(middleware.Security)

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, BasePath, http.StatusFound)
	})

	h := &handlers{s: s}
	mux.Route("/scanreports", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/mode", h.mode)
		r.Post("/back", h.back)
		r.Post("/forward", h.forward)
		r.Post("/filters", h.setFilter)
		r.Post("/filters/remove", h.removeFilter)
		r.Post("/reload", h.reload)
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/status", h.setStatus)
			r.Post("/hidden", h.setHidden)
			r.Get("/audit", h.audit)
		})
	})
	return mux
}

type handlers struct{ s *Session }

/*──────────────────────────── listing ──────────────────────────────────────*/

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	h.s.Visit(r.URL.Path, r.URL.RawQuery)
	page := h.s.Page()

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, page)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.ExecuteTemplate(w, "scanreports", page); err != nil {
		zap.S().Errorw("render scan reports", "err", err)
	}
}

/*──────────────────────────── navigation ───────────────────────────────────*/

func (h *handlers) mode(w http.ResponseWriter, r *http.Request) {
	m, err := scanreport.ParseMode(r.FormValue("mode"))
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}
	h.s.Show(m)
	h.done(w, r)
}

func (h *handlers) back(w http.ResponseWriter, r *http.Request) {
	h.s.Back()
	h.done(w, r)
}

func (h *handlers) forward(w http.ResponseWriter, r *http.Request) {
	h.s.Forward()
	h.done(w, r)
}

func (h *handlers) reload(w http.ResponseWriter, r *http.Request) {
	h.s.Reload()
	h.done(w, r)
}

/*──────────────────────────── filters ──────────────────────────────────────*/

func (h *handlers) setFilter(w http.ResponseWriter, r *http.Request) {
	col, err := scanreport.ParseColumn(r.FormValue("column"))
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}
	v := strings.TrimSpace(r.FormValue("value"))
	if v == "" {
		v = scanreport.All
	}
	h.s.SetFilter(col, v)
	h.done(w, r)
}

func (h *handlers) removeFilter(w http.ResponseWriter, r *http.Request) {
	h.s.RemoveFilter(r.FormValue("label"))
	h.done(w, r)
}

/*──────────────────────────── mutations ────────────────────────────────────*/

func (h *handlers) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	st, err := scanreport.ParseStatus(r.FormValue("status"))
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}
	if err := h.s.SetStatus(r.Context(), id, st); err != nil {
		h.mutationFailed(w, r, err)
		return
	}
	h.done(w, r)
}

func (h *handlers) setHidden(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	hidden, err := strconv.ParseBool(r.FormValue("hidden"))
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, errors.New("hidden must be true or false"))
		return
	}
	if err := h.s.SetArchived(r.Context(), id, hidden); err != nil {
		h.mutationFailed(w, r, err)
		return
	}
	h.done(w, r)
}

func (h *handlers) audit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.s.Audit(r.Context(), id, limit)
	switch {
	case errors.Is(err, errAuditDisabled):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case err != nil:
		zap.S().Errorw("read audit journal", "report", id, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "audit journal unavailable"})
	default:
		writeJSON(w, http.StatusOK, entries)
	}
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

type errorBody struct {
	Error string `json:"error"`
}

func (h *handlers) reportID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		h.fail(w, r, http.StatusBadRequest, errors.New("invalid scan report id"))
		return 0, false
	}
	return id, true
}

// done answers a successful POST.
func (h *handlers) done(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, h.s.Page())
		return
	}
	http.Redirect(w, r, h.s.Location(), http.StatusSeeOther)
}

// mutationFailed maps a lifecycle error to a status code.  Browsers are
// redirected back; the session already holds the notice.
func (h *handlers) mutationFailed(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusBadGateway
	var se *api.StatusError
	switch {
	case errors.Is(err, scanreport.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrNotAuthor):
		code = http.StatusForbidden
	case errors.Is(err, scanreport.ErrClosed):
		code = http.StatusServiceUnavailable
	case errors.As(err, &se) && se.Code >= 400 && se.Code < 500:
		code = http.StatusUnprocessableEntity
	}
	if wantsJSON(r) {
		writeJSON(w, code, errorBody{Error: err.Error()})
		return
	}
	if code == http.StatusNotFound || code == http.StatusForbidden {
		http.Error(w, err.Error(), code)
		return
	}
	http.Redirect(w, r, h.s.Location(), http.StatusSeeOther)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, code int, err error) {
	if wantsJSON(r) {
		writeJSON(w, code, errorBody{Error: err.Error()})
		return
	}
	http.Error(w, err.Error(), code)
}

func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("encode json response", "err", err)
	}
}
