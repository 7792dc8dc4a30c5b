// CLAUDE:SUMMARY Admin HTTP surface: health, status, pass history, screen view, Prometheus metrics and manual reconcile.
package domfix

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazyhaar/domfix/domfix/reconcile"
	"github.com/hazyhaar/domfix/shield"
)

// Handler returns the admin surface with its middleware stack.
func (e *Engine) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range shield.AdminStack(e.logger) {
		r.Use(mw)
	}
	e.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the admin routes on r:
//
//	GET  /health
//	GET  /status
//	GET  /passes?screen=&limit=
//	GET  /failures
//	GET  /screens/{id}?format=html|markdown
//	GET  /metrics
//	POST /reconcile?screen=
func (e *Engine) RegisterHTTP(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		status := "ok"
		code := http.StatusOK
		if !e.Status().Running {
			status, code = "stopped", http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]string{"status": status})
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, e.Status())
	})

	r.Get("/passes", func(w http.ResponseWriter, r *http.Request) {
		passes, err := e.History(r.Context(), LedgerQuery{
			ScreenID: r.URL.Query().Get("screen"),
			Limit:    queryInt(r, "limit", 20),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, passes)
	})

	r.Get("/failures", func(w http.ResponseWriter, r *http.Request) {
		counts, err := e.FailuresByRule(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, counts)
	})

	r.Get("/screens/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, ok := e.reg.Screen(id); !ok {
			writeError(w, http.StatusNotFound, errors.New("unknown screen "+strconv.Quote(id)))
			return
		}
		html, err := e.ScreenHTML(r.Context(), id)
		if err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, reconcile.ErrMissingElement) {
				code = http.StatusNotFound
			}
			writeError(w, code, err)
			return
		}
		if r.URL.Query().Get("format") == "html" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(html))
			return
		}
		md, err := Digest(html)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(md))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(e.metrics.Registry, promhttp.HandlerOpts{}))

	r.Post("/reconcile", func(w http.ResponseWriter, r *http.Request) {
		screen := r.URL.Query().Get("screen")
		if screen != "" {
			if _, ok := e.reg.Screen(screen); !ok {
				writeError(w, http.StatusNotFound, errors.New("unknown screen "+strconv.Quote(screen)))
				return
			}
		}
		p, err := e.Reconcile(r.Context(), screen)
		if err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, ErrClosed) || errors.Is(err, ErrNotRunning) {
				code = http.StatusServiceUnavailable
			}
			writeError(w, code, err)
			return
		}
		shield.GetLogger(r.Context()).Info("engine: manual pass", "seq", p.Seq, "screen", p.ScreenID, "mutations", p.Mutations())
		writeJSON(w, http.StatusOK, p)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
