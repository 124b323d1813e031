// CLAUDE:SUMMARY HTTP API over chi: POST /check runs a scan (JSON or rendered report), /scans exposes the history store.
// Package server exposes checks and scan history over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/bidicheck/checker"
	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/kit"
	"github.com/hazyhaar/bidicheck/render"
	"github.com/hazyhaar/bidicheck/store"
)

const maxRequestBody = 10 << 20

// Server wires the check service and the optional history store to HTTP.
type Server struct {
	service *checker.Service
	store   *store.Store
	logger  *slog.Logger
}

// New creates a Server. st may be nil, in which case the /scans routes are
// not mounted.
func New(service *checker.Service, st *store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{service: service, store: st, logger: logger}
}

// Handler returns the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(securityHeaders)
	r.Use(maxBody(maxRequestBody))
	r.Use(requestID(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Post("/check", s.handleCheck)

	if s.store != nil {
		r.Route("/scans", func(r chi.Router) {
			r.Get("/", s.handleListScans)
			r.Get("/stats", s.handleStats)
			r.Get("/{id}", s.handleGetScan)
			r.Delete("/{id}", s.handleDeleteScan)
		})
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// with a 10s grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server: shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCheck runs a check. The response is the JSON checker.Response unless
// ?format= asks for text, html or markdown.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if r.URL.Query().Get("format") == "" {
		format = render.FormatJSON
	}

	var req checker.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	logger := requestLogger(r.Context())
	resp, res, err := s.service.Do(r.Context(), &req)
	if err != nil {
		logger.Warn("server: check failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	logger.Info("server: check done",
		"url", resp.URL,
		"errors", resp.Count,
		"request_id", kit.GetRequestID(r.Context()))

	if resp.ID != "" {
		w.Header().Set("X-Scan-ID", resp.ID)
	}
	if format == render.FormatJSON {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	expected, _ := dom.ParseDirection(req.Dir)
	source := resp.URL
	if source == "" {
		source = "inline"
	}
	w.Header().Set("Content-Type", contentType(format))
	w.WriteHeader(http.StatusOK)
	if err := render.Write(w, format, render.FromResult(source, expected, res)); err != nil {
		logger.Warn("server: render failed", "format", format, "error", err)
	}
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	scans, err := s.store.List(r.Context(), q.Get("source"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if scans == nil {
		scans = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, scans)
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.TypeCounts(r.Context(), r.URL.Query().Get("scan"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func contentType(f render.Format) string {
	switch f {
	case render.FormatHTML:
		return "text/html; charset=utf-8"
	case render.FormatMarkdown:
		return "text/markdown; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
