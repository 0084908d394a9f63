package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"clinstat/app"
	"clinstat/domain/core"
	"clinstat/domain/report"
	"clinstat/internal"
	"clinstat/internal/errors"
	"clinstat/internal/render"
	"clinstat/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Limits on POST /api/runs query parameters
const (
	DefaultRunSize = 500
	MaxRunSize     = 100000
	defaultList    = 50
)

// Runner executes one analysis run
type Runner interface {
	Run(ctx context.Context, opts app.RunOptions) (*app.RunResult, error)
}

// Server exposes stored reports and synthetic runs over HTTP
type Server struct {
	router *chi.Mux
	store  ports.ReportStore
	runner Runner
	logger *internal.Logger
}

// NewServer creates the HTTP API. runner must save into store for POST /api/runs results
// to be retrievable.
func NewServer(store ports.ReportStore, runner Runner, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.NewDiscardLogger()
	}
	s := &Server{
		router: chi.NewRouter(),
		store:  store,
		runner: runner,
		logger: logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/reports", s.handleListReports)
		r.Get("/reports/{id}", s.handleGetReport)
		r.Get("/reports/{id}/html", s.handleReportHTML)
		// analysis keys contain slashes, e.g. summary/age/overall
		r.Get("/reports/{id}/entries/*", s.handleGetEntry)
		r.Post("/runs", s.handleCreateRun)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting clinstat API on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultList)
	if err != nil || limit <= 0 {
		s.writeError(w, errors.InvalidInput("limit must be a positive integer"))
		return
	}
	runs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []ports.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "*")
	entry, found := rep.Lookup(key)
	if !found {
		s.writeError(w, errors.NotFound("analysis "+key))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(render.HTML(rep))
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	size, err := intParam(r, "size", DefaultRunSize)
	if err != nil || size <= 0 || size > MaxRunSize {
		s.writeError(w, errors.InvalidInput("size must be an integer between 1 and "+strconv.Itoa(MaxRunSize)))
		return
	}
	seed, err := intParam(r, "seed", 42)
	if err != nil {
		s.writeError(w, errors.InvalidInput("seed must be an integer"))
		return
	}

	res, err := s.runner.Run(r.Context(), app.RunOptions{
		Data:      app.DataOptions{SyntheticSize: size, SyntheticSeed: int64(seed)},
		KeepGoing: true,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	summary, err := ports.SummarizeReport(res.Report)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/reports/"+res.Report.RunID().String())
	writeJSON(w, http.StatusCreated, summary)
}

// loadReport resolves {id} and writes the error response itself when it fails
func (s *Server) loadReport(w http.ResponseWriter, r *http.Request) (*report.Report, bool) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, errors.WithCode(errors.CodeInvalidInput, err))
		return nil, false
	}
	rep, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return rep, true
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// statusFor maps AppError codes to HTTP status codes
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeInvalidInput, errors.CodeConfigInvalid, errors.CodeInvalidVariable, errors.CodeMalformedInput:
		return http.StatusBadRequest
	case errors.CodeInsufficientN, errors.CodeDegenerateVar, errors.CodeSingularDesign, errors.CodeEmptyDataset:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("API request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
