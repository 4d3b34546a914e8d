// Package server exposes the scenario simulator over HTTP for the interactive
// what-if form.
//
// The simulator and dataset are loaded once and shared read-only by all
// handlers; the optional journal records every successful simulation.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/constructrisk/riskopt/sim"
	"github.com/constructrisk/riskopt/sim/advice"
	"github.com/constructrisk/riskopt/sim/journal"
)

const maxBodyBytes = 1 << 20

// Journal is the subset of *journal.Journal the server uses.
type Journal interface {
	Record(ctx context.Context, baseIndex int, o sim.Overrides, r sim.ScenarioResult) (journal.Entry, error)
	List(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Config tunes the HTTP layer.
type Config struct {
	AllowedOrigins []string
	Timeout        time.Duration
}

// DefaultConfig allows the local form origin and a 30 s request timeout.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"http://localhost:3000"},
		Timeout:        30 * time.Second,
	}
}

// Server routes API requests to a shared Simulator.
type Server struct {
	sim     *sim.Simulator
	journal Journal
	router  chi.Router
}

// New builds the router. j may be nil, in which case /scenarios answers 404.
func New(s *sim.Simulator, j Journal, cfg Config) *Server {
	srv := &Server{sim: s, journal: j}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)
	if cfg.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Timeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", srv.health)
	r.Get("/schema", srv.schema)
	r.Get("/projects/{index}", srv.project)
	r.Post("/simulate", srv.simulate)
	r.Get("/scenarios", srv.scenarios)
	srv.router = r
	return srv
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	hs := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()
	logrus.Infof("listening on %s", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logrus.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"elapsed":    time.Since(start).String(),
		}).Info("request")
	})
}

type fieldInfo struct {
	Name    string        `json:"name"`
	Kind    sim.FieldKind `json:"kind"`
	Role    sim.FieldRole `json:"role"`
	Min     *float64      `json:"min,omitempty"`
	Max     *float64      `json:"max,omitempty"`
	Choices []string      `json:"choices,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rows": s.sim.Rows()})
}

func (s *Server) schema(w http.ResponseWriter, _ *http.Request) {
	var out []fieldInfo
	for _, f := range sim.Fields() {
		fi := fieldInfo{Name: f.Name, Kind: f.Kind, Role: f.Role}
		if f.Bounded() {
			lo, hi := f.Min, f.Max
			fi.Min, fi.Max = &lo, &hi
		}
		if f.Kind == sim.Categorical {
			fi.Choices = s.sim.Table().Categories(f.Name)
		}
		out = append(out, fi)
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": out})
}

func (s *Server) project(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("project index must be an integer"))
		return
	}
	p, err := s.sim.Baseline(idx)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SimulateRequest is the body of POST /simulate.
type SimulateRequest struct {
	BaseIndex *int          `json:"base_index"`
	Overrides sim.Overrides `json:"overrides"`
}

// SimulateResponse is the body returned by POST /simulate.
type SimulateResponse struct {
	Result     sim.ScenarioResult `json:"result"`
	Assessment advice.Assessment  `json:"assessment"`
	JournalID  string             `json:"journal_id,omitempty"`
}

func (s *Server) simulate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("reading body: %w", err))
		return
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	var req SimulateRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	if req.BaseIndex == nil {
		writeError(w, http.StatusBadRequest, errors.New("base_index is required"))
		return
	}

	res, err := s.sim.Simulate(*req.BaseIndex, req.Overrides)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	resp := SimulateResponse{Result: res, Assessment: advice.Assess(res)}
	if s.journal != nil {
		e, err := s.journal.Record(r.Context(), *req.BaseIndex, req.Overrides, res)
		if err != nil {
			logrus.Warnf("journal: %v", err)
		} else {
			resp.JournalID = e.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) scenarios(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, errors.New("journal not configured"))
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be a positive integer, got %q", v))
			return
		}
		limit = n
	}
	entries, err := s.journal.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": entries})
}

// statusFor maps simulator errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sim.ErrArtifact):
		return http.StatusInternalServerError
	case errors.Is(err, sim.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, sim.ErrUnknownField), errors.Is(err, sim.ErrInvalidValue):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Debugf("writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		logrus.Errorf("request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
