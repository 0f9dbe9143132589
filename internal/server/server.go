// Package server exposes the workflow engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andywolf/prompttoproduct/internal/memory"
	"github.com/andywolf/prompttoproduct/internal/version"
	"github.com/andywolf/prompttoproduct/internal/workflow"
)

// Runner is the part of the engine the server drives.
type Runner interface {
	Run(ctx context.Context, prompt string) workflow.FinalResult
	Status() workflow.Status
}

// MemoryReader lists recent classifications.
type MemoryReader interface {
	Recent(limit int) []memory.Entry
}

// maxPromptBytes bounds a run request body.
const maxPromptBytes = 64 << 10

// RunRequest is the body of POST /v1/runs.
type RunRequest struct {
	Prompt string `json:"prompt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves run, status and memory endpoints.
type Server struct {
	runner   Runner
	memory   MemoryReader
	gatherer prometheus.Gatherer
	logger   *log.Logger
}

// New creates a server. gatherer may be nil to disable /metrics.
func New(runner Runner, mem MemoryReader, gatherer prometheus.Gatherer, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{runner: runner, memory: mem, gatherer: gatherer, logger: logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/runs", s.createRun)
		r.Get("/status", s.status)
		r.Get("/memory", s.recentMemory)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Short()})
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPromptBytes)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		s.logger.Printf("Warning: rejected run request: %v", err)
		return
	}
	if strings.TrimSpace(body.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "prompt is required"})
		return
	}

	result := s.runner.Run(r.Context(), body.Prompt)
	s.logger.Printf("run %s finished: %s", result.RunID, result.Status)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Status())
}

func (s *Server) recentMemory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	entries := []memory.Entry{}
	if s.memory != nil {
		if recent := s.memory.Recent(limit); recent != nil {
			entries = recent
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
