// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package api exposes the analysis engine over HTTP: submit a video for
// analysis, fetch a stored verdict, list past analyses, plus health and
// Prometheus endpoints. The API is unauthenticated; it is meant to run
// behind a trusted reverse proxy.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verascope/verascope/internal/config"
	"github.com/verascope/verascope/internal/logging"
	"github.com/verascope/verascope/internal/media"
	"github.com/verascope/verascope/internal/metrics"
	"github.com/verascope/verascope/internal/pipeline"
	"github.com/verascope/verascope/internal/store"
)

// Runner executes analyses.
type Runner interface {
	Analyze(ctx context.Context, videoPath string) (*pipeline.Result, error)
}

// Archive persists and retrieves analysis results.
type Archive interface {
	Put(result *pipeline.Result) error
	Get(id string) (*pipeline.Result, error)
	List(limit int) ([]store.Summary, error)
}

// Server holds the handler dependencies.
type Server struct {
	cfg     config.ServerConfig
	runner  Runner
	archive Archive
}

// NewServer builds the API server.
func NewServer(cfg config.ServerConfig, runner Runner, archive Archive) *Server {
	return &Server{cfg: cfg, runner: runner, archive: archive}
}

// Router assembles the chi routing tree with the standard middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.WriteTimeout))
	r.Use(instrument)

	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}
	if s.cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Minute))
	}

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/analyses", s.handleCreateAnalysis)
		r.Get("/analyses", s.handleListAnalyses)
		r.Get("/analyses/{id}", s.handleGetAnalysis)
	})
	return r
}

type analysisRequest struct {
	// VideoPath is a server-visible path to the video to analyze.
	VideoPath string `json:"video_path"`
}

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VideoPath == "" {
		writeError(w, http.StatusBadRequest, "video_path is required")
		return
	}

	result, err := s.runner.Analyze(r.Context(), req.VideoPath)
	if err != nil {
		if errors.Is(err, media.ErrUnreadableInput) {
			writeError(w, http.StatusUnprocessableEntity, "video could not be decoded")
			return
		}
		logging.Error().Err(err).Str("video", req.VideoPath).Msg("analysis failed")
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	if err := s.archive.Put(result); err != nil {
		logging.Error().Err(err).Str("analysis_id", result.ID).Msg("failed to persist analysis")
		// The analysis itself succeeded; return it anyway.
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := s.archive.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if err != nil {
		logging.Error().Err(err).Str("analysis_id", id).Msg("failed to fetch analysis")
		writeError(w, http.StatusInternalServerError, "failed to fetch analysis")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = v
	}

	summaries, err := s.archive.List(limit)
	if err != nil {
		logging.Error().Err(err).Msg("failed to list analyses")
		writeError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}
	if summaries == nil {
		summaries = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": summaries, "count": len(summaries)})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// instrument records request metrics using the matched chi route pattern so
// path parameters do not explode label cardinality.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.RecordAPIRequest(r.Method, pattern, strconv.Itoa(ww.Status()), time.Since(start))
	})
}
