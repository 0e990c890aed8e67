// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/verascope/verascope/internal/config"
	"github.com/verascope/verascope/internal/media"
	"github.com/verascope/verascope/internal/model"
	"github.com/verascope/verascope/internal/pipeline"
	"github.com/verascope/verascope/internal/store"
)

type fakeRunner struct {
	result *pipeline.Result
	err    error
}

func (f *fakeRunner) Analyze(context.Context, string) (*pipeline.Result, error) {
	return f.result, f.err
}

type fakeArchive struct {
	results map[string]*pipeline.Result
	putErr  error
	listErr error
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{results: map[string]*pipeline.Result{}}
}

func (f *fakeArchive) Put(r *pipeline.Result) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.results[r.ID] = r
	return nil
}

func (f *fakeArchive) Get(id string) (*pipeline.Result, error) {
	r, ok := f.results[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (f *fakeArchive) List(limit int) ([]store.Summary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []store.Summary
	for id := range f.results {
		out = append(out, store.Summary{ID: id})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func testServerConfig() config.ServerConfig {
	cfg := config.Default().Server
	cfg.WriteTimeout = 30 * time.Second
	return cfg
}

func TestCreateAnalysis(t *testing.T) {
	result := &pipeline.Result{
		ID:         "test-id",
		Prediction: model.Prediction{Label: "FAKE", Confidence: 90},
	}
	archive := newFakeArchive()
	srv := NewServer(testServerConfig(), &fakeRunner{result: result}, archive)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses",
		strings.NewReader(`{"video_path": "/videos/test.mp4"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body)
	}
	var got pipeline.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.ID != "test-id" || got.Prediction.Label != "FAKE" {
		t.Errorf("unexpected body: %+v", got)
	}
	if _, ok := archive.results["test-id"]; !ok {
		t.Error("result was not persisted")
	}
}

func TestCreateAnalysisValidation(t *testing.T) {
	srv := NewServer(testServerConfig(), &fakeRunner{}, newFakeArchive())
	router := srv.Router()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"invalid json", "{", http.StatusBadRequest},
		{"missing path", "{}", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestCreateAnalysisUnreadableInput(t *testing.T) {
	runner := &fakeRunner{err: media.ErrUnreadableInput}
	srv := NewServer(testServerConfig(), runner, newFakeArchive())
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses",
		strings.NewReader(`{"video_path": "/videos/corrupt.mp4"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestCreateAnalysisInternalError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("boom")}
	srv := NewServer(testServerConfig(), runner, newFakeArchive())
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses",
		strings.NewReader(`{"video_path": "/v.mp4"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestGetAnalysis(t *testing.T) {
	archive := newFakeArchive()
	archive.results["known"] = &pipeline.Result{ID: "known"}
	srv := NewServer(testServerConfig(), &fakeRunner{}, archive)
	router := srv.Router()

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/known", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/unknown", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestListAnalyses(t *testing.T) {
	archive := newFakeArchive()
	archive.results["a"] = &pipeline.Result{ID: "a"}
	archive.results["b"] = &pipeline.Result{ID: "b"}
	srv := NewServer(testServerConfig(), &fakeRunner{}, archive)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Analyses []store.Summary `json:"analyses"`
		Count    int             `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Count != 2 {
		t.Errorf("count = %d, want 2", body.Count)
	}

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses?limit=-1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHealth(t *testing.T) {
	srv := NewServer(testServerConfig(), &fakeRunner{}, newFakeArchive())
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %s, want application/json", ct)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(testServerConfig(), &fakeRunner{}, newFakeArchive())
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_") {
		t.Error("expected Prometheus exposition output")
	}
}
