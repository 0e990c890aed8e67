// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package metrics provides Prometheus instrumentation for Verascope:
// analysis throughput and latency, per-stage durations and degradations,
// external decoder (ffmpeg) invocations, and API endpoint metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Analysis Metrics
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyses_total",
			Help: "Total number of video analyses",
		},
		[]string{"outcome"}, // "completed", "failed"
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_duration_seconds",
			Help:    "End-to-end duration of video analyses in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}, // Full analyses can take minutes
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_stage_duration_seconds",
			Help:    "Duration of individual analysis stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"}, // "forensics", "multimodal", "timeline", "gradcam", "faketype", "threat"
	)

	StageDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_stage_degraded_total",
			Help: "Total number of stages that degraded to a neutral result",
		},
		[]string{"stage"},
	)

	FramesAnalyzed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "frames_analyzed_total",
			Help: "Total number of frames run through the forensics analyzers",
		},
	)

	// External Decoder Metrics
	DecoderInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decoder_invocations_total",
			Help: "Total number of ffmpeg/ffprobe subprocess invocations",
		},
		[]string{"operation", "result"}, // operation: "frames", "audio", "probe"; result: "success", "failure", "rejected"
	)

	DecoderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "decoder_duration_seconds",
			Help:    "Duration of decoder subprocess invocations in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	// Saliency Artifact Metrics
	OverlaysWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "saliency_overlays_written_total",
			Help: "Total number of Grad-CAM overlay images written to disk",
		},
	)

	// Assessment Store Metrics
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_store_operations_total",
			Help: "Total number of assessment store operations",
		},
		[]string{"operation", "result"}, // operation: "put", "get", "list"
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 60, 300},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// RecordAnalysis records a completed or failed analysis.
func RecordAnalysis(duration time.Duration, err error) {
	AnalysisDuration.Observe(duration.Seconds())
	if err != nil {
		AnalysesTotal.WithLabelValues("failed").Inc()
	} else {
		AnalysesTotal.WithLabelValues("completed").Inc()
	}
}

// RecordStage records the duration of a single pipeline stage and whether it
// degraded to a neutral result.
func RecordStage(stage string, duration time.Duration, degraded bool) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if degraded {
		StageDegraded.WithLabelValues(stage).Inc()
	}
}

// RecordDecoderInvocation records a decoder subprocess invocation.
func RecordDecoderInvocation(operation string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	DecoderInvocations.WithLabelValues(operation, result).Inc()
	DecoderDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDecoderRejected records a decoder invocation rejected by the circuit breaker.
func RecordDecoderRejected(operation string) {
	DecoderInvocations.WithLabelValues(operation, "rejected").Inc()
}

// RecordStoreOperation records an assessment store operation.
func RecordStoreOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	StoreOperations.WithLabelValues(operation, result).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
