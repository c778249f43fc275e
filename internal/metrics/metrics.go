// Package metrics exposes Prometheus instruments for the ingestion
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UploadsStarted counts sessions that passed validation and minted an
	// asset id.
	UploadsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_uploads_started_total",
		Help: "Upload sessions started.",
	})

	// UploadsRejected counts sessions rejected during validation, before
	// any network call.
	UploadsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_uploads_rejected_total",
		Help: "Upload sessions rejected by validation.",
	})

	// UploadsFailed counts sessions that ended in a hard failure.
	UploadsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_uploads_failed_total",
		Help: "Upload sessions that failed during transfer or metadata attach.",
	})

	// UploadsCompleted counts resolved sessions by poll outcome.
	UploadsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_uploads_completed_total",
		Help: "Upload sessions resolved, labeled by poll outcome.",
	}, []string{"outcome"})

	// TransferredBytes accumulates bytes acknowledged by the remote service.
	TransferredBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_transferred_bytes_total",
		Help: "Bytes transferred to the stream service.",
	})

	// PollOutcomes counts polling runs by terminal outcome.
	PollOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_poll_outcomes_total",
		Help: "Processing poll runs by outcome.",
	}, []string{"outcome"})

	// PollAttempts observes how many status checks a polling run used.
	PollAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_poll_attempts",
		Help:    "Status check attempts per polling run.",
		Buckets: prometheus.LinearBuckets(1, 5, 7),
	})
)
