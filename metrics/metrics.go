// Package metrics exposes prometheus instrumentation for the enrichment
// pipeline and webhook ingestion.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enrich_jobs_started_total",
		Help: "Enrichment jobs leased by the workflow runner.",
	}, []string{"kind"})

	JobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enrich_jobs_completed_total",
		Help: "Enrichment jobs that finished successfully.",
	}, []string{"kind"})

	JobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enrich_jobs_failed_total",
		Help: "Enrichment jobs parked as failed after a terminal error or retry exhaustion.",
	}, []string{"kind"})

	StepRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enrich_step_retries_total",
		Help: "Retryable step failures handed back to the scheduler.",
	}, []string{"kind", "step"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "enrich_job_duration_seconds",
		Help:    "Wall time of one job attempt.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Identity webhook events by type and outcome.",
	}, []string{"type", "outcome"})
)
