package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Generation jobs finished, partitioned by terminal stage
	jobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendforge",
			Name:      "pipeline_jobs_finished_total",
			Help:      "Generation jobs that reached a terminal stage",
		},
		[]string{"stage"},
	)

	// Stage execution time partitioned by stage name
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trendforge",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Generation stage execution latencies in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"stage"},
	)

	// Tier degradations partitioned by capability
	tierDegradationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendforge",
			Name:      "pipeline_tier_degradations_total",
			Help:      "Generation invocations served by a tier below the requested one",
		},
		[]string{"capability"},
	)

	// Jobs admitted to the pipeline but not yet terminal
	pipelineQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "trendforge",
			Name:      "pipeline_queue_depth",
			Help:      "Generation jobs admitted but not yet finished",
		},
	)

	// Upload attempts partitioned by platform and outcome
	uploadAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendforge",
			Name:      "upload_attempts_total",
			Help:      "Upload attempts by platform and outcome",
		},
		[]string{"platform", "outcome"},
	)

	// Upload retries scheduled after a transient failure
	uploadRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendforge",
			Name:      "upload_retries_total",
			Help:      "Upload retries scheduled after transient failures",
		},
		[]string{"platform"},
	)

	// Trends persisted per source
	trendsCollectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendforge",
			Name:      "trends_collected_total",
			Help:      "Trends collected and persisted per source",
		},
		[]string{"source"},
	)

	// Opportunity drafts created by the poller
	opportunitiesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trendforge",
			Name:      "opportunities_created_total",
			Help:      "Opportunity drafts created from scored trends",
		},
	)
)
