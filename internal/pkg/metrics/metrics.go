package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audittrail_events_total",
		Help: "The total number of audit events logged",
	}, []string{"category", "severity"})

	ViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audittrail_violations_total",
		Help: "Total compliance rule violations detected",
	}, []string{"rule"})

	AlertFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audittrail_alert_failures_total",
		Help: "Alert deliveries that failed, by channel",
	}, []string{"channel"})

	AutoResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audittrail_auto_responses_total",
		Help: "Automated responses executed, by action and outcome",
	}, []string{"action", "status"})

	StorageFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audittrail_storage_failures_total",
		Help: "Durable writes that failed and were surfaced to callers",
	})

	SweepDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audittrail_sweep_deleted_total",
		Help: "Records deleted by the retention sweeper",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "audittrail_sweep_duration_seconds",
		Help:    "Retention sweep duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audittrail_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	FeedDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audittrail_feed_dropped_total",
		Help: "Live-feed messages dropped because a subscriber buffer was full",
	})
)
