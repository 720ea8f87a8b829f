package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Completion triggers.
const (
	TriggerSubmission = "submission"
	TriggerExplicit   = "explicit"
)

// Submission outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

var (
	// Registry holds every collector of the service. It is separate from the
	// default registry so tests can inspect it without global side effects.
	Registry = prometheus.NewRegistry()

	// RuleSubmissionsTotal counts sub-inspection submissions.
	RuleSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ats_rule_submissions_total",
			Help: "Total number of sub-inspection submissions.",
		},
		[]string{"category", "outcome"}, // category: visual/functional, outcome: accepted/rejected
	)

	InspectionsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ats_inspections_started_total",
			Help: "Total number of test instances started.",
		},
	)

	// InspectionsCompletedTotal counts completions by what triggered them.
	InspectionsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ats_inspections_completed_total",
			Help: "Total number of test instances completed.",
		},
		[]string{"trigger"}, // trigger: submission/explicit
	)

	// InspectionDuration records the time from start to completion.
	InspectionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ats_inspection_duration_seconds",
			Help:    "Time between starting and completing a test instance.",
			Buckets: prometheus.ExponentialBuckets(60, 2, 10), // 1m .. ~8.5h
		},
	)

	NotifierFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ats_notifier_failures_total",
			Help: "Total number of inspection events that could not be published.",
		},
	)
)

func init() {
	Registry.MustRegister(
		RuleSubmissionsTotal,
		InspectionsStartedTotal,
		InspectionsCompletedTotal,
		InspectionDuration,
		NotifierFailuresTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the metrics of Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
