package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avdroll_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "avdroll_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"stage"},
	)

	// Deployment metrics
	DeploymentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "avdroll_deployment_duration_seconds",
			Help:    "Resource-manager deployment duration in seconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
	)

	DeploymentsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "avdroll_deployments_failed_total",
			Help: "Total number of deployments that reached a failed terminal state",
		},
	)

	// Restart metrics
	RestartsIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avdroll_restarts_issued_total",
			Help: "Total number of session host restart requests by wave",
		},
		[]string{"wave"},
	)

	RestartsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avdroll_restarts_failed_total",
			Help: "Total number of failed session host restart requests by wave",
		},
		[]string{"wave"},
	)

	SessionHostsSeen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "avdroll_session_hosts",
			Help: "Session hosts enumerated in the most recent wave by status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(DeploymentDuration)
	prometheus.MustRegister(DeploymentsFailed)
	prometheus.MustRegister(RestartsIssued)
	prometheus.MustRegister(RestartsFailed)
	prometheus.MustRegister(SessionHostsSeen)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
