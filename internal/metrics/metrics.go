// Package metrics holds the Prometheus collectors shared by the board Lambdas.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Invocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "board_lambda_invocations_total",
			Help: "Total number of handled invocations by function, task and HTTP status",
		},
		[]string{"function", "task", "status"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "board_lambda_upstream_duration_seconds",
			Help:    "Duration of calls to DeepSeek, VoyageAI and Supabase",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"service", "outcome"},
	)
)

// ObserveInvocation counts one finished invocation.
func ObserveInvocation(function, task string, status int) {
	if task == "" {
		task = "none"
	}
	Invocations.WithLabelValues(function, task, strconv.Itoa(status)).Inc()
}

// ObserveUpstream records how long a collaborator call took and whether it failed.
func ObserveUpstream(service string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	UpstreamDuration.WithLabelValues(service, outcome).Observe(time.Since(start).Seconds())
}
