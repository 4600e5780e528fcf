// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fileRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cuanbot_file_requests_total",
		Help: "Video file requests by result",
	}, []string{"result"}) // result=allowed|denied

	fileRequestsDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cuanbot_file_requests_denied_total",
		Help: "Denied video file requests by reason",
	}, []string{"reason"})

	fileCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cuanbot_file_cache_total",
		Help: "Conditional file request outcomes",
	}, []string{"result"}) // result=hit|miss

	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cuanbot_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cuanbot_circuit_breaker_trips_total",
		Help: "Circuit breaker trips by reason",
	}, []string{"name", "reason"})
)

func RecordFileRequestAllowed() { fileRequestsTotal.WithLabelValues("allowed").Inc() }

func RecordFileRequestDenied(reason string) {
	fileRequestsTotal.WithLabelValues("denied").Inc()
	fileRequestsDeniedTotal.WithLabelValues(reason).Inc()
}

func RecordFileCacheHit()  { fileCacheTotal.WithLabelValues("hit").Inc() }
func RecordFileCacheMiss() { fileCacheTotal.WithLabelValues("miss").Inc() }

func SetCircuitBreakerState(name, state string) {
	v := 0.0
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	circuitBreakerState.WithLabelValues(name).Set(v)
}

func RecordCircuitBreakerTrip(name, reason string) {
	circuitBreakerTrips.WithLabelValues(name, reason).Inc()
}
