// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package volume

import (
	"errors"

	"github.com/cobaltcore-dev/cinderbridge/pkg/monitoring"
	"github.com/prometheus/client_golang/prometheus"
)

// Collection of metrics for the volume service client.
type Monitor struct {
	// Time it takes to run a volume service operation.
	RequestTimer *prometheus.HistogramVec
	// Number of volume service operations by result.
	RequestCounter *prometheus.CounterVec
	// Number of retries of idempotent remote calls.
	RetryCounter *prometheus.CounterVec
}

// Create a new monitor and register its metrics.
func NewMonitor(registry *monitoring.Registry) Monitor {
	requestTimer := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cinderbridge_volume_request_duration_seconds",
		Help:    "Duration of volume service operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	requestCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cinderbridge_volume_requests_total",
		Help: "Number of volume service operations",
	}, []string{"operation", "result"})
	retryCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cinderbridge_volume_retries_total",
		Help: "Number of retried remote volume api calls",
	}, []string{"operation"})
	registry.MustRegister(requestTimer, requestCounter, retryCounter)
	return Monitor{
		RequestTimer:   requestTimer,
		RequestCounter: requestCounter,
		RetryCounter:   retryCounter,
	}
}

// Start tracking an operation. The returned function must be called with
// the outcome of the operation.
func (m Monitor) track(operation string) func(err error) {
	var timer *prometheus.Timer
	if m.RequestTimer != nil {
		timer = prometheus.NewTimer(m.RequestTimer.WithLabelValues(operation))
	}
	return func(err error) {
		if timer != nil {
			timer.ObserveDuration()
		}
		if m.RequestCounter != nil {
			m.RequestCounter.WithLabelValues(operation, resultLabel(err)).Inc()
		}
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, ErrServiceUnavailable), errors.Is(err, ErrConnectivity):
		return "unavailable"
	default:
		return "error"
	}
}
