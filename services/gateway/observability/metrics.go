// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all gateway metrics.
const metricsNamespace = "seraphim"

// Subsystem for inference routing metrics.
const gatewaySubsystem = "gateway"

// Metrics holds the Prometheus metrics for inference routing.
//
// # Description
//
// Counters and histograms for the pull-based monitoring collector.
// Labels are bounded by construction: two variants and four outcome
// kinds, so cardinality cannot grow with traffic.
//
// # Thread Safety
//
// All operations are thread-safe via Prometheus's internal locking.
type Metrics struct {
	// RequestsTotal counts completed dispatches.
	// Labels: variant (baseline, candidate), outcome (success, timeout,
	// upstream_error, unexpected_error).
	RequestsTotal *prometheus.CounterVec

	// RequestLatencySeconds measures end-to-end dispatch latency.
	// Labels: variant.
	RequestLatencySeconds *prometheus.HistogramVec

	// FallbacksTotal counts deterministic fallback predictions served.
	// Labels: variant, outcome.
	FallbacksTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the gateway metrics.
//
// Description:
//
//	Registers against the given registerer; pass a fresh
//	prometheus.NewRegistry() in tests to avoid duplicate-registration
//	panics, and prometheus.DefaultRegisterer at the composition root.
//
// Inputs:
//   - reg: Target registerer. If nil, uses prometheus.DefaultRegisterer.
//
// Outputs:
//   - *Metrics: The registered metrics. Never nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "requests_total",
				Help:      "Completed inference dispatches by variant and outcome",
			},
			[]string{"variant", "outcome"},
		),

		RequestLatencySeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "request_latency_seconds",
				Help:      "Dispatch latency by variant",
				Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.15, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"variant"},
		),

		FallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "fallbacks_total",
				Help:      "Deterministic fallback predictions served by variant and outcome",
			},
			[]string{"variant", "outcome"},
		),
	}
}

// Record implements Recorder.
func (m *Metrics) Record(rec OutcomeRecord) {
	variant := string(rec.Variant)
	outcome := string(rec.Outcome)

	m.RequestsTotal.WithLabelValues(variant, outcome).Inc()
	m.RequestLatencySeconds.WithLabelValues(variant).Observe(rec.Latency.Seconds())
	if rec.Outcome != OutcomeSuccess {
		m.FallbacksTotal.WithLabelValues(variant, outcome).Inc()
	}
}
