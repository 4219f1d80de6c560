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
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/seraphim/services/gateway/routing"
)

func TestMetrics_RecordCountsByLabels(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.Record(record(routing.VariantBaseline, OutcomeSuccess, 10*time.Millisecond))
	metrics.Record(record(routing.VariantBaseline, OutcomeSuccess, 12*time.Millisecond))
	metrics.Record(record(routing.VariantCandidate, OutcomeTimeout, 300*time.Millisecond))

	assert.Equal(t, 2.0, testutil.ToFloat64(
		metrics.RequestsTotal.WithLabelValues("baseline", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		metrics.RequestsTotal.WithLabelValues("candidate", "timeout")))
}

func TestMetrics_FallbacksOnlyForFailures(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.Record(record(routing.VariantCandidate, OutcomeSuccess, time.Millisecond))
	metrics.Record(record(routing.VariantCandidate, OutcomeUpstreamError, time.Millisecond))

	assert.Equal(t, 0.0, testutil.ToFloat64(
		metrics.FallbacksTotal.WithLabelValues("candidate", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		metrics.FallbacksTotal.WithLabelValues("candidate", "upstream_error")))
}
