// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides request-outcome accounting for the
// gateway: an in-process aggregator that feeds the canary evaluator, and
// Prometheus metrics for the external monitoring collector.
package observability

import (
	"time"

	"github.com/AleutianAI/seraphim/services/gateway/routing"
)

// Outcome classifies how a dispatched request ended.
type Outcome string

const (
	// OutcomeSuccess means the backend answered 2xx with a parseable body.
	OutcomeSuccess Outcome = "success"

	// OutcomeTimeout means the dispatch deadline elapsed.
	OutcomeTimeout Outcome = "timeout"

	// OutcomeUpstreamError means the backend answered with a non-2xx status.
	OutcomeUpstreamError Outcome = "upstream_error"

	// OutcomeUnexpectedError covers transport and parse failures.
	OutcomeUnexpectedError Outcome = "unexpected_error"
)

// Outcomes lists every outcome label, in index order used by the
// aggregator's counters.
var Outcomes = []Outcome{
	OutcomeSuccess,
	OutcomeTimeout,
	OutcomeUpstreamError,
	OutcomeUnexpectedError,
}

// outcomeIndex maps an outcome to its counter slot. Unknown outcomes map
// to the unexpected_error slot so a record is never silently dropped.
func outcomeIndex(o Outcome) int {
	for i, known := range Outcomes {
		if known == o {
			return i
		}
	}
	return len(Outcomes) - 1
}

// OutcomeRecord is the single telemetry event emitted per completed
// request. It is consumed exclusively by Recorder implementations.
type OutcomeRecord struct {
	Variant routing.Variant
	Outcome Outcome
	Latency time.Duration
}

// Recorder consumes one OutcomeRecord per completed request.
//
// The dispatcher depends on this interface rather than on a concrete
// sink, so the aggregator and the Prometheus metrics can both be wired in
// at the composition root.
type Recorder interface {
	Record(rec OutcomeRecord)
}

// multiRecorder fans a record out to several sinks.
type multiRecorder []Recorder

// Record implements Recorder.
func (m multiRecorder) Record(rec OutcomeRecord) {
	for _, r := range m {
		r.Record(rec)
	}
}

// MultiRecorder combines several recorders into one. Nil entries are
// skipped.
func MultiRecorder(recorders ...Recorder) Recorder {
	out := make(multiRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
