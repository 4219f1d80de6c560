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
	"sync"
	"sync/atomic"

	"github.com/AleutianAI/seraphim/services/gateway/routing"
	"github.com/AleutianAI/seraphim/services/reliability/canary"
)

// latencyBucketBoundsMs are the upper bounds (milliseconds) of the
// fixed latency histogram. The last implicit bucket is +Inf. Bounds are
// dense around the dispatch timeout range where canary decisions live.
var latencyBucketBoundsMs = []float64{
	1, 2.5, 5, 10, 25, 50, 100, 150, 250, 500, 1000, 2500, 5000,
}

// Snapshot is a derived, read-only view over the records accumulated for
// one variant. It is produced on demand and never mutated afterwards.
type Snapshot struct {
	// Variant the snapshot describes.
	Variant routing.Variant `json:"variant"`

	// Total is the number of records observed.
	Total int64 `json:"total"`

	// Counts holds per-outcome record counts.
	Counts map[Outcome]int64 `json:"counts"`

	// P95LatencyMs is the 95th-percentile request latency, interpolated
	// from the histogram buckets. Always >= 0.
	P95LatencyMs float64 `json:"p95_latency_ms"`

	// ErrorRate is the share of non-success outcomes. Always >= 0.
	ErrorRate float64 `json:"error_rate"`

	// Score is the mean accuracy-proxy score, if any were recorded.
	Score *float64 `json:"score,omitempty"`
}

// CanaryMetrics adapts the snapshot to the canary evaluator's input type.
func (s Snapshot) CanaryMetrics() canary.Metrics {
	return canary.Metrics{
		P95LatencyMs: s.P95LatencyMs,
		ErrorRate:    s.ErrorRate,
		Score:        s.Score,
	}
}

// variantStats holds the running counters for one variant.
//
// Counters are atomics incremented under the shared side of mu, so
// concurrent requests never contend with each other; Snapshot takes the
// exclusive side briefly, which stalls increments just long enough to
// read every counter at one instant.
type variantStats struct {
	mu sync.RWMutex

	outcomes [4]atomic.Int64
	buckets  []atomic.Int64 // len(latencyBucketBoundsMs)+1, last is +Inf
	sumUs    atomic.Int64   // total latency in microseconds

	// Guarded by the exclusive side of mu; score writes are rare.
	scoreSum   float64
	scoreCount int64
}

func newVariantStats() *variantStats {
	return &variantStats{
		buckets: make([]atomic.Int64, len(latencyBucketBoundsMs)+1),
	}
}

// Aggregator accumulates OutcomeRecords keyed by (variant, outcome).
//
// # Description
//
// The aggregator is the only shared mutable state on the request path.
// Increments are atomic, so concurrent callers neither lose updates nor
// block each other. Latency is kept in fixed histogram buckets rather
// than raw samples, so memory stays bounded for long-running processes.
//
// The aggregator is an explicitly owned object passed to the request
// path; nothing in this package assumes a process-wide singleton.
//
// # Thread Safety
//
// Safe for concurrent use. A Snapshot is a consistent point-in-time read:
// it reflects exactly the records whose Record call completed before it,
// stalling in-flight increments only for the few loads it takes to read
// the counters.
type Aggregator struct {
	variants map[routing.Variant]*variantStats
}

// NewAggregator creates an aggregator tracking both variants.
func NewAggregator() *Aggregator {
	return &Aggregator{
		variants: map[routing.Variant]*variantStats{
			routing.VariantBaseline:  newVariantStats(),
			routing.VariantCandidate: newVariantStats(),
		},
	}
}

// Record implements Recorder.
//
// Thread Safety: Safe for concurrent use; recorders share the read side
// of the variant lock, so they only wait on each other during an active
// Snapshot.
func (a *Aggregator) Record(rec OutcomeRecord) {
	stats, ok := a.variants[rec.Variant]
	if !ok {
		return
	}

	stats.mu.RLock()
	defer stats.mu.RUnlock()

	stats.outcomes[outcomeIndex(rec.Outcome)].Add(1)
	stats.sumUs.Add(rec.Latency.Microseconds())

	ms := float64(rec.Latency.Microseconds()) / 1000.0
	stats.buckets[bucketIndex(ms)].Add(1)
}

// RecordScore accumulates an accuracy-proxy score for a variant.
//
// Scores arrive from offline labeling, not the hot request path, so
// taking the exclusive lock here is acceptable.
func (a *Aggregator) RecordScore(variant routing.Variant, score float64) {
	stats, ok := a.variants[variant]
	if !ok {
		return
	}
	stats.mu.Lock()
	stats.scoreSum += score
	stats.scoreCount++
	stats.mu.Unlock()
}

// Count returns the number of records for a (variant, outcome) pair.
func (a *Aggregator) Count(variant routing.Variant, outcome Outcome) int64 {
	stats, ok := a.variants[variant]
	if !ok {
		return 0
	}
	return stats.outcomes[outcomeIndex(outcome)].Load()
}

// Snapshot derives a read-only metrics view for one variant, reflecting
// exactly the records whose Record call completed before the snapshot.
//
// Thread Safety: Safe to call concurrently with ongoing Records. Takes
// the variant's exclusive lock for the duration of the counter reads, so
// the outcome counts and the latency histogram describe the same set of
// records.
func (a *Aggregator) Snapshot(variant routing.Variant) Snapshot {
	snap := Snapshot{
		Variant: variant,
		Counts:  make(map[Outcome]int64, len(Outcomes)),
	}

	stats, ok := a.variants[variant]
	if !ok {
		return snap
	}

	stats.mu.Lock()
	defer stats.mu.Unlock()

	var errors int64
	for i, outcome := range Outcomes {
		n := stats.outcomes[i].Load()
		snap.Counts[outcome] = n
		snap.Total += n
		if outcome != OutcomeSuccess {
			errors += n
		}
	}

	if snap.Total > 0 {
		snap.ErrorRate = float64(errors) / float64(snap.Total)
	}

	bucketCounts := make([]int64, len(stats.buckets))
	var bucketTotal int64
	for i := range stats.buckets {
		bucketCounts[i] = stats.buckets[i].Load()
		bucketTotal += bucketCounts[i]
	}
	snap.P95LatencyMs = histogramPercentile(bucketCounts, bucketTotal, 0.95)

	if stats.scoreCount > 0 {
		mean := stats.scoreSum / float64(stats.scoreCount)
		snap.Score = &mean
	}

	return snap
}

// bucketIndex finds the histogram slot for a latency in milliseconds.
func bucketIndex(ms float64) int {
	for i, bound := range latencyBucketBoundsMs {
		if ms <= bound {
			return i
		}
	}
	return len(latencyBucketBoundsMs)
}

// histogramPercentile extracts a percentile from bucket counts by
// linear interpolation inside the bucket that crosses the target rank.
// Records in the overflow (+Inf) bucket report the largest finite bound.
func histogramPercentile(counts []int64, total int64, q float64) float64 {
	if total == 0 {
		return 0
	}

	target := q * float64(total)
	var cumulative float64
	for i, n := range counts {
		if n == 0 {
			continue
		}
		next := cumulative + float64(n)
		if next >= target {
			if i >= len(latencyBucketBoundsMs) {
				return latencyBucketBoundsMs[len(latencyBucketBoundsMs)-1]
			}
			lower := 0.0
			if i > 0 {
				lower = latencyBucketBoundsMs[i-1]
			}
			upper := latencyBucketBoundsMs[i]
			return lower + (target-cumulative)/float64(n)*(upper-lower)
		}
		cumulative = next
	}
	return latencyBucketBoundsMs[len(latencyBucketBoundsMs)-1]
}
