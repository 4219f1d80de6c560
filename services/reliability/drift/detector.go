// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package drift flags representational drift between a reference sample
// window and the current one.
//
// # Description
//
// Two independent detectors share the "reference vs. current" shape:
//
//   - Cosine-distance drift over paired embedding vectors, judged at the
//     95th percentile of per-pair distances so a few outlier pairs can
//     neither mask drift nor trigger it alone.
//   - KL divergence over two discrete probability vectors. Directional:
//     callers always pass (reference, current) in that order.
//
// Both detectors are pure functions over the supplied sample sets and
// hold no state between calls.
package drift

import (
	"errors"
	"math"
	"sort"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInvalidInput indicates structurally invalid sample sets, such as
	// mismatched pair counts or vector lengths. This is a precondition
	// violation on the caller's side, not a runtime condition to guess
	// around.
	ErrInvalidInput = errors.New("invalid drift sample input")
)

const (
	// epsilon guards zero-norm embeddings and log(0) in the KL term.
	epsilon = 1e-9

	// DefaultCosineThreshold is the p95 cosine-distance level above which
	// embedding drift is flagged.
	DefaultCosineThreshold = 0.15

	// driftPercentile is the order statistic the cosine detector judges.
	driftPercentile = 95.0
)

// -----------------------------------------------------------------------------
// Cosine-distance drift
// -----------------------------------------------------------------------------

// CosineReport holds the result of a cosine-distance drift check.
type CosineReport struct {
	// Distances are the per-pair cosine distances, in input order.
	Distances []float64

	// P95Distance is the 95th percentile of Distances.
	P95Distance float64

	// Threshold is the level the percentile was judged against.
	Threshold float64

	// Drifted is true if P95Distance exceeds Threshold.
	Drifted bool
}

// CosineDistance computes 1 - cosine similarity for one vector pair.
//
// Description:
//
//	Each vector is normalized with an epsilon guard against zero norms,
//	so degenerate embeddings yield a distance near 1 instead of NaN.
//
// Outputs:
//   - float64: Distance in [0, 2].
//   - error: ErrInvalidInput on empty or mismatched lengths.
//
// Thread Safety: Stateless; safe for concurrent use.
func CosineDistance(a, b []float64) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, ErrInvalidInput
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	normA = math.Sqrt(normA) + epsilon
	normB = math.Sqrt(normB) + epsilon

	return 1.0 - dot/(normA*normB), nil
}

// DetectCosineDrift checks paired embedding windows for drift.
//
// Description:
//
//	Computes the per-pair cosine distance between reference and current
//	embeddings and flags drift iff the 95th percentile of those distances
//	exceeds the threshold. Percentile, not mean: a handful of outlier
//	pairs cannot mask drift, nor can they alone trigger it.
//
// Inputs:
//   - reference: Embedding vectors from the reference window.
//   - current: Embedding vectors from the current window, paired by index.
//   - threshold: Drift level; pass DefaultCosineThreshold when unsure.
//
// Outputs:
//   - *CosineReport: Per-pair distances and the drift verdict.
//   - error: ErrInvalidInput on empty input, mismatched pair counts, or
//     mismatched vector lengths within a pair.
//
// Thread Safety: Stateless; safe for concurrent use.
func DetectCosineDrift(reference, current [][]float64, threshold float64) (*CosineReport, error) {
	if len(reference) == 0 || len(reference) != len(current) {
		return nil, ErrInvalidInput
	}

	distances := make([]float64, len(reference))
	for i := range reference {
		d, err := CosineDistance(reference[i], current[i])
		if err != nil {
			return nil, err
		}
		distances[i] = d
	}

	p95 := Percentile(distances, driftPercentile)
	return &CosineReport{
		Distances:   distances,
		P95Distance: p95,
		Threshold:   threshold,
		Drifted:     p95 > threshold,
	}, nil
}

// -----------------------------------------------------------------------------
// Distributional drift (KL divergence)
// -----------------------------------------------------------------------------

// KLDivergence computes sum(p * (log p - log q)) over two discrete
// probability vectors.
//
// Description:
//
//	Both vectors are clamped to [epsilon, 1] before the log terms so a
//	zero entry cannot produce -Inf. The measure is directional: pass
//	(reference, current) in that order, always. No normalization happens
//	here; callers supply already-normalized probability vectors.
//
// Outputs:
//   - float64: The divergence. Approximately 0 when p equals q; large and
//     positive when p concentrates mass where q has almost none.
//   - error: ErrInvalidInput on empty or mismatched lengths.
//
// Thread Safety: Stateless; safe for concurrent use.
func KLDivergence(p, q []float64) (float64, error) {
	if len(p) == 0 || len(p) != len(q) {
		return 0, ErrInvalidInput
	}

	var sum float64
	for i := range p {
		pi := clamp(p[i])
		qi := clamp(q[i])
		sum += pi * (math.Log(pi) - math.Log(qi))
	}
	return sum, nil
}

func clamp(v float64) float64 {
	if v < epsilon {
		return epsilon
	}
	if v > 1 {
		return 1
	}
	return v
}

// -----------------------------------------------------------------------------
// Percentile
// -----------------------------------------------------------------------------

// Percentile returns the q-th percentile (0-100) of values, using linear
// interpolation between order statistics.
//
// Description:
//
//	This matches the default numpy convention: the rank is
//	q/100 * (n-1), and values between adjacent order statistics are
//	linearly interpolated. The input slice is not modified.
//
// Thread Safety: Stateless; safe for concurrent use.
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := q / 100.0 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	frac := rank - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
