// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routing decides which model variant serves an inference request
// and resolves that variant to a concrete backend target.
//
// # Description
//
// Variant selection follows a strict precedence order:
//
//  1. Explicit override (a dedicated request header) always wins.
//  2. A sticky key (usually a user id) is hashed into a stable bucket so
//     the same caller keeps hitting the same variant for the lifetime of
//     the salt.
//  3. With neither present, a uniform random draw against the canary
//     fraction decides.
//
// # Thread Safety
//
// Selector is safe for concurrent use as long as the injected random
// source is; the default source is guarded by a mutex.
package routing

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Variant identifies one of the two served model identities.
type Variant string

const (
	// VariantBaseline is the currently trusted model deployment.
	VariantBaseline Variant = "baseline"

	// VariantCandidate is the model deployment under evaluation.
	VariantCandidate Variant = "candidate"
)

// bucketSpace is the resolution of the sticky-hash bucket space. A
// canary fraction maps to floor(fraction*bucketSpace) buckets, so the
// smallest addressable traffic slice is 0.01%.
const bucketSpace = 10000

// Override header values that force a variant. Matching is
// case-insensitive; anything else falls through to sticky/random routing.
var (
	candidateAliases = map[string]struct{}{"candidate": {}, "canary": {}, "v2": {}}
	baselineAliases  = map[string]struct{}{"baseline": {}, "control": {}, "v1": {}}
)

// Selector assigns a variant to each inference request.
//
// # Description
//
// Selector holds the sticky salt, the target canary fraction, and a
// pluggable random source. The random source is injectable so that
// routing-distribution tests are reproducible; production wiring uses a
// time-seeded source.
//
// # Thread Safety
//
// Safe for concurrent use.
type Selector struct {
	salt     string
	fraction float64

	mu  sync.Mutex
	rnd func() float64
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithRandomSource injects a custom uniform [0,1) source.
//
// The source is called under the Selector's mutex, so it does not need
// to be thread-safe itself.
func WithRandomSource(rnd func() float64) SelectorOption {
	return func(s *Selector) {
		if rnd != nil {
			s.rnd = rnd
		}
	}
}

// NewSelector creates a variant selector.
//
// Inputs:
//   - salt: Sticky-hash salt. Changing it reshuffles every sticky key.
//   - fraction: Target canary fraction in [0,1]. Values outside the range
//     are clamped.
//   - opts: Optional configuration.
//
// Outputs:
//   - *Selector: The new selector. Never nil.
func NewSelector(salt string, fraction float64, opts ...SelectorOption) *Selector {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := &Selector{
		salt:     salt,
		fraction: fraction,
		rnd:      src.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fraction returns the configured canary fraction.
func (s *Selector) Fraction() float64 {
	return s.fraction
}

// Select decides the variant for one request.
//
// Description:
//
//	Applies the precedence order documented on the package: override,
//	then sticky hash, then random draw. Empty strings mean "not present".
//
// Inputs:
//   - override: Raw override header value, or "".
//   - stickyKey: Caller-identifying value, or "".
//
// Outputs:
//   - Variant: VariantBaseline or VariantCandidate.
//
// Thread Safety: Safe for concurrent use.
func (s *Selector) Select(override, stickyKey string) Variant {
	if v, ok := matchOverride(override); ok {
		return v
	}

	if stickyKey != "" {
		if StickyBucket(s.salt, stickyKey) < thresholdFor(s.fraction) {
			return VariantCandidate
		}
		return VariantBaseline
	}

	s.mu.Lock()
	draw := s.rnd()
	s.mu.Unlock()
	if draw < s.fraction {
		return VariantCandidate
	}
	return VariantBaseline
}

// matchOverride maps an override value to a variant. Unknown values are
// ignored so that a typo in the header degrades to normal routing rather
// than an error.
func matchOverride(override string) (Variant, bool) {
	if override == "" {
		return "", false
	}
	normalized := strings.ToLower(strings.TrimSpace(override))
	if _, ok := candidateAliases[normalized]; ok {
		return VariantCandidate, true
	}
	if _, ok := baselineAliases[normalized]; ok {
		return VariantBaseline, true
	}
	return "", false
}

// StickyBucket computes the deterministic bucket for a sticky key.
//
// Description:
//
//	The bucket is a pure function of (salt, key): the first 16 bits of
//	sha256(salt + ":" + key), reduced modulo the bucket space. Identical
//	inputs always produce identical buckets, and buckets are uniformly
//	distributed over [0, 10000) for realistic key sets.
//
// Thread Safety: Stateless; safe for concurrent use.
func StickyBucket(salt, key string) int {
	digest := sha256.Sum256([]byte(salt + ":" + key))
	return int(binary.BigEndian.Uint16(digest[:2])) % bucketSpace
}

// thresholdFor converts a fraction into a bucket threshold. Buckets below
// the threshold route to the candidate, which makes routing monotonic in
// the fraction: raising it can only move keys toward the candidate.
func thresholdFor(fraction float64) int {
	return int(math.Floor(fraction * bucketSpace))
}
