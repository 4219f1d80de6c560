// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routing

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Override precedence
// -----------------------------------------------------------------------------

func TestSelector_OverridePrecedence(t *testing.T) {
	// Fraction 0 and a sticky key would both route to baseline; the
	// override must still win.
	s := NewSelector("salt", 0.0)

	assert.Equal(t, VariantCandidate, s.Select("candidate", "user123"))
	assert.Equal(t, VariantCandidate, s.Select("canary", "user123"))
	assert.Equal(t, VariantCandidate, s.Select("v2", "user123"))

	s = NewSelector("salt", 1.0)
	assert.Equal(t, VariantBaseline, s.Select("baseline", "user123"))
	assert.Equal(t, VariantBaseline, s.Select("control", "user123"))
	assert.Equal(t, VariantBaseline, s.Select("v1", "user123"))
}

func TestSelector_OverrideCaseInsensitive(t *testing.T) {
	s := NewSelector("salt", 0.0)

	assert.Equal(t, VariantCandidate, s.Select("CANDIDATE", ""))
	assert.Equal(t, VariantCandidate, s.Select(" Canary ", ""))
	assert.Equal(t, VariantBaseline, s.Select("Control", "user"))
}

func TestSelector_UnknownOverrideFallsThrough(t *testing.T) {
	// A bogus override value must degrade to normal routing, here the
	// sticky path with fraction 1 so the answer is always candidate.
	s := NewSelector("salt", 1.0)
	assert.Equal(t, VariantCandidate, s.Select("experimental", "user123"))

	s = NewSelector("salt", 0.0)
	assert.Equal(t, VariantBaseline, s.Select("experimental", "user123"))
}

// -----------------------------------------------------------------------------
// Sticky routing
// -----------------------------------------------------------------------------

func TestSelector_StickyDeterministic(t *testing.T) {
	s := NewSelector("salt", 0.5)

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("user%d", i)
		first := s.Select("", key)
		for j := 0; j < 10; j++ {
			assert.Equal(t, first, s.Select("", key),
				"key %q flapped between variants", key)
		}
	}
}

func TestSelector_StickyMonotonicInFraction(t *testing.T) {
	// Raising the canary fraction must never move a key that was already
	// on the candidate back to the baseline.
	low := NewSelector("salt", 0.2)
	high := NewSelector("salt", 0.6)

	for i := 0; i < 5000; i++ {
		key := fmt.Sprintf("user%d", i)
		if low.Select("", key) == VariantCandidate {
			require.Equal(t, VariantCandidate, high.Select("", key),
				"key %q was candidate at 0.2 but baseline at 0.6", key)
		}
	}
}

func TestSelector_StickyDistribution(t *testing.T) {
	s := NewSelector("salt", 0.3)

	candidates := 0
	const keys = 10000
	for i := 0; i < keys; i++ {
		if s.Select("", fmt.Sprintf("user%d", i)) == VariantCandidate {
			candidates++
		}
	}

	got := float64(candidates) / keys
	assert.InDelta(t, 0.3, got, 0.05,
		"candidate share %.4f outside [0.25, 0.35]", got)
}

func TestSelector_StickyFractionEdges(t *testing.T) {
	zero := NewSelector("salt", 0.0)
	one := NewSelector("salt", 1.0)

	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("user%d", i)
		assert.Equal(t, VariantBaseline, zero.Select("", key))
		assert.Equal(t, VariantCandidate, one.Select("", key))
	}
}

func TestSelector_SaltChangesAssignment(t *testing.T) {
	a := NewSelector("salt-a", 0.5)
	b := NewSelector("salt-b", 0.5)

	moved := 0
	for i := 0; i < 2000; i++ {
		key := fmt.Sprintf("user%d", i)
		if a.Select("", key) != b.Select("", key) {
			moved++
		}
	}
	// Roughly half of the keys should land on the other side.
	assert.Greater(t, moved, 500)
}

func TestStickyBucket_Range(t *testing.T) {
	for i := 0; i < 1000; i++ {
		bucket := StickyBucket("salt", fmt.Sprintf("user%d", i))
		require.GreaterOrEqual(t, bucket, 0)
		require.Less(t, bucket, 10000)
	}
}

// -----------------------------------------------------------------------------
// Random routing (no sticky key)
// -----------------------------------------------------------------------------

func TestSelector_RandomPathSeeded(t *testing.T) {
	src := rand.New(rand.NewSource(42))
	s := NewSelector("salt", 0.3, WithRandomSource(src.Float64))

	candidates := 0
	const draws = 10000
	for i := 0; i < draws; i++ {
		if s.Select("", "") == VariantCandidate {
			candidates++
		}
	}
	assert.InDelta(t, 0.3, float64(candidates)/draws, 0.03)
}

func TestSelector_RandomPathEdges(t *testing.T) {
	zero := NewSelector("salt", 0.0)
	one := NewSelector("salt", 1.0)

	for i := 0; i < 100; i++ {
		assert.Equal(t, VariantBaseline, zero.Select("", ""))
		assert.Equal(t, VariantCandidate, one.Select("", ""))
	}
}

func TestNewSelector_ClampsFraction(t *testing.T) {
	assert.Equal(t, 0.0, NewSelector("salt", -0.5).Fraction())
	assert.Equal(t, 1.0, NewSelector("salt", 4.2).Fraction())
}
