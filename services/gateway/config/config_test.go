// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/seraphim/services/gateway/routing"
)

func TestLoad_RequiresBackendURL(t *testing.T) {
	t.Setenv("TS_URL", "")
	_, err := Load()
	require.ErrorIs(t, err, ErrMissingBackendURL)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TS_URL", "http://torchserve:8080")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultCanaryFraction, cfg.CanaryFraction)
	assert.Equal(t, DefaultStickySalt, cfg.StickySalt)
	assert.Equal(t, DefaultCanaryHeader, cfg.CanaryHeader)
	assert.Equal(t, DefaultStickyHeader, cfg.StickyHeader)
	assert.Equal(t, DefaultDispatchTimeout, cfg.DispatchTimeout)

	baseline := cfg.Variants[routing.VariantBaseline]
	assert.Equal(t, "http://torchserve:8080", baseline.BaseURL)
	assert.Equal(t, DefaultModelName, baseline.ModelName)
	assert.Empty(t, baseline.ModelVersion)
}

func TestLoad_PerVariantOverrides(t *testing.T) {
	t.Setenv("TS_URL", "http://torchserve:8080")
	t.Setenv("MODEL_NAME", "sentiment")
	t.Setenv("MODEL_NAME_CANDIDATE", "sentiment-next")
	t.Setenv("MODEL_VERSION_BASELINE", "1.0")
	t.Setenv("MODEL_VERSION_CANDIDATE", "2.0")
	t.Setenv("CANARY_PERCENT", "25")
	t.Setenv("TS_TIMEOUT_MS", "750")
	t.Setenv("GATEWAY_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sentiment", cfg.Variants[routing.VariantBaseline].ModelName)
	assert.Equal(t, "sentiment-next", cfg.Variants[routing.VariantCandidate].ModelName)
	assert.Equal(t, "1.0", cfg.Variants[routing.VariantBaseline].ModelVersion)
	assert.Equal(t, "2.0", cfg.Variants[routing.VariantCandidate].ModelVersion)
	assert.InDelta(t, 0.25, cfg.CanaryFraction, 1e-9)
	assert.Equal(t, 750*time.Millisecond, cfg.DispatchTimeout)
	assert.Equal(t, ":9000", cfg.Addr())
}

func TestLoad_BadTimeoutFallsBack(t *testing.T) {
	t.Setenv("TS_URL", "http://torchserve:8080")
	t.Setenv("TS_TIMEOUT_MS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultDispatchTimeout, cfg.DispatchTimeout)
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		def  float64
		want float64
	}{
		{"empty uses default", "", 0.05, 0.05},
		{"fraction passes through", "0.1", 0, 0.1},
		{"percentage divided", "10", 0, 0.1},
		{"fifty percent", "50", 0, 0.5},
		{"exactly one is full traffic", "1", 0, 1.0},
		{"one point zero is full traffic", "1.0", 0, 1.0},
		{"over one hundred clamps", "250", 0, 1.0},
		{"garbage uses default", "lots", 0.02, 0.02},
		{"negative uses default", "-5", 0.02, 0.02},
		{"zero stays zero", "0", 0.5, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParsePercent(tt.raw, tt.def), 1e-9)
		})
	}
}
