// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the gateway configuration from the environment.
//
// All knobs have defaults except TS_URL, the serving backend base URL,
// which is required. Bad values never crash request handling: they are
// rejected at load time or replaced with defaults and logged.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/seraphim/services/gateway/routing"
)

// ErrMissingBackendURL is returned when TS_URL is not set. The gateway
// cannot route anything without a backend.
var ErrMissingBackendURL = errors.New("TS_URL environment variable is required")

// Defaults for everything the environment can override.
const (
	DefaultPort            = "8080"
	DefaultModelName       = "custom-text"
	DefaultCanaryFraction  = 0.0
	DefaultStickySalt      = "seraphim"
	DefaultCanaryHeader    = "X-Canary"
	DefaultStickyHeader    = "X-User-Id"
	DefaultDispatchTimeout = 300 * time.Millisecond
)

// Config holds everything the gateway needs at startup.
type Config struct {
	// Port is the listen port, without the colon.
	Port string

	// CanaryFraction is the share of unpinned traffic sent to the
	// candidate, in [0, 1].
	CanaryFraction float64

	// StickySalt perturbs the sticky-routing hash so a cohort can be
	// reshuffled without changing the fraction.
	StickySalt string

	// CanaryHeader and StickyHeader name the request headers consulted
	// for explicit variant overrides and sticky identity.
	CanaryHeader string
	StickyHeader string

	// DispatchTimeout bounds each outbound backend call.
	DispatchTimeout time.Duration

	// Variants maps each variant to the backend serving it.
	Variants map[routing.Variant]routing.VariantConfig
}

// Load reads the gateway configuration from the environment.
//
// Description:
//
//	TS_URL is required and fatal if absent. MODEL_NAME sets the default
//	model for both variants; MODEL_NAME_BASELINE / MODEL_NAME_CANDIDATE
//	and MODEL_VERSION_BASELINE / MODEL_VERSION_CANDIDATE refine it per
//	variant. CANARY_PERCENT accepts either a fraction ("0.1") or a
//	percentage ("10"); unparseable values fall back to the default with
//	a warning.
//
// Outputs:
//   - *Config: The loaded configuration.
//   - error: ErrMissingBackendURL when TS_URL is unset.
func Load() (*Config, error) {
	baseURL := strings.TrimSpace(os.Getenv("TS_URL"))
	if baseURL == "" {
		return nil, ErrMissingBackendURL
	}

	modelName := getEnvOr("MODEL_NAME", DefaultModelName)

	cfg := &Config{
		Port:            getEnvOr("GATEWAY_PORT", DefaultPort),
		CanaryFraction:  ParsePercent(os.Getenv("CANARY_PERCENT"), DefaultCanaryFraction),
		StickySalt:      getEnvOr("CANARY_STICKY_SALT", DefaultStickySalt),
		CanaryHeader:    getEnvOr("CANARY_HEADER", DefaultCanaryHeader),
		StickyHeader:    getEnvOr("STICKY_HEADER", DefaultStickyHeader),
		DispatchTimeout: timeoutFromEnv(),
		Variants: map[routing.Variant]routing.VariantConfig{
			routing.VariantBaseline: {
				BaseURL:      baseURL,
				ModelName:    getEnvOr("MODEL_NAME_BASELINE", modelName),
				ModelVersion: os.Getenv("MODEL_VERSION_BASELINE"),
			},
			routing.VariantCandidate: {
				BaseURL:      baseURL,
				ModelName:    getEnvOr("MODEL_NAME_CANDIDATE", modelName),
				ModelVersion: os.Getenv("MODEL_VERSION_CANDIDATE"),
			},
		},
	}
	return cfg, nil
}

// ParsePercent interprets a canary share from the environment.
//
// Description:
//
//	Values above 1.0 are treated as percentages and divided by 100, so
//	"10" and "0.1" both mean ten percent. The result is clamped to 1.
//	Unparseable or negative input yields def with a warning. Note the
//	convention's edge: "1" means one hundred percent, same as "1.0".
//
// Inputs:
//   - raw: The environment value, possibly empty.
//   - def: The fraction to use when raw is absent or invalid.
//
// Outputs:
//   - float64: A fraction in [0, 1].
func ParsePercent(raw string, def float64) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		slog.Warn("invalid canary percent, using default",
			"raw", raw, "default", def)
		return def
	}
	if v > 1.0 {
		v = v / 100.0
	}
	if v > 1.0 {
		v = 1.0
	}
	return v
}

// timeoutFromEnv reads TS_TIMEOUT_MS, falling back to the default on
// absence or garbage.
func timeoutFromEnv() time.Duration {
	raw := strings.TrimSpace(os.Getenv("TS_TIMEOUT_MS"))
	if raw == "" {
		return DefaultDispatchTimeout
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		slog.Warn("invalid TS_TIMEOUT_MS, using default",
			"raw", raw, "default", DefaultDispatchTimeout)
		return DefaultDispatchTimeout
	}
	return time.Duration(ms) * time.Millisecond
}

// getEnvOr returns the environment variable value or the fallback.
func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%s", c.Port)
}
