// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for Seraphim components.
//
// Built on the standard library slog package. Services log JSON to
// stdout for collector scraping; the CLI logs human-readable text to
// stderr. Both are configured through the environment:
//
//	LOG_LEVEL  debug | info | warn | error   (default info)
//	LOG_FORMAT json | text                   (default per component)
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{Service: "gateway", JSON: true})
//	slog.SetDefault(logger)
//	slog.Info("request routed", "variant", variant)
//
// # Security Considerations
//
// This package does NOT automatically redact sensitive data. Callers
// must ensure request payloads and user identifiers are not logged
// verbatim.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Config configures a logger. The zero value logs Info+ as text to
// stderr.
type Config struct {
	// Service is attached to every record as the "service" attribute.
	Service string

	// JSON selects JSON output; text otherwise. LOG_FORMAT overrides it.
	JSON bool

	// Level is the minimum severity. LOG_LEVEL overrides it.
	Level slog.Level
}

// New builds a logger from cfg, with LOG_LEVEL and LOG_FORMAT applied
// on top.
//
// Outputs:
//   - *slog.Logger: Ready to use or install via slog.SetDefault.
func New(cfg Config) *slog.Logger {
	level := cfg.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = parseLevel(env, level)
	}

	useJSON := cfg.JSON
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		useJSON = true
	case "text":
		useJSON = false
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if useJSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With("service", cfg.Service)
	}
	return logger
}

// Setup builds a logger for the named service and installs it as the
// process default. Services use JSON output.
func Setup(service string) *slog.Logger {
	logger := New(Config{Service: service, JSON: true})
	slog.SetDefault(logger)
	return logger
}

// parseLevel maps a LOG_LEVEL string to a slog.Level, keeping the
// fallback for anything unrecognized.
func parseLevel(raw string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}
