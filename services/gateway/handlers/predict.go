// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers holds the gateway's HTTP endpoints.
package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/seraphim/services/gateway/config"
	"github.com/AleutianAI/seraphim/services/gateway/dispatch"
	"github.com/AleutianAI/seraphim/services/gateway/routing"
)

// PredictResponse is the body returned for every successful prediction,
// fallback or not. The caller can tell which variant served them and
// how long the dispatch took.
type PredictResponse struct {
	Prediction   string  `json:"prediction"`
	ModelVariant string  `json:"model_variant"`
	ModelVersion string  `json:"model_version,omitempty"`
	LatencyMs    float64 `json:"latency_ms"`
	Fallback     bool    `json:"fallback,omitempty"`
}

// HandlePredict routes one prediction request.
//
// Description:
//
//	Reads the raw text payload, selects a variant (explicit header
//	override, then sticky identity, then the configured random split),
//	resolves that variant's backend URL, and dispatches. The response is
//	always 200 with a prediction: backend failures surface only through
//	the fallback flag, never as an error status. An empty or unreadable
//	body is the one client error, 400.
func HandlePredict(cfg *config.Config, selector *routing.Selector, dispatcher *dispatch.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil || len(body) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "request body is required"})
			return
		}
		payload := string(body)

		variant := selector.Select(
			c.GetHeader(cfg.CanaryHeader),
			c.GetHeader(cfg.StickyHeader),
		)
		variantCfg, ok := cfg.Variants[variant]
		if !ok {
			// Variants map is built at startup for both variants, so this
			// means the config was mutated after load.
			slog.Error("no backend configured for variant", "variant", variant)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "variant not configured"})
			return
		}

		result := dispatcher.Dispatch(c.Request.Context(), variant, routing.Target(variantCfg), payload)

		c.JSON(http.StatusOK, PredictResponse{
			Prediction:   result.Prediction,
			ModelVariant: string(variant),
			ModelVersion: variantCfg.ModelVersion,
			LatencyMs:    float64(result.Latency.Microseconds()) / 1000.0,
			Fallback:     result.Fallback,
		})
	}
}
