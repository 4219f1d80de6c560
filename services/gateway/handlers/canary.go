// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/seraphim/services/gateway/observability"
	"github.com/AleutianAI/seraphim/services/gateway/routing"
	"github.com/AleutianAI/seraphim/services/reliability/canary"
)

// CanaryStatusResponse reports live per-variant aggregates plus the
// promotion decision the default policy would make right now.
type CanaryStatusResponse struct {
	Baseline  observability.Snapshot `json:"baseline"`
	Candidate observability.Snapshot `json:"candidate"`
	Decision  canary.Decision        `json:"decision"`
}

// HandleCanaryStatus evaluates the candidate against the baseline using
// the in-process aggregates. Advisory only: this endpoint never shifts
// traffic by itself.
func HandleCanaryStatus(agg *observability.Aggregator, policy canary.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		baseline := agg.Snapshot(routing.VariantBaseline)
		candidate := agg.Snapshot(routing.VariantCandidate)

		c.JSON(http.StatusOK, CanaryStatusResponse{
			Baseline:  baseline,
			Candidate: candidate,
			Decision:  canary.Evaluate(baseline.CanaryMetrics(), candidate.CanaryMetrics(), policy),
		})
	}
}
