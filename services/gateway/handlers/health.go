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
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/seraphim/services/gateway/config"
	"github.com/AleutianAI/seraphim/services/gateway/routing"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// readyProbeTimeout bounds the backend ping so a wedged backend cannot
// hang the readiness probe itself.
const readyProbeTimeout = 2 * time.Second

// HandleHealthz reports process liveness. It never touches the backend.
func HandleHealthz() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "version": Version})
	}
}

// HandleReadyz reports whether the gateway can serve real predictions
// by pinging the baseline backend. 503 until the backend answers.
func HandleReadyz(cfg *config.Config) gin.HandlerFunc {
	client := &http.Client{Timeout: readyProbeTimeout}
	return func(c *gin.Context) {
		pingURL := cfg.Variants[routing.VariantBaseline].BaseURL + "/ping"
		req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, pingURL, nil)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "error": err.Error()})
			return
		}
		resp, err := client.Do(req)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "error": err.Error()})
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready": false, "backend_status": resp.StatusCode,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ready": true, "backend": "healthy"})
	}
}
