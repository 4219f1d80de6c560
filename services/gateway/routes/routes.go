// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/seraphim/services/gateway/config"
	"github.com/AleutianAI/seraphim/services/gateway/dispatch"
	"github.com/AleutianAI/seraphim/services/gateway/handlers"
	"github.com/AleutianAI/seraphim/services/gateway/observability"
	"github.com/AleutianAI/seraphim/services/gateway/routing"
	"github.com/AleutianAI/seraphim/services/reliability/canary"
)

func SetupRoutes(router *gin.Engine, cfg *config.Config, selector *routing.Selector,
	dispatcher *dispatch.Dispatcher, agg *observability.Aggregator) {

	router.GET("/healthz", handlers.HandleHealthz())
	router.GET("/readyz", handlers.HandleReadyz(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/predict", handlers.HandlePredict(cfg, selector, dispatcher))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/predict", handlers.HandlePredict(cfg, selector, dispatcher))
		v1.GET("/canary/status", handlers.HandleCanaryStatus(agg, canary.DefaultPolicy()))
	}
}
