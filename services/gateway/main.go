// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/seraphim/pkg/logging"
	"github.com/AleutianAI/seraphim/services/gateway/config"
	"github.com/AleutianAI/seraphim/services/gateway/dispatch"
	"github.com/AleutianAI/seraphim/services/gateway/middleware"
	"github.com/AleutianAI/seraphim/services/gateway/observability"
	"github.com/AleutianAI/seraphim/services/gateway/routes"
	"github.com/AleutianAI/seraphim/services/gateway/routing"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "seraphim-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("seraphim-gateway")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	logging.Setup("seraphim-gateway")

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Could not load the gateway configuration: %v", err)
	}
	slog.Info("gateway configuration loaded",
		"canary_fraction", cfg.CanaryFraction,
		"dispatch_timeout", cfg.DispatchTimeout,
		"baseline_model", cfg.Variants[routing.VariantBaseline].ModelName,
		"candidate_model", cfg.Variants[routing.VariantCandidate].ModelName)

	// Wire the two outcome sinks: in-process aggregates for the canary
	// status endpoint, Prometheus for scraping.
	aggregator := observability.NewAggregator()
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	recorder := observability.MultiRecorder(aggregator, metrics)

	selector := routing.NewSelector(cfg.StickySalt, cfg.CanaryFraction)
	dispatcher := dispatch.New(cfg.DispatchTimeout, recorder)

	router := gin.Default()
	router.Use(otelgin.Middleware("seraphim-gateway"))
	router.Use(middleware.Correlation())

	routes.SetupRoutes(router, cfg, selector, dispatcher, aggregator)

	slog.Info("starting the gateway server", "addr", cfg.Addr())
	if err := router.Run(cfg.Addr()); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
