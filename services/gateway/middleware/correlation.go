// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware holds gin middleware shared across gateway routes.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CorrelationHeader carries the request correlation ID end to end.
const CorrelationHeader = "X-Correlation-Id"

// correlationKey is the gin context key the ID is stored under.
const correlationKey = "correlation_id"

// Correlation accepts a caller-supplied correlation ID or mints one, and
// echoes it back on the response so clients can stitch logs together.
func Correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(correlationKey, id)
		c.Writer.Header().Set(CorrelationHeader, id)

		// Stamp the request span (created by otelgin upstream) so traces
		// and client-visible IDs line up.
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			span.SetAttributes(attribute.String("request.correlation_id", id))
		}

		c.Next()
	}
}

// CorrelationID returns the request's correlation ID, or empty if the
// middleware did not run.
func CorrelationID(c *gin.Context) string {
	return c.GetString(correlationKey)
}
