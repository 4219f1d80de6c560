// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dispatch sends one inference request to a resolved backend with
// a hard timeout and a deterministic local fallback.
//
// # Description
//
// The dispatcher never raises backend failures to its caller: every call
// returns a prediction (real or fallback) plus an outcome classification,
// and emits exactly one outcome record regardless of the branch taken.
// Only configuration errors are fatal, and only at startup, never per
// request.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/seraphim/services/gateway/observability"
	"github.com/AleutianAI/seraphim/services/gateway/routing"
)

var tracer = otel.Tracer("seraphim.gateway.dispatch")

// DefaultTimeout bounds the single outbound attempt. There is no retry:
// one attempt, then the deterministic fallback.
const DefaultTimeout = 300 * time.Millisecond

// predictionFields are the body fields a structured backend response may
// carry the prediction under, in lookup order.
var predictionFields = []string{"prediction", "output"}

// Result is what one dispatch returns to the request handler.
type Result struct {
	// Prediction is the backend's answer, or the deterministic fallback
	// when the backend could not be reached in time.
	Prediction string

	// Outcome classifies how the call ended.
	Outcome observability.Outcome

	// Latency is the measured dispatch duration.
	Latency time.Duration

	// Fallback is true when Prediction was computed locally.
	Fallback bool
}

// Dispatcher issues outbound prediction calls.
//
// # Thread Safety
//
// Safe for concurrent use; the underlying http.Client is shared.
type Dispatcher struct {
	client   *http.Client
	timeout  time.Duration
	recorder observability.Recorder
}

// New creates a dispatcher.
//
// Inputs:
//   - timeout: Hard per-call deadline. Non-positive means DefaultTimeout.
//   - recorder: Sink that receives exactly one OutcomeRecord per call.
//     Must not be nil.
//
// Outputs:
//   - *Dispatcher: The new dispatcher. Never nil.
func New(timeout time.Duration, recorder observability.Recorder) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		// The per-call context carries the deadline; the client itself
		// stays unbounded so cancellation semantics come from ctx alone.
		client:   &http.Client{},
		timeout:  timeout,
		recorder: recorder,
	}
}

// Dispatch sends the payload to the resolved target.
//
// Description:
//
//	Issues a single POST with the configured timeout. On success the
//	backend's prediction is extracted from the body (JSON "prediction"
//	or "output" field, or the raw text for non-JSON responses). On any
//	failure the outcome is classified and the deterministic fallback
//	prediction is returned instead; the caller always gets an answer.
//	If the inbound ctx is cancelled, the in-flight call is cancelled too,
//	but the fallback path still completes and records its outcome.
//
// Inputs:
//   - ctx: Inbound request context; cancellation propagates.
//   - variant: The variant serving this request (for the outcome record).
//   - target: Resolved prediction URL.
//   - payload: Raw request text.
//
// Outputs:
//   - Result: Prediction plus outcome classification. Never an error.
//
// Thread Safety: Safe for concurrent use.
func (d *Dispatcher) Dispatch(ctx context.Context, variant routing.Variant, target, payload string) Result {
	ctx, span := tracer.Start(ctx, "Dispatcher.Dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("inference.variant", string(variant)),
		attribute.String("inference.target", target),
	)

	start := time.Now()
	prediction, outcome, callErr := d.call(ctx, target, payload)
	if callErr != nil {
		span.RecordError(callErr)
		span.SetStatus(codes.Error, string(outcome))
	}

	result := Result{
		Prediction: prediction,
		Outcome:    outcome,
		Latency:    time.Since(start),
	}
	if outcome != observability.OutcomeSuccess {
		result.Prediction = FallbackPrediction(payload)
		result.Fallback = true
		slog.Warn("serving fallback prediction",
			"variant", variant, "outcome", outcome, "target", target)
	}

	span.SetAttributes(
		attribute.String("inference.outcome", string(outcome)),
		attribute.Bool("inference.fallback", result.Fallback),
	)

	// Exactly one record per call, whatever branch was taken.
	d.recorder.Record(observability.OutcomeRecord{
		Variant: variant,
		Outcome: outcome,
		Latency: result.Latency,
	})

	return result
}

// call performs the outbound attempt and classifies the outcome. The
// returned error is for span recording only; callers must not surface it.
func (d *Dispatcher) call(ctx context.Context, target, payload string) (string, observability.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(payload))
	if err != nil {
		slog.Error("failed to build backend request", "target", target, "error", err)
		return "", observability.OutcomeUnexpectedError, err
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", classifyTransportError(err), err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("failed to read backend response", "target", target, "error", err)
		return "", classifyTransportError(err), err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("backend returned an error status",
			"target", target, "status_code", resp.StatusCode)
		return "", observability.OutcomeUpstreamError,
			fmt.Errorf("backend status %d", resp.StatusCode)
	}

	prediction, err := extractPrediction(resp.Header.Get("Content-Type"), body)
	if err != nil {
		slog.Error("failed to parse backend response", "target", target, "error", err)
		return "", observability.OutcomeUnexpectedError, err
	}
	return prediction, observability.OutcomeSuccess, nil
}

// classifyTransportError separates deadline expiry from other transport
// failures. Everything that is not a timeout is unexpected.
func classifyTransportError(err error) observability.Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return observability.OutcomeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return observability.OutcomeTimeout
	}
	return observability.OutcomeUnexpectedError
}

// extractPrediction resolves the response body to a prediction string
// once, based on the declared content type. Structured bodies must carry
// one of the known prediction fields; anything else is the raw text.
func extractPrediction(contentType string, body []byte) (string, error) {
	if !strings.Contains(contentType, "application/json") {
		return string(body), nil
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal backend body: %w", err)
	}

	for _, field := range predictionFields {
		if v, ok := parsed[field]; ok {
			if s, ok := v.(string); ok {
				return s, nil
			}
			return fmt.Sprintf("%v", v), nil
		}
	}
	return "", fmt.Errorf("backend body has none of the fields %v", predictionFields)
}

// FallbackPrediction computes the deterministic, backend-independent
// prediction for a payload: a parity function over the payload length,
// so repeats of the same input are reproducible without any backend.
func FallbackPrediction(payload string) string {
	if len(payload)%2 == 0 {
		return "positive"
	}
	return "negative"
}
