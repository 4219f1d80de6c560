// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package canary decides whether a candidate model deployment is safe to
// promote, by comparing its aggregated metrics against the baseline's
// under a regression policy.
//
// # Description
//
// The evaluator is a pure function over two metric snapshots: no I/O, no
// mutation, no cross-call state. That keeps it trivially testable and
// lets it compose into any promotion pipeline (CLI, cron job, CI gate).
// It judges exactly two snapshots; sequential or online statistical
// testing is out of scope.
package canary

import "fmt"

// Metrics is one variant's aggregated view over an observation window.
type Metrics struct {
	// P95LatencyMs is the 95th-percentile request latency.
	P95LatencyMs float64 `yaml:"p95_latency_ms" json:"p95_latency_ms"`

	// ErrorRate is the share of non-success outcomes in [0,1].
	ErrorRate float64 `yaml:"error_rate" json:"error_rate"`

	// Score is an optional accuracy-proxy score. Nil means no labeled
	// data was available for the window.
	Score *float64 `yaml:"score,omitempty" json:"score,omitempty"`
}

// Policy holds the regression allowances for one evaluation run.
// Immutable once constructed.
type Policy struct {
	// MaxLatencyRegressionMs is how much the candidate's p95 latency may
	// exceed the baseline's, in milliseconds. The bound is inclusive.
	MaxLatencyRegressionMs float64 `yaml:"max_latency_regression_ms" json:"max_latency_regression_ms"`

	// MaxErrorRateRegression is the allowed absolute error-rate increase.
	// The bound is inclusive.
	MaxErrorRateRegression float64 `yaml:"max_error_rate_regression" json:"max_error_rate_regression"`

	// MinScoreDelta, when set, requires the candidate's score to improve
	// on the baseline's by at least this much. Missing scores count as 0
	// for this comparison only.
	MinScoreDelta *float64 `yaml:"min_score_delta,omitempty" json:"min_score_delta,omitempty"`
}

// DefaultPolicy mirrors the allowances used in staging deployments:
// 25ms of p95 headroom and half a percentage point of error rate.
func DefaultPolicy() Policy {
	return Policy{
		MaxLatencyRegressionMs: 25,
		MaxErrorRateRegression: 0.005,
	}
}

// Decision is the outcome of one evaluation run.
type Decision struct {
	// Pass is true if every policy rule held.
	Pass bool `json:"pass" yaml:"pass"`

	// Reason describes the first violated rule. Empty when Pass is true;
	// evaluation short-circuits, so later rules are not checked.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Evaluate compares candidate metrics against the baseline under a policy.
//
// Description:
//
//	All rules must hold for a pass; the first violation fails the whole
//	evaluation with no partial credit. Comparisons are inclusive at the
//	boundary: a candidate sitting exactly at baseline + allowance passes.
//
// Inputs:
//   - baseline: Metrics of the trusted deployment.
//   - candidate: Metrics of the deployment under evaluation.
//   - policy: Regression allowances for this run.
//
// Outputs:
//   - Decision: Pass/fail with the violated rule, if any.
//
// Thread Safety: Pure function; safe for concurrent use.
func Evaluate(baseline, candidate Metrics, policy Policy) Decision {
	if candidate.P95LatencyMs > baseline.P95LatencyMs+policy.MaxLatencyRegressionMs {
		return Decision{
			Reason: fmt.Sprintf(
				"p95 latency %.2fms exceeds baseline %.2fms + allowance %.2fms",
				candidate.P95LatencyMs, baseline.P95LatencyMs, policy.MaxLatencyRegressionMs),
		}
	}

	if candidate.ErrorRate > baseline.ErrorRate+policy.MaxErrorRateRegression {
		return Decision{
			Reason: fmt.Sprintf(
				"error rate %.4f exceeds baseline %.4f + allowance %.4f",
				candidate.ErrorRate, baseline.ErrorRate, policy.MaxErrorRateRegression),
		}
	}

	if policy.MinScoreDelta != nil {
		baseScore := scoreOrZero(baseline.Score)
		candScore := scoreOrZero(candidate.Score)
		if candScore < baseScore+*policy.MinScoreDelta {
			return Decision{
				Reason: fmt.Sprintf(
					"score %.4f below baseline %.4f + required delta %.4f",
					candScore, baseScore, *policy.MinScoreDelta),
			}
		}
	}

	return Decision{Pass: true}
}

// Passes is the boolean convenience form of Evaluate.
func Passes(baseline, candidate Metrics, policy Policy) bool {
	return Evaluate(baseline, candidate, policy).Pass
}

func scoreOrZero(s *float64) float64 {
	if s == nil {
		return 0
	}
	return *s
}
