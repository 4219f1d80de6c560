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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/seraphim/services/reliability/canary"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	canaryBaselinePath  string // YAML file with the baseline's metrics
	canaryCandidatePath string // YAML file with the candidate's metrics
	canaryPolicyPath    string // Optional YAML policy; default policy otherwise
	canaryJSONOutput    bool   // Output the decision as JSON
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// canaryCmd gates a canary promotion on recorded metrics.
//
// # Description
//
// Loads a baseline and a candidate metrics snapshot from YAML files,
// evaluates the candidate under the regression policy, and exits 0 on
// pass and 1 on fail. Intended to run as a CI step after a soak window.
//
// # Examples
//
//	seraphimctl canary --baseline base.yaml --candidate cand.yaml
//	seraphimctl canary --baseline base.yaml --candidate cand.yaml --policy strict.yaml --json
var canaryCmd = &cobra.Command{
	Use:   "canary",
	Short: "Evaluate a canary's metrics against the baseline",
	Long: `Compares a candidate deployment's recorded metrics against the baseline's
under a regression policy (p95 latency, error rate, optional score delta).

The command prints the decision and exits non-zero when the candidate fails,
so a CI pipeline can block the promotion directly.`,
	RunE: runCanaryCommand,
}

func init() {
	canaryCmd.Flags().StringVar(&canaryBaselinePath, "baseline", "", "YAML file with baseline metrics (required)")
	canaryCmd.Flags().StringVar(&canaryCandidatePath, "candidate", "", "YAML file with candidate metrics (required)")
	canaryCmd.Flags().StringVar(&canaryPolicyPath, "policy", "", "YAML file with the regression policy (default policy if omitted)")
	canaryCmd.Flags().BoolVar(&canaryJSONOutput, "json", false, "Print the decision as JSON")
	canaryCmd.MarkFlagRequired("baseline")
	canaryCmd.MarkFlagRequired("candidate")
	rootCmd.AddCommand(canaryCmd)
}

func runCanaryCommand(cmd *cobra.Command, _ []string) error {
	baseline, err := loadMetricsFile(canaryBaselinePath)
	if err != nil {
		return err
	}
	candidate, err := loadMetricsFile(canaryCandidatePath)
	if err != nil {
		return err
	}

	policy := canary.DefaultPolicy()
	if canaryPolicyPath != "" {
		policy, err = loadPolicyFile(canaryPolicyPath)
		if err != nil {
			return err
		}
	}

	decision := canary.Evaluate(baseline, candidate, policy)

	if canaryJSONOutput {
		out, err := json.MarshalIndent(decision, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	} else if decision.Pass {
		fmt.Fprintln(cmd.OutOrStdout(), "PASS: candidate is within policy")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "FAIL: %s\n", decision.Reason)
	}

	if !decision.Pass {
		return fmt.Errorf("canary gate failed: %s", decision.Reason)
	}
	return nil
}

// loadMetricsFile reads one variant's metrics snapshot from YAML.
func loadMetricsFile(path string) (canary.Metrics, error) {
	var m canary.Metrics
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read metrics file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse metrics file %s: %w", path, err)
	}
	return m, nil
}

// loadPolicyFile reads a regression policy from YAML. Fields absent from
// the file keep their zero value, so a partial policy is stricter, not
// looser, than the default.
func loadPolicyFile(path string) (canary.Policy, error) {
	var p canary.Policy
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read policy file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	return p, nil
}
