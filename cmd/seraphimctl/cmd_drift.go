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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/seraphim/services/reliability/drift"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	driftReferencePath string  // YAML file with reference samples
	driftLivePath      string  // YAML file with live samples
	driftCosineMax     float64 // p95 cosine-distance threshold
	driftKLMax         float64 // KL divergence threshold
)

// vectorSet is the on-disk format for drift inputs: one row per sample.
type vectorSet struct {
	Vectors [][]float64 `yaml:"vectors"`
}

// distribution is the on-disk format for KL inputs: one probability mass
// per bin, same binning on both sides.
type distribution struct {
	Probabilities []float64 `yaml:"probabilities"`
}

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Check recorded samples for distribution drift",
}

// driftCosineCmd compares paired embedding vectors.
//
// # Description
//
// Loads two equally-sized vector sets, computes the per-pair cosine
// distance, and fails when the 95th percentile exceeds the threshold.
// A single outlying pair cannot trip the check on its own.
var driftCosineCmd = &cobra.Command{
	Use:   "cosine",
	Short: "Compare paired embedding vectors by p95 cosine distance",
	RunE:  runDriftCosineCommand,
}

// driftKLCmd compares two binned output distributions.
var driftKLCmd = &cobra.Command{
	Use:   "kl",
	Short: "Compare binned output distributions by KL divergence",
	RunE:  runDriftKLCommand,
}

func init() {
	driftCmd.PersistentFlags().StringVar(&driftReferencePath, "reference", "", "YAML file with reference samples (required)")
	driftCmd.PersistentFlags().StringVar(&driftLivePath, "live", "", "YAML file with live samples (required)")
	driftCmd.MarkPersistentFlagRequired("reference")
	driftCmd.MarkPersistentFlagRequired("live")

	driftCosineCmd.Flags().Float64Var(&driftCosineMax, "threshold", drift.DefaultCosineThreshold, "Maximum allowed p95 cosine distance")
	driftKLCmd.Flags().Float64Var(&driftKLMax, "threshold", 0.1, "Maximum allowed KL divergence")

	driftCmd.AddCommand(driftCosineCmd)
	driftCmd.AddCommand(driftKLCmd)
	rootCmd.AddCommand(driftCmd)
}

func runDriftCosineCommand(cmd *cobra.Command, _ []string) error {
	reference, err := loadVectorSet(driftReferencePath)
	if err != nil {
		return err
	}
	live, err := loadVectorSet(driftLivePath)
	if err != nil {
		return err
	}

	report, err := drift.DetectCosineDrift(reference.Vectors, live.Vectors, driftCosineMax)
	if err != nil {
		return fmt.Errorf("cosine drift check: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "pairs=%d p95_distance=%.4f threshold=%.4f\n",
		len(report.Distances), report.P95Distance, report.Threshold)
	if report.Drifted {
		return fmt.Errorf("embedding drift detected: p95 distance %.4f exceeds %.4f",
			report.P95Distance, report.Threshold)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "PASS: no embedding drift")
	return nil
}

func runDriftKLCommand(cmd *cobra.Command, _ []string) error {
	reference, err := loadDistribution(driftReferencePath)
	if err != nil {
		return err
	}
	live, err := loadDistribution(driftLivePath)
	if err != nil {
		return err
	}

	// KLDivergence is directional: (reference, current), always.
	divergence, err := drift.KLDivergence(reference.Probabilities, live.Probabilities)
	if err != nil {
		return fmt.Errorf("kl drift check: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "kl_divergence=%.6f threshold=%.6f\n", divergence, driftKLMax)
	if divergence > driftKLMax {
		return fmt.Errorf("output drift detected: KL divergence %.6f exceeds %.6f",
			divergence, driftKLMax)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "PASS: no output drift")
	return nil
}

func loadVectorSet(path string) (vectorSet, error) {
	var vs vectorSet
	data, err := os.ReadFile(path)
	if err != nil {
		return vs, fmt.Errorf("read vector file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &vs); err != nil {
		return vs, fmt.Errorf("parse vector file %s: %w", path, err)
	}
	return vs, nil
}

func loadDistribution(path string) (distribution, error) {
	var d distribution
	data, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("read distribution file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("parse distribution file %s: %w", path, err)
	}
	return d, nil
}
