// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routing

import "strings"

// VariantConfig describes the backend serving one variant.
//
// Two instances exist per deployment (baseline and candidate). The config
// is loaded once at process start and never mutated; hot reload is
// deliberately unsupported.
type VariantConfig struct {
	// BaseURL is the backend base address, e.g. "http://torchserve:8080".
	BaseURL string

	// ModelName is the served model alias on the backend.
	ModelName string

	// ModelVersion pins a specific model version. Empty means the
	// backend's default (unversioned) alias.
	ModelVersion string
}

// Target resolves a variant config to the concrete prediction URL.
//
// Description:
//
//	Pure function. The backend speaks the TorchServe inference URL
//	convention: {base_url}/predictions/{model_name}[/{model_version}].
//
// Outputs:
//   - string: Fully qualified prediction endpoint.
//
// Thread Safety: Stateless; safe for concurrent use.
func Target(cfg VariantConfig) string {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	target := base + "/predictions/" + cfg.ModelName
	if cfg.ModelVersion != "" {
		target += "/" + cfg.ModelVersion
	}
	return target
}
