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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTarget(t *testing.T) {
	tests := []struct {
		name string
		cfg  VariantConfig
		want string
	}{
		{
			name: "unversioned model uses default alias",
			cfg: VariantConfig{
				BaseURL:   "http://torchserve:8080",
				ModelName: "custom-text",
			},
			want: "http://torchserve:8080/predictions/custom-text",
		},
		{
			name: "versioned model pins the version",
			cfg: VariantConfig{
				BaseURL:      "http://torchserve:8080",
				ModelName:    "custom-text",
				ModelVersion: "2.0",
			},
			want: "http://torchserve:8080/predictions/custom-text/2.0",
		},
		{
			name: "trailing slash on base URL is trimmed",
			cfg: VariantConfig{
				BaseURL:      "http://torchserve:8080/",
				ModelName:    "custom-text",
				ModelVersion: "1.0",
			},
			want: "http://torchserve:8080/predictions/custom-text/1.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Target(tt.cfg))
		})
	}
}
