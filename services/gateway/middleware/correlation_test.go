// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.Use(Correlation())
	r.GET("/probe", func(c *gin.Context) {
		seen = CorrelationID(c)
		c.Status(http.StatusOK)
	})
	return r, &seen
}

func TestCorrelation_EchoesCallerID(t *testing.T) {
	r, seen := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(CorrelationHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(CorrelationHeader))
	assert.Equal(t, "req-42", *seen)
}

func TestCorrelation_MintsIDWhenAbsent(t *testing.T) {
	r, seen := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	id := w.Header().Get(CorrelationHeader)
	require.NotEmpty(t, id)
	assert.Equal(t, id, *seen)

	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}
