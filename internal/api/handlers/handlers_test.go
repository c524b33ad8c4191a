// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/buildwatch/internal/diagnostics"
	"github.com/wingedpig/buildwatch/internal/monitor"
)

func TestWriteErr(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid", fmt.Errorf("%w: bad status", diagnostics.ErrInvalidArgument), http.StatusBadRequest, "invalid_argument"},
		{"referential", &diagnostics.ReferentialError{BuildEventID: 9}, http.StatusUnprocessableEntity, "referential_error"},
		{"storage", &diagnostics.StorageError{Op: "insert", Err: errors.New("disk full")}, http.StatusServiceUnavailable, "storage_error"},
		{"spawn", &monitor.ProcessSpawnError{Err: errors.New("no such file")}, http.StatusBadGateway, "process_spawn_error"},
		{"not found", fmt.Errorf("read: %w", os.ErrNotExist), http.StatusNotFound, "not_found"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteErr(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.err.Error(), resp.Error.Message)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]int{"id": 3})

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Data map[string]int `json:"data"`
		Meta *MetaInfo      `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Data["id"])
	require.NotNil(t, resp.Meta)
	assert.False(t, resp.Meta.Timestamp.IsZero())
}

func TestIntParam(t *testing.T) {
	req := httptest.NewRequest("GET", "/x?days=14&bad=x&neg=-2", nil)

	n, err := intParam(req, "days", 7)
	require.NoError(t, err)
	assert.Equal(t, 14, n)

	n, err = intParam(req, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = intParam(req, "bad", 7)
	assert.Error(t, err)
	_, err = intParam(req, "neg", 7)
	assert.Error(t, err)
}

func TestDecodeBody(t *testing.T) {
	var req StartRequest

	r := httptest.NewRequest("POST", "/x", nil)
	require.NoError(t, decodeBody(r, &req))
	assert.Empty(t, req.BundleID)

	r = httptest.NewRequest("POST", "/x", strings.NewReader(`{"bundle_id":"com.example.app"}`))
	require.NoError(t, decodeBody(r, &req))
	assert.Equal(t, "com.example.app", req.BundleID)

	r = httptest.NewRequest("POST", "/x", strings.NewReader(`{"bundle":"x"}`))
	assert.Error(t, decodeBody(r, &req))

	r = httptest.NewRequest("POST", "/x", strings.NewReader(`{`))
	assert.Error(t, decodeBody(r, &req))
}
