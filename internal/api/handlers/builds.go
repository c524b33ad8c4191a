// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/wingedpig/buildwatch/internal/diagnostics"
	"github.com/wingedpig/buildwatch/internal/recorder"
	"github.com/wingedpig/buildwatch/internal/trends"
)

// Query defaults.
const (
	defaultFrequentLimit = 10
	defaultFrequentDays  = 30
	defaultRecentHours   = 24
)

// BuildHandler serves build history, solutions and the status report.
type BuildHandler struct {
	store      *diagnostics.Store
	recorder   *recorder.Recorder
	aggregator *trends.Aggregator
	windowDays int
}

// NewBuildHandler creates a build handler. windowDays is the trend window
// used when a request does not name one.
func NewBuildHandler(store *diagnostics.Store, rec *recorder.Recorder, agg *trends.Aggregator, windowDays int) *BuildHandler {
	if windowDays <= 0 {
		windowDays = trends.DefaultWindowDays
	}
	return &BuildHandler{store: store, recorder: rec, aggregator: agg, windowDays: windowDays}
}

// Trends returns build trends with the health band.
// GET /api/v1/builds/trends?days=7
func (h *BuildHandler) Trends(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", h.windowDays)
	if err != nil {
		WriteInvalid(w, "%v", err)
		return
	}
	t, err := h.aggregator.Trends(r.Context(), days)
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, t)
}

// Record stores a completed build.
// POST /api/v1/builds
func (h *BuildHandler) Record(w http.ResponseWriter, r *http.Request) {
	var result recorder.BuildResult
	if err := decodeBody(r, &result); err != nil {
		WriteInvalid(w, "%v", err)
		return
	}
	rec, err := h.recorder.Record(r.Context(), result)
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, rec)
}

// RecentDiagnostics returns diagnostics from recent builds.
// GET /api/v1/builds/diagnostics?hours=24
func (h *BuildHandler) RecentDiagnostics(w http.ResponseWriter, r *http.Request) {
	hours, err := intParam(r, "hours", defaultRecentHours)
	if err != nil {
		WriteInvalid(w, "%v", err)
		return
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		WriteInvalid(w, "%v", err)
		return
	}
	diags, err := h.store.RecentDiagnostics(r.Context(), hours, limit)
	if err != nil {
		WriteErr(w, err)
		return
	}
	if diags == nil {
		diags = []diagnostics.RecentDiagnostic{}
	}
	WriteJSON(w, http.StatusOK, diags)
}

// FrequentIssues returns the most frequent error fingerprints.
// GET /api/v1/issues/frequent?limit=10&days=30
func (h *BuildHandler) FrequentIssues(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultFrequentLimit)
	if err != nil {
		WriteInvalid(w, "%v", err)
		return
	}
	days, err := intParam(r, "days", defaultFrequentDays)
	if err != nil {
		WriteInvalid(w, "%v", err)
		return
	}
	issues, err := h.store.FrequentIssues(r.Context(), limit, days)
	if err != nil {
		WriteErr(w, err)
		return
	}
	if issues == nil {
		issues = []diagnostics.FrequentIssue{}
	}
	WriteJSON(w, http.StatusOK, issues)
}

// SolutionRequest is the body of POST /api/v1/solutions. Fingerprint takes
// precedence over Message.
type SolutionRequest struct {
	Message     string `json:"message,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Solution    string `json:"solution"`
	FixPattern  string `json:"fix_pattern,omitempty"`
}

// AddSolution records a fix for a diagnostic.
// POST /api/v1/solutions
func (h *BuildHandler) AddSolution(w http.ResponseWriter, r *http.Request) {
	var req SolutionRequest
	if err := decodeBody(r, &req); err != nil {
		WriteInvalid(w, "%v", err)
		return
	}
	fingerprint := req.Fingerprint
	if fingerprint == "" {
		if req.Message == "" {
			WriteInvalid(w, "message or fingerprint is required")
			return
		}
		fingerprint = diagnostics.Fingerprint(req.Message)
	}

	id, err := h.store.AddOrUpdateSolution(r.Context(), fingerprint, req.Solution, req.FixPattern)
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":                  id,
		"message_fingerprint": fingerprint,
	})
}

// BestSolution returns the highest-ranked solution for a message. Data is
// null when none is known.
// GET /api/v1/solutions/best?message=...
func (h *BuildHandler) BestSolution(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")
	if message == "" {
		WriteInvalid(w, "message is required")
		return
	}
	sol, err := h.store.BestSolutionFor(r.Context(), message)
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sol)
}

// Status returns the enhanced build status report.
// GET /api/v1/status
func (h *BuildHandler) Status(w http.ResponseWriter, r *http.Request) {
	report, err := h.aggregator.Report(r.Context())
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}
