// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wingedpig/buildwatch/internal/crashes"
)

// CrashesHandler handles crash-related API requests.
type CrashesHandler struct {
	manager *crashes.Manager
}

// NewCrashesHandler creates a new crashes handler.
func NewCrashesHandler(mgr *crashes.Manager) *CrashesHandler {
	return &CrashesHandler{manager: mgr}
}

// List returns crash summaries, newest first.
// GET /api/v1/crashes
func (h *CrashesHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.manager.List()
	if err != nil {
		WriteErr(w, err)
		return
	}
	if summaries == nil {
		summaries = []crashes.CrashSummary{}
	}
	WriteJSON(w, http.StatusOK, summaries)
}

// Get returns a specific crash by ID.
// GET /api/v1/crashes/{id}
func (h *CrashesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	crash, err := h.manager.Get(id)
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, crash)
}

// Newest returns the most recent crash. Data is null when none exist.
// GET /api/v1/crashes/newest
func (h *CrashesHandler) Newest(w http.ResponseWriter, r *http.Request) {
	crash, err := h.manager.Newest()
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, crash)
}
