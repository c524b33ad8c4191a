// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wingedpig/buildwatch/internal/logs"
	"github.com/wingedpig/buildwatch/internal/monitor"
)

// Query defaults.
const (
	defaultLogCount   = 100
	defaultErrorCount = 50
)

// WebSocket keepalive.
const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// MonitorHandler serves the runtime log monitor.
type MonitorHandler struct {
	monitor *monitor.Monitor
}

// NewMonitorHandler creates a monitor handler.
func NewMonitorHandler(m *monitor.Monitor) *MonitorHandler {
	return &MonitorHandler{monitor: m}
}

// StartRequest is the optional body of POST /api/v1/monitor/start.
type StartRequest struct {
	BundleID string `json:"bundle_id,omitempty"`
}

// Start begins streaming runtime logs.
// POST /api/v1/monitor/start
func (h *MonitorHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := decodeBody(r, &req); err != nil {
		WriteInvalid(w, "%v", err)
		return
	}
	res, err := h.monitor.Start(r.Context(), req.BundleID)
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// Stop ends the current session.
// POST /api/v1/monitor/stop
func (h *MonitorHandler) Stop(w http.ResponseWriter, r *http.Request) {
	res, err := h.monitor.Stop(r.Context())
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// Status returns the monitor status.
// GET /api/v1/monitor/status
func (h *MonitorHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.monitor.Status())
}

// Logs returns recent log lines, oldest first.
// GET /api/v1/monitor/logs?count=100
func (h *MonitorHandler) Logs(w http.ResponseWriter, r *http.Request) {
	count, err := intParam(r, "count", defaultLogCount)
	if err != nil {
		WriteInvalid(w, "%v", err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(h.monitor.RecentLogs(count)))
}

// Errors returns recent runtime errors, oldest first.
// GET /api/v1/monitor/errors?count=50
func (h *MonitorHandler) Errors(w http.ResponseWriter, r *http.Request) {
	count, err := intParam(r, "count", defaultErrorCount)
	if err != nil {
		WriteInvalid(w, "%v", err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(h.monitor.RecentErrors(count)))
}

// Analyze summarizes buffered errors.
// GET /api/v1/monitor/analyze
func (h *MonitorHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.monitor.Analyze())
}

// Stream sends each classified line over a WebSocket. With ?backlog=N the
// last N buffered lines are sent first.
// GET /api/v1/monitor/stream
func (h *MonitorHandler) Stream(w http.ResponseWriter, r *http.Request) {
	backlog, err := intParam(r, "backlog", 0)
	if err != nil {
		WriteInvalid(w, "%v", err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Subscribe before reading the backlog so no line falls in between.
	ch := h.monitor.Subscribe()
	defer h.monitor.Unsubscribe(ch)

	var lastSeq uint64
	if backlog > 0 {
		for _, entry := range h.monitor.RecentLogs(backlog) {
			if err := conn.WriteJSON(entry); err != nil {
				return
			}
			lastSeq = entry.Sequence
		}
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case entry, ok := <-ch:
			if !ok {
				return
			}
			if entry.Sequence <= lastSeq {
				continue
			}
			if err := conn.WriteJSON(entry); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func nonNil(entries []logs.LogEntry) []logs.LogEntry {
	if entries == nil {
		return []logs.LogEntry{}
	}
	return entries
}
