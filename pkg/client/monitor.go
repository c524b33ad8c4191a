// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/wingedpig/buildwatch/internal/logs"
	"github.com/wingedpig/buildwatch/internal/monitor"
)

// MonitorClient controls the runtime log monitor of a server.
//
// Only one app is monitored at a time; starting a second session while one
// is streaming returns status "already_running".
type MonitorClient struct {
	c *Client
}

// Start begins streaming runtime logs for bundleID. An empty bundleID uses
// the server's configured app.
func (m *MonitorClient) Start(ctx context.Context, bundleID string) (*monitor.StartResult, error) {
	data, err := m.c.postJSON(ctx, "/api/v1/monitor/start", map[string]string{"bundle_id": bundleID})
	if err != nil {
		return nil, err
	}
	return required[monitor.StartResult](data, "start result")
}

// Stop ends the current session.
func (m *MonitorClient) Stop(ctx context.Context) (*monitor.StopResult, error) {
	data, err := m.c.post(ctx, "/api/v1/monitor/stop")
	if err != nil {
		return nil, err
	}
	return required[monitor.StopResult](data, "stop result")
}

// Status returns the monitor state.
func (m *MonitorClient) Status(ctx context.Context) (*monitor.Status, error) {
	data, err := m.c.get(ctx, "/api/v1/monitor/status")
	if err != nil {
		return nil, err
	}
	return required[monitor.Status](data, "monitor status")
}

// Logs returns up to count recent log lines, oldest first. Zero uses the
// server default.
func (m *MonitorClient) Logs(ctx context.Context, count int) ([]logs.LogEntry, error) {
	data, err := m.c.get(ctx, countPath("/api/v1/monitor/logs", count))
	if err != nil {
		return nil, err
	}
	return decodeList[logs.LogEntry](data, "logs")
}

// Errors returns up to count recent runtime errors, oldest first.
func (m *MonitorClient) Errors(ctx context.Context, count int) ([]logs.LogEntry, error) {
	data, err := m.c.get(ctx, countPath("/api/v1/monitor/errors", count))
	if err != nil {
		return nil, err
	}
	return decodeList[logs.LogEntry](data, "errors")
}

// Analyze summarizes the buffered runtime errors.
func (m *MonitorClient) Analyze(ctx context.Context) (*monitor.Analysis, error) {
	data, err := m.c.get(ctx, "/api/v1/monitor/analyze")
	if err != nil {
		return nil, err
	}
	return required[monitor.Analysis](data, "analysis")
}

func countPath(path string, count int) string {
	if count <= 0 {
		return path
	}
	return path + "?count=" + strconv.Itoa(count)
}

// required is decode for endpoints that never return null.
func required[T any](data []byte, what string) (*T, error) {
	v, err := decode[T](data, what)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("empty %s", what)
	}
	return v, nil
}
