// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net/url"

	"github.com/wingedpig/buildwatch/internal/crashes"
)

// CrashClient provides access to captured crash contexts.
type CrashClient struct {
	c *Client
}

// List returns all crashes, newest first.
func (c *CrashClient) List(ctx context.Context) ([]crashes.CrashSummary, error) {
	data, err := c.c.get(ctx, "/api/v1/crashes")
	if err != nil {
		return nil, err
	}
	return decodeList[crashes.CrashSummary](data, "crashes")
}

// Get retrieves a crash by ID.
func (c *CrashClient) Get(ctx context.Context, id string) (*crashes.CrashContext, error) {
	data, err := c.c.get(ctx, "/api/v1/crashes/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return required[crashes.CrashContext](data, "crash")
}

// Newest returns the most recent crash, or nil when none was captured.
func (c *CrashClient) Newest(ctx context.Context) (*crashes.CrashContext, error) {
	data, err := c.c.get(ctx, "/api/v1/crashes/newest")
	if err != nil {
		return nil, err
	}
	return decode[crashes.CrashContext](data, "crash")
}
