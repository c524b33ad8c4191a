// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/wingedpig/buildwatch/internal/events"
)

// EventClient provides access to the event history.
//
// Access this client through [Client.Events]:
//
//	evts, err := client.Events.List(ctx, &client.ListOptions{Types: []string{"build.*"}})
type EventClient struct {
	c *Client
}

// ListOptions configures event listing.
type ListOptions struct {
	// Limit is the maximum number of events to return.
	Limit int

	// Types filters by event type; patterns like "monitor.*" are allowed.
	Types []string

	// Since filters to events after this time.
	Since time.Time

	// Until filters to events before this time.
	Until time.Time
}

// List returns events from the history, oldest first. Limit keeps the
// newest matches.
func (e *EventClient) List(ctx context.Context, opts *ListOptions) ([]events.Event, error) {
	params := url.Values{}
	if opts != nil {
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		for _, t := range opts.Types {
			params.Add("type", t)
		}
		if !opts.Since.IsZero() {
			params.Set("since", opts.Since.Format(time.RFC3339))
		}
		if !opts.Until.IsZero() {
			params.Set("until", opts.Until.Format(time.RFC3339))
		}
	}

	data, err := e.c.get(ctx, withQuery("/api/v1/events", params))
	if err != nil {
		return nil, err
	}
	return decodeList[events.Event](data, "events")
}
