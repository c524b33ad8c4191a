// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wingedpig/buildwatch/pkg/client"
)

func newEventsCmd(opts *globalOptions) *cobra.Command {
	var (
		types []string
		limit int
		since time.Duration
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent build and monitor events from a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			listOpts := &client.ListOptions{Limit: limit, Types: types}
			if since > 0 {
				listOpts.Since = time.Now().Add(-since)
			}
			evts, err := c.Events.List(cmd.Context(), listOpts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range evts {
				keys := make([]string, 0, len(e.Payload))
				for k := range e.Payload {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				fields := make([]string, 0, len(keys))
				for _, k := range keys {
					fields = append(fields, fmt.Sprintf("%s=%v", k, e.Payload[k]))
				}
				fmt.Fprintf(out, "%s %-20s %s\n",
					gray(e.Timestamp.Local().Format("15:04:05")), e.Type, strings.Join(fields, " "))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&types, "type", "t", nil, "Event type or pattern, e.g. build.* (repeatable)")
	f.IntVarP(&limit, "limit", "n", 50, "Maximum number of events")
	f.DurationVar(&since, "since", 0, "Only events newer than this, e.g. 1h")
	return cmd
}
