// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wingedpig/buildwatch/internal/logs"
)

func newMonitorCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Control runtime monitoring on a running buildwatch server",
	}
	cmd.AddCommand(
		newMonitorStartCmd(opts),
		newMonitorStopCmd(opts),
		newMonitorStatusCmd(opts),
		newMonitorEntriesCmd(opts, "logs", "Show recent runtime log lines", 100),
		newMonitorEntriesCmd(opts, "errors", "Show recent runtime errors", 50),
		newMonitorAnalyzeCmd(opts),
	)
	return cmd
}

func newMonitorStartCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start [bundle-id]",
		Short: "Start streaming an app's runtime logs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			bundleID := ""
			if len(args) == 1 {
				bundleID = args[0]
			}
			res, err := c.Monitor.Start(cmd.Context(), bundleID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", green(res.Status), res.BundleID)
			fmt.Fprintf(out, "  session: %s\n", res.SessionID)
			fmt.Fprintf(out, "  log:     %s\n", res.LogFile)
			return nil
		},
	}
}

func newMonitorStopCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the current monitoring session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			res, err := c.Monitor.Stop(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Status)
			if res.LogFile != "" {
				fmt.Fprintf(out, "  log:    %s\n", res.LogFile)
				fmt.Fprintf(out, "  errors: %d\n", res.ErrorsCaptured)
			}
			return nil
		},
	}
}

func newMonitorStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show monitor state and buffer sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			st, err := c.Monitor.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			state := gray(string(st.State))
			if st.Monitoring {
				state = green(string(st.State))
			}
			fmt.Fprintf(out, "State:    %s\n", state)
			if st.BundleID != "" {
				fmt.Fprintf(out, "App:      %s\n", st.BundleID)
			}
			if st.PID > 0 {
				fmt.Fprintf(out, "Process:  %d (running: %t)\n", st.PID, st.ProcessRunning)
			}
			fmt.Fprintf(out, "Logs:     %d buffered\n", st.LogsInBuffer)
			fmt.Fprintf(out, "Errors:   %d buffered\n", st.ErrorsInBuffer)
			fmt.Fprintf(out, "Crashes:  %d captured\n", st.CrashesCaptured)
			return nil
		},
	}
}

// newMonitorEntriesCmd builds the logs and errors subcommands, which only
// differ in the buffer they read.
func newMonitorEntriesCmd(opts *globalOptions, name, short string, defaultCount int) *cobra.Command {
	var (
		count  int
		format string
		tmpl   string
	)

	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outFormat, err := ParseFormat(format)
			if err != nil {
				return err
			}
			formatter, err := NewFormatter(cmd.OutOrStdout(), outFormat, tmpl)
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			var entries []logs.LogEntry
			if name == "errors" {
				entries, err = c.Monitor.Errors(cmd.Context(), count)
			} else {
				entries, err = c.Monitor.Logs(cmd.Context(), count)
			}
			if err != nil {
				return err
			}
			return formatter.FormatEntries(entries)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&count, "count", "n", defaultCount, "Number of entries")
	f.StringVarP(&format, "format", "o", "plain", "Output format: plain, json, jsonl, raw, template")
	f.StringVar(&tmpl, "template", "", "Go template for --format template, e.g. '{{.timestamp}} {{.raw}}'")
	return cmd
}

func newMonitorAnalyzeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Summarize buffered runtime errors and suggest fixes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			an, err := c.Monitor.Analyze(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if an.ErrorCount == 0 {
				fmt.Fprintln(out, an.Insights)
				return nil
			}
			fmt.Fprintf(out, "%s\n", header(fmt.Sprintf("%d runtime errors", an.ErrorCount)))
			kinds := make([]string, 0, len(an.ErrorTypes))
			for k := range an.ErrorTypes {
				kinds = append(kinds, string(k))
			}
			sort.Strings(kinds)
			for _, k := range kinds {
				fmt.Fprintf(out, "  %-14s %d\n", k, an.ErrorTypes[logs.ErrorKind(k)])
			}
			if an.MostRecent != nil {
				fmt.Fprintf(out, "Most recent: %s\n", red(an.MostRecent.Raw))
			}
			for _, s := range an.Suggestions {
				title := string(s.Kind)
				if s.Issue != "" {
					title += ": " + s.Issue
				}
				fmt.Fprintf(out, "%s\n", yellow(title))
				for _, fix := range s.Fixes {
					fmt.Fprintf(out, "  - %s\n", fix)
				}
			}
			return nil
		},
	}
}
