// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wingedpig/buildwatch/internal/app"
	"github.com/wingedpig/buildwatch/internal/crashes"
)

func newCrashesCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crashes",
		Short: "List and inspect captured crash contexts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				list, err := a.CrashManager().List()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No crashes captured")
					return nil
				}
				for _, c := range list {
					fmt.Fprintf(out, "%s  %s  %s %s\n",
						c.ID, c.Timestamp.Local().Format("2006-01-02 15:04:05"), yellow("["+string(c.ErrorKind)+"]"), c.Error)
				}
				return nil
			})
		},
	}
	cmd.AddCommand(newCrashShowCmd(opts, "show <id>", "Show a crash context", cobra.ExactArgs(1)))
	cmd.AddCommand(newCrashShowCmd(opts, "newest", "Show the most recent crash context", cobra.NoArgs))
	return cmd
}

func newCrashShowCmd(opts *globalOptions, use, short string, args cobra.PositionalArgs) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				var (
					crash *crashes.CrashContext
					err   error
				)
				if len(args) == 1 {
					crash, err = a.CrashManager().Get(args[0])
				} else {
					crash, err = a.CrashManager().Newest()
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if crash == nil {
					fmt.Fprintln(out, "No crashes captured")
					return nil
				}
				if asJSON {
					return writeJSON(out, crash)
				}
				printCrash(out, crash)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the full crash context as JSON")
	return cmd
}

func printCrash(w io.Writer, c *crashes.CrashContext) {
	fmt.Fprintf(w, "%s\n", header("Crash "+c.ID))
	fmt.Fprintf(w, "  App:      %s\n", c.BundleID)
	fmt.Fprintf(w, "  Time:     %s\n", c.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Trigger:  %s\n", red(c.TriggeringError.Raw))
	fmt.Fprintf(w, "  Log file: %s\n", c.SourceLogPath)
	fmt.Fprintf(w, "  Buffered: %d logs, %d errors\n", c.Summary.TotalLogs, c.Summary.TotalErrors)

	if len(c.RecentErrors) > 0 {
		fmt.Fprintf(w, "%s\n", header("Recent errors"))
		for _, e := range c.RecentErrors {
			fmt.Fprintf(w, "  %s %s\n", yellow("["+string(e.ErrorKind)+"]"), e.Raw)
		}
	}
}
