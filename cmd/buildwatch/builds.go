// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wingedpig/buildwatch/internal/app"
	"github.com/wingedpig/buildwatch/internal/diagnostics"
	"github.com/wingedpig/buildwatch/internal/recorder"
)

// errBuildFailed is returned by the build command when the recorded build
// failed, so the process exits non-zero.
var errBuildFailed = errors.New("build failed")

func newRecordCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "record [file]",
		Short: "Record a build from its compiler output",
		Long: `Parse compiler output and record it as a build. Output is read from the
file argument, or stdin when none is given. With --json the input is a
structured build result instead of raw output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			result, err := readBuildResult(in, asJSON)
			if err != nil {
				return err
			}

			return opts.withApp(cmd.Context(), func(a *app.App) error {
				rec, err := a.Recorder().Record(cmd.Context(), *result)
				if err != nil {
					return err
				}
				fixes, err := knownFixes(cmd.Context(), a.Store(), rec.Result.Diagnostics)
				if err != nil {
					return err
				}
				printBuildRecord(cmd.OutOrStdout(), rec, fixes)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Input is a JSON build result")
	return cmd
}

func readBuildResult(r io.Reader, asJSON bool) (*recorder.BuildResult, error) {
	if !asJSON {
		return recorder.ParseOutput(r)
	}
	var result recorder.BuildResult
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("parse build result: %w", err)
	}
	return &result, nil
}

// knownFixes looks up the best solution for each error message.
func knownFixes(ctx context.Context, store *diagnostics.Store, diags []recorder.ParsedDiagnostic) (map[string]*diagnostics.Solution, error) {
	fixes := make(map[string]*diagnostics.Solution)
	for _, d := range diags {
		if d.Severity != diagnostics.SeverityError {
			continue
		}
		if _, seen := fixes[d.Message]; seen {
			continue
		}
		sol, err := store.BestSolutionFor(ctx, d.Message)
		if err != nil {
			return nil, err
		}
		fixes[d.Message] = sol
	}
	return fixes, nil
}

func newBuildCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Run the configured build command and record the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				res, err := a.Runner().Run(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if res.TimedOut {
					fmt.Fprintf(out, "%s\n", yellow("Build timed out"))
				}
				if res.Record == nil {
					return errBuildFailed
				}
				fixes, err := knownFixes(cmd.Context(), a.Store(), res.Record.Result.Diagnostics)
				if err != nil {
					return err
				}
				printBuildRecord(out, res.Record, fixes)
				if res.Record.Result.Status == diagnostics.StatusError {
					return errBuildFailed
				}
				return nil
			})
		},
	}
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current build, build health and known fixes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				report, err := a.Aggregator().Report(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), report)
				}
				printReport(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newTrendsCmd(opts *globalOptions) *cobra.Command {
	var (
		days   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Show build success rate and problematic files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				window := days
				if window <= 0 {
					window = a.Config().Diagnostics.TrendWindowDays
				}
				t, err := a.Aggregator().Trends(cmd.Context(), window)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), t)
				}
				printTrends(cmd.OutOrStdout(), t, window)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Window in days (default: diagnostics.trend_window_days)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newIssuesCmd(opts *globalOptions) *cobra.Command {
	var limit, days int

	cmd := &cobra.Command{
		Use:   "issues",
		Short: "List the most frequent errors with their best known fix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				issues, err := a.Store().FrequentIssues(cmd.Context(), limit, days)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(issues) == 0 {
					fmt.Fprintf(out, "No recurring errors in the last %d days\n", days)
					return nil
				}
				printIssues(out, issues)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of issues")
	cmd.Flags().IntVar(&days, "days", 30, "Window in days")
	return cmd
}

func newSolutionCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solution",
		Short: "Record and look up fixes for build errors",
	}
	cmd.AddCommand(newSolutionAddCmd(opts), newSolutionBestCmd(opts))
	return cmd
}

func newSolutionAddCmd(opts *globalOptions) *cobra.Command {
	var message, fingerprint, solution, fixPattern string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a fix that worked for an error",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if message == "" && fingerprint == "" {
				return fmt.Errorf("--message or --fingerprint is required")
			}
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				fp := fingerprint
				if fp == "" {
					fp = diagnostics.Fingerprint(message)
				}
				id, err := a.Store().AddOrUpdateSolution(cmd.Context(), fp, solution, fixPattern)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded solution %d for %s\n", id, fp)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&message, "message", "", "Error message the fix applies to")
	f.StringVar(&fingerprint, "fingerprint", "", "Message fingerprint (instead of --message)")
	f.StringVar(&solution, "solution", "", "Description of the fix (required)")
	f.StringVar(&fixPattern, "fix-pattern", "", "Optional before/after pattern")
	_ = cmd.MarkFlagRequired("solution")
	return cmd
}

func newSolutionBestCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "best <message>",
		Short: "Show the best known fix for an error message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				sol, err := a.Store().BestSolutionFor(cmd.Context(), message)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if sol == nil {
					fmt.Fprintln(out, "No known solution")
					return nil
				}
				fmt.Fprintf(out, "%s %s\n", green("fix:"), sol.Text)
				if sol.FixPattern != "" {
					fmt.Fprintf(out, "  pattern: %s\n", sol.FixPattern)
				}
				fmt.Fprintf(out, "  %s\n", gray(fmt.Sprintf("worked %d times", sol.SuccessCount)))
				return nil
			})
		},
	}
}
