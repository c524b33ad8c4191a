// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wingedpig/buildwatch/internal/api"
	"github.com/wingedpig/buildwatch/internal/app"
	"github.com/wingedpig/buildwatch/pkg/client"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	dir        string
	host       string
	port       int
	server     string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "buildwatch",
		Short:         "Build diagnostics and runtime monitoring",
		Long:          "buildwatch records build diagnostics, remembers the fixes that worked, and watches a running app for runtime errors.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default: auto-detect in --dir)")
	f.StringVar(&opts.dir, "dir", ".", "Project directory")
	f.StringVar(&opts.host, "host", "", "HTTP server host (overrides config)")
	f.IntVar(&opts.port, "port", 0, "HTTP server port (overrides config)")
	f.StringVar(&opts.server, "server", "", "Server URL for monitor and events commands (default: from config)")

	root.AddCommand(
		newServeCmd(opts),
		newMCPCmd(opts),
		newInitCmd(opts),
		newRecordCmd(opts),
		newBuildCmd(opts),
		newStatusCmd(opts),
		newTrendsCmd(opts),
		newIssuesCmd(opts),
		newSolutionCmd(opts),
		newCrashesCmd(opts),
		newMonitorCmd(opts),
		newEventsCmd(opts),
		newVersionCmd(),
	)
	return root
}

func (o *globalOptions) appOptions() app.Options {
	return app.Options{
		ConfigPath: o.configPath,
		Dir:        o.dir,
		Host:       o.host,
		Port:       o.port,
		Version:    version,
	}
}

// withApp runs fn against an initialized app and shuts it down afterwards.
func (o *globalOptions) withApp(ctx context.Context, fn func(*app.App) error) error {
	a, err := app.New(o.appOptions())
	if err != nil {
		return err
	}
	if err := a.Initialize(ctx); err != nil {
		return err
	}
	defer a.Shutdown(context.Background())
	return fn(a)
}

// client returns an API client for --server, or for the configured server
// address.
func (o *globalOptions) client() (*client.Client, error) {
	if o.server != "" {
		return client.New(o.server), nil
	}
	cfg, _, err := app.LoadConfig(o.appOptions())
	if err != nil {
		return nil, err
	}

	scheme := "http"
	mode, err := api.ResolveTLS(api.ServerConfig{
		TLSCert:      cfg.Server.TLSCert,
		TLSKey:       cfg.Server.TLSKey,
		TLSTailscale: cfg.Server.TLSTailscale,
	})
	if err == nil && mode != api.TLSOff {
		scheme = "https"
	}
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return client.New(fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port)))), nil
}

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the build log watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(opts.appOptions())
			if err != nil {
				return err
			}
			if path := a.ConfigPath(); path != "" {
				cmd.PrintErrf("Using config: %s\n", path)
			} else {
				cmd.PrintErrln("No config file found, using defaults")
			}
			return a.Serve(cmd.Context())
		},
	}
}

func newMCPCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the diagnostics and monitoring tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(opts.appOptions())
			if err != nil {
				return err
			}
			return a.RunMCP(cmd.Context())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "buildwatch %s\n", version)
		},
	}
}
