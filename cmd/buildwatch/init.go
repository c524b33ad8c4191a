// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

const configFileName = "buildwatch.hjson"

// initAnswers are the values collected by the init prompts.
type initAnswers struct {
	ProjectName  string
	Port         int
	BuildCommand string
	Scheme       string
	BundleID     string
	WatchDir     string
}

func newInitCmd(opts *globalOptions) *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a buildwatch.hjson config in the project directory",
		Long: `Create a commented buildwatch.hjson in --dir. You are asked for the project
name, server port, build command, app bundle id and build log directory.
Press Enter to accept the default shown in [brackets], or pass --yes to
accept all defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := filepath.Abs(opts.dir)
			if err != nil {
				return fmt.Errorf("failed to resolve directory: %w", err)
			}
			path := filepath.Join(dir, configFileName)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists; remove it first or use a different directory", path)
			}

			out := cmd.OutOrStdout()
			answers := initAnswers{
				ProjectName:  filepath.Base(dir),
				Port:         7420,
				BuildCommand: "xcodebuild -scheme " + filepath.Base(dir) + " build",
				Scheme:       filepath.Base(dir),
			}
			if opts.port > 0 {
				answers.Port = opts.port
			}
			if !defaults {
				askInit(bufio.NewReader(cmd.InOrStdin()), out, &answers)
			}

			if err := os.WriteFile(path, []byte(generateConfig(answers)), 0644); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			fmt.Fprintf(out, "\nCreated %s\n\n", path)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  1. Review and edit buildwatch.hjson as needed")
			fmt.Fprintln(out, "  2. Run: buildwatch serve")
			fmt.Fprintf(out, "  3. Check: curl http://localhost:%d/api/v1/status\n", answers.Port)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&defaults, "yes", "y", false, "Accept all defaults without prompting")
	return cmd
}

func askInit(reader *bufio.Reader, w io.Writer, a *initAnswers) {
	fmt.Fprintln(w, "buildwatch configuration setup")
	fmt.Fprintln(w, "Press Enter to accept defaults shown in [brackets].")
	fmt.Fprintln(w)

	a.ProjectName = prompt(reader, w, "Project name", a.ProjectName)
	if port, err := strconv.Atoi(prompt(reader, w, "Server port", strconv.Itoa(a.Port))); err == nil {
		a.Port = port
	}
	a.BuildCommand = prompt(reader, w, "Build command (or empty to skip)", a.BuildCommand)
	a.Scheme = prompt(reader, w, "Scheme", a.Scheme)
	a.BundleID = prompt(reader, w, "App bundle id to monitor (or empty to skip)", a.BundleID)
	a.WatchDir = prompt(reader, w, "Directory of build logs to watch (or empty to skip)", a.WatchDir)
}

func prompt(reader *bufio.Reader, w io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(w, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(w, "%s: ", question)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

// escapeHJSONValue escapes a string for safe inclusion in an HJSON double-quoted value.
func escapeHJSONValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// optional renders key: "value", commented out when value is empty.
func optional(key, value, example string) string {
	if value == "" {
		return fmt.Sprintf("// %s: %q", key, example)
	}
	return fmt.Sprintf("%s: \"%s\"", key, escapeHJSONValue(value))
}

func generateConfig(a initAnswers) string {
	var sb strings.Builder

	sb.WriteString(`{
  // buildwatch configuration (HJSON: JSON with comments and relaxed syntax).
  //
  // Paths may use {{.Project.Root}} and {{.Project.Name}}; relative paths are
  // resolved against the directory of this file.

  project: {
    name: "` + escapeHJSONValue(a.ProjectName) + `"
  }

  server: {
    // Use "0.0.0.0" to allow remote access
    host: "127.0.0.1"
    port: ` + strconv.Itoa(a.Port) + `

    // HTTPS from certificate files:
    // tls_cert: "~/.buildwatch/cert.pem"
    // tls_key: "~/.buildwatch/key.pem"
    // Or from the local Tailscale daemon:
    // tls_tailscale: true
  }

  diagnostics: {
    // db_path: "{{.Project.Root}}/.buildwatch/diagnostics.db"
    // Extra known solutions (YAML list of message/solution/fix_pattern):
    // seed_file: "solutions.yaml"
    trend_window_days: 7
  }

  build: {
    ` + optional("command", a.BuildCommand, "xcodebuild -scheme App build") + `
    ` + optional("scheme", a.Scheme, "App") + `
    timeout: "10m"

    // Record every build log written to this directory:
    ` + optional("watch_dir", a.WatchDir, "build-logs") + `
    watch_pattern: "*.log"
  }

  monitor: {
    ` + optional("bundle_id", a.BundleID, "com.example.app") + `
    // Log source; defaults to the booted simulator's log stream for bundle_id.
    // command: ["xcrun", "simctl", "spawn", "booted", "log", "stream"]
    log_buffer_size: 10000
    error_buffer_size: 1000
  }

  crashes: {
    // reports_dir: "{{.Project.Root}}/.buildwatch/crashes"
    recent_logs: 100
    recent_errors: 20
  }
}
`)

	return sb.String()
}
