// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// buildwatch records build diagnostics, ranks known fixes, and monitors a
// running app's console for runtime errors and crashes.
//
// Usage:
//
//	buildwatch serve                      HTTP API and build log watcher
//	buildwatch mcp                        MCP tools on stdio
//	buildwatch record [file]              Record build output (stdin when no file)
//	buildwatch build                      Run the configured build and record it
//	buildwatch status                     Enhanced build status
//	buildwatch monitor start [bundle-id]  Start runtime monitoring on a server
package main

import (
	"fmt"
	"os"
)

var version = "0.3.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
