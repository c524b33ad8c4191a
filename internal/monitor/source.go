// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/creack/pty"
)

// SimulatorLogCommand returns the log stream command for an app running
// in the booted simulator.
func SimulatorLogCommand(bundleID string) []string {
	parts := strings.Split(bundleID, ".")
	name := parts[len(parts)-1]
	return []string{
		"xcrun", "simctl", "spawn", "booted", "log", "stream",
		"--level=debug",
		"--style=syslog",
		"--predicate", fmt.Sprintf("subsystem contains '%s' OR processImagePath endswith '%s'", bundleID, name),
	}
}

// spawn starts the log source process. stdout and stderr are merged into
// the returned reader. The child always leads its own process group.
func spawn(command []string, workDir string, env map[string]string, usePTY bool) (*exec.Cmd, io.ReadCloser, error) {
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = workDir
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	if usePTY {
		// pty.Start puts the child in a new session, which also makes it
		// a process group leader.
		ptmx, err := pty.Start(cmd)
		if err != nil {
			return nil, nil, err
		}
		return cmd, ptmx, nil
	}

	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, nil, fmt.Errorf("output pipe: %w", err)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, nil, err
	}
	w.Close()
	return cmd, r, nil
}
