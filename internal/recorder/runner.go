// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/wingedpig/buildwatch/internal/diagnostics"
	"github.com/wingedpig/buildwatch/internal/events"
)

// DefaultBuildTimeout bounds a build command when none is configured.
const DefaultBuildTimeout = 10 * time.Minute

// RunnerConfig configures the build runner.
type RunnerConfig struct {
	Command []string
	WorkDir string
	Env     map[string]string
	Timeout time.Duration
	Scheme  string
	Target  string
}

// RunResult describes one build command invocation.
type RunResult struct {
	Record   *BuildRecord `json:"record,omitempty"`
	TimedOut bool         `json:"timed_out"`
	ExitCode int          `json:"exit_code"`
}

// Runner runs the configured build command and records its output.
type Runner struct {
	config   RunnerConfig
	recorder *Recorder
	eventBus events.EventBus
}

// NewRunner creates a runner. bus may be nil.
func NewRunner(cfg RunnerConfig, rec *Recorder, bus events.EventBus) *Runner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBuildTimeout
	}
	return &Runner{config: cfg, recorder: rec, eventBus: bus}
}

// Run executes the build with a bounded timeout. A timeout is not an
// error: it is logged, and whatever output was produced is recorded as a
// failed build. A timeout with no output records nothing.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	if len(r.config.Command) == 0 {
		return nil, fmt.Errorf("%w: no build command configured", diagnostics.ErrInvalidArgument)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.config.Command[0], r.config.Command[1:]...)
	cmd.Dir = r.config.WorkDir
	cmd.Env = os.Environ()
	for k, v := range r.config.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started).Seconds()

	res := &RunResult{}
	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		log.Printf("Build: %s timed out after %s", strings.Join(r.config.Command, " "), r.config.Timeout)
		if r.eventBus != nil {
			r.eventBus.Publish(ctx, events.Event{
				Type: events.EventBuildTimedOut,
				Payload: map[string]interface{}{
					"command": strings.Join(r.config.Command, " "),
					"timeout": r.config.Timeout.String(),
				},
			})
		}
		if output.Len() == 0 {
			return res, nil
		}
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case err != nil:
		return nil, fmt.Errorf("run build command: %w", err)
	}

	result, perr := ParseOutput(&output)
	if perr != nil {
		return nil, perr
	}
	result.Duration = &elapsed
	if result.Scheme == "" {
		result.Scheme = r.config.Scheme
	}
	if result.Target == "" {
		result.Target = r.config.Target
	}
	if res.TimedOut || res.ExitCode != 0 {
		result.Status = diagnostics.StatusError
	}

	rec, err := r.recorder.Record(ctx, *result)
	if err != nil {
		return nil, err
	}
	res.Record = rec
	return res, nil
}
