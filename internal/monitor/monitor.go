// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package monitor tails the console output of a running process,
// classifies each line against the runtime error taxonomy, keeps bounded
// histories of recent lines and errors, and captures a crash context when
// a fatal or crash line is seen.
package monitor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	ps "github.com/mitchellh/go-ps"

	"github.com/wingedpig/buildwatch/internal/crashes"
	"github.com/wingedpig/buildwatch/internal/events"
	"github.com/wingedpig/buildwatch/internal/logs"
)

const (
	DefaultLogBufferSize   = 10000
	DefaultErrorBufferSize = 1000
	DefaultStopTimeout     = 5 * time.Second

	subscriberBuffer = 100
	logFileTimeFmt   = "20060102_150405"
)

// Config configures a Monitor.
type Config struct {
	BundleID        string
	Command         []string // Defaults to SimulatorLogCommand(BundleID)
	WorkDir         string
	Env             map[string]string
	UsePTY          bool
	LogDir          string // Per-session log files
	LogBufferSize   int
	ErrorBufferSize int
	StopTimeout     time.Duration
}

// Capturer persists crash contexts.
type Capturer interface {
	Capture(req crashes.CaptureRequest) (*crashes.CrashContext, error)
}

// session is one Start..Stop run of the log source.
type session struct {
	id        string
	bundleID  string
	command   []string
	cmd       *exec.Cmd
	pid       int
	reader    io.ReadCloser
	logFile   *os.File
	logPath   string
	startedAt time.Time

	stopping atomic.Bool
	errors   atomic.Int64
	crashes  atomic.Int64

	waitDone chan struct{}
	loopDone chan struct{}
}

// Monitor owns one log source process at a time. Buffers outlive
// sessions, so a restarted monitor keeps earlier history.
type Monitor struct {
	config   Config
	capturer Capturer
	eventBus events.EventBus

	mu      sync.Mutex
	state   State
	session *session

	seq    atomic.Uint64
	logs   *logs.Buffer
	errors *logs.Buffer

	subMu       sync.Mutex
	subscribers map[chan logs.LogEntry]struct{}

	now func() time.Time
}

// New creates an idle monitor. capturer and bus may be nil.
func New(cfg Config, capturer Capturer, bus events.EventBus) *Monitor {
	if cfg.LogBufferSize <= 0 {
		cfg.LogBufferSize = DefaultLogBufferSize
	}
	if cfg.ErrorBufferSize <= 0 {
		cfg.ErrorBufferSize = DefaultErrorBufferSize
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(os.TempDir(), "buildwatch", "runtime")
	}

	return &Monitor{
		config:      cfg,
		capturer:    capturer,
		eventBus:    bus,
		state:       StateIdle,
		logs:        logs.NewBuffer(cfg.LogBufferSize),
		errors:      logs.NewBuffer(cfg.ErrorBufferSize),
		subscribers: make(map[chan logs.LogEntry]struct{}),
		now:         time.Now,
	}
}

// Start launches the log source and begins streaming. bundleID overrides
// the configured bundle when non-empty. Starting a monitor that is
// already streaming is not an error.
func (m *Monitor) Start(ctx context.Context, bundleID string) (*StartResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateStreaming {
		s := m.session
		return &StartResult{
			Status:    StatusAlreadyRunning,
			BundleID:  s.bundleID,
			SessionID: s.id,
			LogFile:   s.logPath,
			PID:       s.pid,
		}, nil
	}

	if bundleID == "" {
		bundleID = m.config.BundleID
	}
	command := m.config.Command
	if len(command) == 0 {
		if bundleID == "" {
			return nil, &ProcessSpawnError{Err: fmt.Errorf("no command or bundle id configured")}
		}
		command = SimulatorLogCommand(bundleID)
	}

	started := m.now()
	if err := os.MkdirAll(m.config.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("create runtime log dir: %w", err)
	}
	logPath := filepath.Join(m.config.LogDir, fmt.Sprintf("runtime_%s_%s.log",
		strings.ReplaceAll(fileSafe(bundleID), ".", "_"), started.Format(logFileTimeFmt)))
	logFile, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open runtime log: %w", err)
	}

	cmd, reader, err := spawn(command, m.config.WorkDir, m.config.Env, m.config.UsePTY)
	if err != nil {
		logFile.Close()
		os.Remove(logPath)
		return nil, &ProcessSpawnError{Command: command, Err: err}
	}

	s := &session{
		id:        uuid.NewString(),
		bundleID:  bundleID,
		command:   command,
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		reader:    reader,
		logFile:   logFile,
		logPath:   logPath,
		startedAt: started,
		waitDone:  make(chan struct{}),
		loopDone:  make(chan struct{}),
	}
	m.session = s
	m.state = StateStreaming

	go m.waitForExit(s)
	go m.readLoop(s)

	log.Printf("Monitor %s: streaming %v (pid %d, log %s)", bundleID, command, s.pid, logPath)

	m.publish(ctx, events.EventMonitorStarted, map[string]interface{}{
		"session_id": s.id,
		"bundle_id":  bundleID,
		"pid":        s.pid,
		"log_file":   logPath,
	})

	return &StartResult{
		Status:    StatusMonitoringStarted,
		BundleID:  bundleID,
		SessionID: s.id,
		LogFile:   logPath,
		PID:       s.pid,
	}, nil
}

// Stop terminates the log source and waits for the reader to finish. No
// buffer or log file writes happen after Stop returns. Stopping a monitor
// that is not streaming returns StatusNotRunning.
func (m *Monitor) Stop(ctx context.Context) (*StopResult, error) {
	return m.stop(ctx, events.StopReasonRequested)
}

// Shutdown stops any active session as part of process shutdown.
func (m *Monitor) Shutdown(ctx context.Context) error {
	_, err := m.stop(ctx, events.StopReasonShutdown)
	return err
}

func (m *Monitor) stop(ctx context.Context, reason events.StopReason) (*StopResult, error) {
	m.mu.Lock()
	s := m.session
	if m.state != StateStreaming || s == nil {
		m.mu.Unlock()
		if s != nil {
			<-s.loopDone
		}
		return &StopResult{Status: StatusNotRunning}, nil
	}
	m.state = StateStopped
	s.stopping.Store(true)
	m.mu.Unlock()

	m.terminate(ctx, s)
	s.reader.Close()
	<-s.loopDone

	log.Printf("Monitor %s: stopped (%s)", s.bundleID, reason)
	m.publishStopped(ctx, s, reason)

	return &StopResult{
		Status:         StatusStopped,
		LogFile:        s.logPath,
		ErrorsCaptured: int(s.errors.Load()),
	}, nil
}

// terminate signals the child's process group, escalating to SIGKILL
// after the stop timeout.
func (m *Monitor) terminate(ctx context.Context, s *session) {
	select {
	case <-s.waitDone:
		return
	default:
	}

	syscall.Kill(-s.pid, syscall.SIGTERM)

	select {
	case <-s.waitDone:
	case <-time.After(m.config.StopTimeout):
		syscall.Kill(-s.pid, syscall.SIGKILL)
		<-s.waitDone
	case <-ctx.Done():
		syscall.Kill(-s.pid, syscall.SIGKILL)
		<-s.waitDone
	}
}

func (m *Monitor) waitForExit(s *session) {
	err := s.cmd.Wait()
	if err != nil && !s.stopping.Load() {
		log.Printf("Monitor %s: log source exited: %v", s.bundleID, err)
	}
	// Reap anything the child left behind holding the output open.
	syscall.Kill(-s.pid, syscall.SIGKILL)
	close(s.waitDone)
}

func (m *Monitor) readLoop(s *session) {
	defer close(s.loopDone)
	defer s.logFile.Close()
	defer s.reader.Close()

	br := bufio.NewReader(s.reader)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			m.processLine(s, line)
		}
		if err != nil {
			break
		}
	}

	m.mu.Lock()
	natural := m.session == s && m.state == StateStreaming
	if natural {
		m.state = StateStopped
		s.stopping.Store(true)
	}
	m.mu.Unlock()

	if natural {
		m.terminate(context.Background(), s)
		log.Printf("Monitor %s: log source ended", s.bundleID)
		m.publishStopped(context.Background(), s, events.StopReasonExited)
	}
}

// processLine handles one line end to end before the next is read.
func (m *Monitor) processLine(s *session, line string) {
	if s.stopping.Load() {
		return
	}

	text := strings.TrimRight(strings.ToValidUTF8(line, "\uFFFD"), "\r\n")

	if entry, ok := logs.Classify(text, m.now()); ok {
		entry.Sequence = m.seq.Add(1)
		m.logs.Add(entry)
		if entry.IsError {
			m.errors.Add(entry)
			s.errors.Add(1)
		}
		if entry.ErrorKind.TriggersCapture() {
			m.capture(s, entry)
		}
		m.broadcast(entry)
	}

	if _, err := s.logFile.WriteString(text + "\n"); err != nil {
		log.Printf("Monitor %s: write runtime log: %v", s.bundleID, err)
	}
}

func (m *Monitor) capture(s *session, trigger logs.LogEntry) {
	if m.capturer == nil {
		return
	}
	_, err := m.capturer.Capture(crashes.CaptureRequest{
		Trigger:       trigger,
		BundleID:      s.bundleID,
		SourceLogPath: s.logPath,
		History:       m,
	})
	if err != nil {
		log.Printf("Monitor %s: crash capture failed: %v", s.bundleID, err)
		return
	}
	s.crashes.Add(1)
}

// RecentLogs returns up to count of the most recent lines, oldest first.
func (m *Monitor) RecentLogs(count int) []logs.LogEntry {
	return m.logs.Get(count)
}

// RecentErrors returns up to count of the most recent errors, oldest first.
func (m *Monitor) RecentErrors(count int) []logs.LogEntry {
	return m.errors.Get(count)
}

// LogsAfter returns lines with a sequence greater than seq.
func (m *Monitor) LogsAfter(seq uint64, limit int) []logs.LogEntry {
	return m.logs.GetAfter(seq, limit)
}

// Active reports whether the monitor is streaming.
func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateStreaming
}

// Status returns the current monitor status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	st := Status{
		State:          m.state,
		Monitoring:     m.state == StateStreaming,
		BundleID:       m.config.BundleID,
		LogsInBuffer:   m.logs.Size(),
		ErrorsInBuffer: m.errors.Size(),
	}
	s := m.session
	m.mu.Unlock()

	if s == nil {
		return st
	}

	started := s.startedAt
	st.BundleID = s.bundleID
	st.SessionID = s.id
	st.LogFile = s.logPath
	st.StartedAt = &started
	st.CrashesCaptured = int(s.crashes.Load())
	if st.Monitoring {
		st.PID = s.pid
		st.ProcessRunning = processAlive(s)
	}
	return st
}

func processAlive(s *session) bool {
	select {
	case <-s.waitDone:
		return false
	default:
	}
	p, err := ps.FindProcess(s.pid)
	return err == nil && p != nil
}

// Subscribe returns a channel that receives each classified line.
func (m *Monitor) Subscribe() chan logs.LogEntry {
	ch := make(chan logs.LogEntry, subscriberBuffer)
	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()
	return ch
}

// Unsubscribe removes a subscription channel.
func (m *Monitor) Unsubscribe(ch chan logs.LogEntry) {
	m.subMu.Lock()
	if _, ok := m.subscribers[ch]; ok {
		delete(m.subscribers, ch)
		close(ch)
	}
	m.subMu.Unlock()
}

func (m *Monitor) broadcast(entry logs.LogEntry) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for ch := range m.subscribers {
		select {
		case ch <- entry:
		default:
			// Slow subscriber; drop.
		}
	}
}

func (m *Monitor) publishStopped(ctx context.Context, s *session, reason events.StopReason) {
	m.publish(ctx, events.EventMonitorStopped, map[string]interface{}{
		"session_id":      s.id,
		"bundle_id":       s.bundleID,
		"reason":          string(reason),
		"log_file":        s.logPath,
		"errors_captured": s.errors.Load(),
	})
}

func (m *Monitor) publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	if m.eventBus == nil {
		return
	}
	if err := m.eventBus.Publish(ctx, events.Event{Type: eventType, Payload: payload}); err != nil {
		log.Printf("Monitor: publish %s: %v", eventType, err)
	}
}

func fileSafe(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, s)
	if s == "" {
		return "unknown"
	}
	return s
}
