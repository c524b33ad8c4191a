// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package recorder turns parsed build results into stored build events and
// diagnostics, and notifies the observers registered on it.
package recorder

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wingedpig/buildwatch/internal/diagnostics"
	"github.com/wingedpig/buildwatch/internal/events"
)

// Store is the subset of the diagnostics store the recorder writes to.
type Store interface {
	RecordBuildEvent(ctx context.Context, in diagnostics.BuildEventInput) (int64, error)
	RecordDiagnostic(ctx context.Context, eventID int64, in diagnostics.DiagnosticInput) (int64, error)
}

// BuildRecord is a build that has been stored.
type BuildRecord struct {
	EventID       int64       `json:"build_event_id"`
	RecordedAt    time.Time   `json:"recorded_at"`
	Result        BuildResult `json:"result"`
	DiagnosticIDs []int64     `json:"diagnostic_ids,omitempty"`
}

// Observer is notified after a build has been recorded.
type Observer interface {
	BuildRecorded(ctx context.Context, rec BuildRecord)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, rec BuildRecord)

// BuildRecorded calls f.
func (f ObserverFunc) BuildRecorded(ctx context.Context, rec BuildRecord) {
	f(ctx, rec)
}

// Recorder owns the observer list for recorded builds.
type Recorder struct {
	store     Store
	eventBus  events.EventBus
	mu        sync.RWMutex
	observers []Observer
	now       func() time.Time
}

// New creates a recorder writing to store. bus may be nil.
func New(store Store, bus events.EventBus) *Recorder {
	return &Recorder{
		store:    store,
		eventBus: bus,
		now:      time.Now,
	}
}

// AddObserver registers an observer. Observers run in registration order.
func (r *Recorder) AddObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Record stores the build and its diagnostics, then notifies observers.
// Counts left at zero are derived from the diagnostics.
func (r *Recorder) Record(ctx context.Context, result BuildResult) (*BuildRecord, error) {
	if !result.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown build status %q", diagnostics.ErrInvalidArgument, result.Status)
	}
	if result.ErrorCount == 0 && result.WarningCount == 0 {
		for _, d := range result.Diagnostics {
			switch d.Severity {
			case diagnostics.SeverityError:
				result.ErrorCount++
			case diagnostics.SeverityWarning:
				result.WarningCount++
			}
		}
	}

	eventID, err := r.store.RecordBuildEvent(ctx, diagnostics.BuildEventInput{
		Status:       result.Status,
		Duration:     result.Duration,
		WarningCount: result.WarningCount,
		ErrorCount:   result.ErrorCount,
		Scheme:       result.Scheme,
		Target:       result.Target,
	})
	if err != nil {
		return nil, err
	}

	rec := BuildRecord{
		EventID:    eventID,
		RecordedAt: r.now(),
		Result:     result,
	}
	for _, d := range result.Diagnostics {
		id, err := r.store.RecordDiagnostic(ctx, eventID, diagnostics.DiagnosticInput{
			Severity: d.Severity,
			FilePath: d.FilePath,
			Line:     d.Line,
			Message:  d.Message,
		})
		if err != nil {
			return nil, fmt.Errorf("record diagnostic for build %d: %w", eventID, err)
		}
		rec.DiagnosticIDs = append(rec.DiagnosticIDs, id)
	}

	log.Printf("Build %d recorded: %s (%d errors, %d warnings)", eventID, result.Status, result.ErrorCount, result.WarningCount)

	if r.eventBus != nil {
		payload := map[string]interface{}{
			"build_event_id": eventID,
			"status":         string(result.Status),
			"errors":         result.ErrorCount,
			"warnings":       result.WarningCount,
		}
		if result.Duration != nil {
			payload["duration_seconds"] = *result.Duration
		}
		r.eventBus.Publish(ctx, events.Event{Type: events.EventBuildRecorded, Payload: payload})
	}

	r.notify(ctx, rec)
	return &rec, nil
}

func (r *Recorder) notify(ctx context.Context, rec BuildRecord) {
	r.mu.RLock()
	observers := make([]Observer, len(r.observers))
	copy(observers, r.observers)
	r.mu.RUnlock()

	for _, o := range observers {
		func() {
			defer func() {
				if p := recover(); p != nil {
					log.Printf("Build observer panic for build %d: %v", rec.EventID, p)
				}
			}()
			o.BuildRecorded(ctx, rec)
		}()
	}
}
