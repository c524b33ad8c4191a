// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventHistory_MaxEvents(t *testing.T) {
	history := NewEventHistory(EventHistoryConfig{MaxEvents: 5, MaxAge: time.Hour})
	defer history.Close()

	base := time.Now()
	for i := 0; i < 10; i++ {
		history.Add(Event{
			ID:        fmt.Sprint(i),
			Type:      EventBuildRecorded,
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
		})
	}

	events, err := history.Query(EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, "5", events[0].ID)
	assert.Equal(t, "9", events[4].ID)
}

func TestEventHistory_QueryFilters(t *testing.T) {
	history := NewEventHistory(EventHistoryConfig{})
	defer history.Close()

	base := time.Now().Add(-time.Minute)
	history.Add(Event{ID: "a", Type: EventBuildRecorded, Project: "one", Timestamp: base})
	history.Add(Event{ID: "b", Type: EventMonitorStarted, Project: "two", Timestamp: base.Add(time.Second)})
	history.Add(Event{ID: "c", Type: EventBuildRecorded, Project: "two", Timestamp: base.Add(2 * time.Second)})

	events, err := history.Query(EventFilter{Types: []string{"build.*"}})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = history.Query(EventFilter{Project: "two"})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = history.Query(EventFilter{Since: base.Add(500 * time.Millisecond), Until: base.Add(1500 * time.Millisecond)})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "b", events[0].ID)

	events, err = history.Query(EventFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "c", events[0].ID)
}

func TestEventHistory_Prune(t *testing.T) {
	history := NewEventHistory(EventHistoryConfig{MaxAge: time.Minute})
	defer history.Close()

	history.Add(Event{ID: "old", Type: EventBuildRecorded, Timestamp: time.Now().Add(-time.Hour)})
	history.Add(Event{ID: "new", Type: EventBuildRecorded, Timestamp: time.Now()})

	history.Prune()

	events, err := history.Query(EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].ID)
}
