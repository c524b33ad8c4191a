// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package logs

import (
	"sync"
)

// Buffer is a thread-safe ring buffer for log entries. When full, the
// oldest entry is evicted.
type Buffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	head    int // Next write position
	size    int // Current number of entries
	maxSize int // Maximum capacity
	added   uint64
}

// NewBuffer creates a new log entry buffer.
func NewBuffer(maxSize int) *Buffer {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &Buffer{
		entries: make([]LogEntry, maxSize),
		maxSize: maxSize,
	}
}

// Add appends an entry, evicting the oldest one on overflow.
func (b *Buffer) Add(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.maxSize
	b.added++

	if b.size < b.maxSize {
		b.size++
	}
}

// Get returns up to limit of the most recent entries in chronological
// order (oldest first). A limit <= 0 returns everything held.
func (b *Buffer) Get(limit int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return nil
	}

	count := b.size
	if limit > 0 && limit < count {
		count = limit
	}

	// Oldest of the entries we will return
	start := b.head - count
	if start < 0 {
		start += b.maxSize
	}

	result := make([]LogEntry, count)
	for i := 0; i < count; i++ {
		result[i] = b.entries[(start+i)%b.maxSize]
	}
	return result
}

// GetAfter returns entries with a sequence number greater than afterSeq.
func (b *Buffer) GetAfter(afterSeq uint64, limit int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []LogEntry
	start := b.head - b.size
	if start < 0 {
		start += b.maxSize
	}
	for i := 0; i < b.size; i++ {
		entry := b.entries[(start+i)%b.maxSize]
		if entry.Sequence > afterSeq {
			result = append(result, entry)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result
}

// Size returns the current number of entries.
func (b *Buffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// MaxSize returns the buffer capacity.
func (b *Buffer) MaxSize() int {
	return b.maxSize
}

// Added returns the total number of entries ever added, including evicted ones.
func (b *Buffer) Added() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.added
}

// Clear removes all entries.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make([]LogEntry, b.maxSize)
	b.head = 0
	b.size = 0
}
