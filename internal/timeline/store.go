// Package timeline maintains the in-memory, time-ordered collection of frame
// batches and the playback cursor into it.
package timeline

import (
	"sort"
	"time"

	"github.com/mvandermeulen/screenpipe/internal/pipe"
)

// Store holds frame batches sorted by timestamp descending (most recent
// first). It has exactly one writer, the stream session; everything else
// reads. At most one batch exists per distinct timestamp.
type Store struct {
	entries []pipe.StreamTimeSeriesEntry

	cursor    int
	hasCursor bool
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Len returns the number of batches held.
func (s *Store) Len() int { return len(s.entries) }

// Insert adds a batch unless one with the same timestamp already exists, then
// restores descending order. Arrival order is never trusted. Returns false
// for a duplicate. The first batch ever inserted seeds the cursor to 0 if no
// cursor is set.
func (s *Store) Insert(entry pipe.StreamTimeSeriesEntry) bool {
	for _, e := range s.entries {
		if e.Timestamp.Equal(entry.Timestamp) {
			return false
		}
	}

	s.entries = append(s.entries, entry)
	sort.Slice(s.entries, func(i, j int) bool {
		return s.entries[i].Timestamp.After(s.entries[j].Timestamp)
	})

	if !s.hasCursor {
		s.cursor = 0
		s.hasCursor = true
	}
	return true
}

// At returns the batch at index i, most recent first.
func (s *Store) At(i int) pipe.StreamTimeSeriesEntry {
	return s.entries[i]
}

// Snapshot returns a copy of the current entries, for readers that must not
// observe later mutation (context reducers at query-submit time).
func (s *Store) Snapshot() []pipe.StreamTimeSeriesEntry {
	out := make([]pipe.StreamTimeSeriesEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// InRange returns the batches whose timestamp lies in [start, end], most
// recent first.
func (s *Store) InRange(start, end time.Time) []pipe.StreamTimeSeriesEntry {
	var out []pipe.StreamTimeSeriesEntry
	for _, e := range s.entries {
		if !e.Timestamp.Before(start) && !e.Timestamp.After(end) {
			out = append(out, e)
		}
	}
	return out
}

// Clear discards all batches and the cursor.
func (s *Store) Clear() {
	s.entries = nil
	s.cursor = 0
	s.hasCursor = false
}

// HasCursor reports whether a current batch exists.
func (s *Store) HasCursor() bool {
	return s.hasCursor && len(s.entries) > 0
}

// Cursor returns the index of the currently displayed batch. Only meaningful
// when HasCursor reports true.
func (s *Store) Cursor() int {
	if s.cursor >= len(s.entries) {
		return len(s.entries) - 1
	}
	return s.cursor
}

// Current returns the batch under the cursor.
func (s *Store) Current() (pipe.StreamTimeSeriesEntry, bool) {
	if !s.HasCursor() {
		return pipe.StreamTimeSeriesEntry{}, false
	}
	return s.entries[s.Cursor()], true
}

// StepCursor moves the cursor by delta, clamped to the store's bounds.
func (s *Store) StepCursor(delta int) {
	if !s.HasCursor() {
		return
	}
	c := s.Cursor() + delta
	if c < 0 {
		c = 0
	}
	if c > len(s.entries)-1 {
		c = len(s.entries) - 1
	}
	s.cursor = c
}
