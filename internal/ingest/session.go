// Package ingest owns one live frame-stream session: the connection, the
// ordered store it populates, and the loading/error flags observers read.
//
// The session object replaces ambient stream globals: callers own its
// lifetime and can run several sessions independently. All mutation happens
// on the caller's event loop; the blocking reads run in commands that only
// touch the stream client.
package ingest

import (
	"log"
	"time"

	"github.com/mvandermeulen/screenpipe/internal/pipe"
	"github.com/mvandermeulen/screenpipe/internal/timeline"
)

// safetyMargin keeps the window's end behind "now" so a refresh never races
// partially written captures.
const safetyMargin = 60 * time.Second

// Session tracks one ingestion run over a time window.
type Session struct {
	store  *timeline.Store
	client *pipe.StreamClient

	loading bool
	errMsg  string

	windowStart time.Time
	windowEnd   time.Time
}

// NewSession creates a session that populates the given store.
func NewSession(store *timeline.Store) *Session {
	return &Session{store: store}
}

// Store returns the ordered frame store this session populates.
func (s *Session) Store() *timeline.Store { return s.store }

// Loading reports whether the first batch (or a clean end) is still pending.
func (s *Session) Loading() bool { return s.loading }

// Err returns the surfaced transport error message, if any.
func (s *Session) Err() string { return s.errMsg }

// Window returns the requested ingestion window.
func (s *Session) Window() (start, end time.Time) {
	return s.windowStart, s.windowEnd
}

// Begin records a new ingestion window and flips the session to loading.
func (s *Session) Begin(start, end time.Time) {
	s.windowStart = start
	s.windowEnd = end
	s.loading = true
	s.errMsg = ""
}

// Attach adopts an opened stream client, replacing any previous one.
func (s *Session) Attach(c *pipe.StreamClient) {
	if s.client != nil {
		s.client.Close()
	}
	s.client = c
}

// Client returns the attached stream client, nil when not connected.
func (s *Session) Client() *pipe.StreamClient { return s.client }

// Apply inserts a received batch into the store and clears the loading flag.
// Returns false for a duplicate timestamp.
func (s *Session) Apply(entry pipe.StreamTimeSeriesEntry) bool {
	s.loading = false
	return s.store.Insert(entry)
}

// FinishBackfill records a clean end of stream: the historical window is
// complete. Not an error, and no retry is scheduled.
func (s *Session) FinishBackfill() {
	s.loading = false
	s.Stop()
}

// FailTransport records an abnormal stream failure and tears the connection
// down. Recovery is a deliberate manual refresh, never a silent retry.
func (s *Session) FailTransport(err error) {
	log.Printf("[ingest] stream failed: %v", err)
	s.loading = false
	s.errMsg = "frame stream lost: " + err.Error() + " (press r to refresh)"
	s.Stop()
}

// Stop releases the connection. Safe to call when already stopped.
func (s *Session) Stop() {
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
}

// Refresh clears the store, cursor, and error state and computes a fresh
// window: local midnight of today through now minus a small safety margin.
// The caller then opens a new stream for the returned window.
func (s *Session) Refresh(now time.Time) (start, end time.Time) {
	s.store.Clear()
	y, m, d := now.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	end = now.Add(-safetyMargin)
	s.Begin(start, end)
	return start, end
}

// Next blocks until the next valid frame batch on the client, silently
// dropping keep-alive sentinels and malformed payloads. io.EOF signals a
// clean end of stream.
func Next(c *pipe.StreamClient) (*pipe.StreamTimeSeriesEntry, error) {
	for {
		data, err := c.ReadEvent()
		if err != nil {
			return nil, err
		}
		if pipe.IsKeepAlive(data) {
			continue
		}
		entry, perr := pipe.ParseEntry(data)
		if perr != nil {
			log.Printf("[ingest] dropping event: %v", perr)
			continue
		}
		return entry, nil
	}
}
