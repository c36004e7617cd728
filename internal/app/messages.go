package app

import (
	"time"

	"github.com/mvandermeulen/screenpipe/internal/db"
	"github.com/mvandermeulen/screenpipe/internal/pipe"
	"github.com/mvandermeulen/screenpipe/internal/query"
)

// StreamOpenedMsg is sent when the frame stream connection is established.
type StreamOpenedMsg struct {
	Client *pipe.StreamClient
}

// StreamOpenErrorMsg is sent when the frame stream cannot be opened.
type StreamOpenErrorMsg struct {
	Err error
}

// FrameBatchMsg wraps one valid frame batch from the stream. Client identifies
// the connection the read came from; a message from a client the session no
// longer owns is stale and must be dropped.
type FrameBatchMsg struct {
	Client *pipe.StreamClient
	Entry  pipe.StreamTimeSeriesEntry
}

// StreamEndMsg signals a clean end of stream: the backfill completed.
type StreamEndMsg struct {
	Client *pipe.StreamClient
}

// StreamErrorMsg signals an abnormal transport failure on the frame stream.
type StreamErrorMsg struct {
	Client *pipe.StreamClient
	Err    error
}

// QueryStartedMsg carries a newly opened answer stream.
type QueryStartedMsg struct {
	Stream *query.AnswerStream
}

// QueryStartErrorMsg is sent when the completion stream cannot be opened.
type QueryStartErrorMsg struct {
	Err error
}

// QueryDeltaMsg carries one incremental text delta. Stream identifies the
// answer the read came from; cancelling a query leaves one read pending, so
// messages from a stream that is no longer current must be dropped.
type QueryDeltaMsg struct {
	Stream *query.AnswerStream
	Delta  string
}

// QueryDoneMsg signals that the answer stream ended cleanly.
type QueryDoneMsg struct {
	Stream *query.AnswerStream
}

// QueryErrorMsg signals a failure mid-answer.
type QueryErrorMsg struct {
	Stream *query.AnswerStream
	Err    error
}

// TickMsg advances the "now" marker.
type TickMsg struct {
	Now time.Time
}

// ClearNoticeMsg clears a transient notice after a timeout.
type ClearNoticeMsg struct{}

// queryLogOpenedMsg carries the opened query-log store.
type queryLogOpenedMsg struct {
	store *db.Store
}

// exchangeSavedMsg reports the result of a query-log write.
type exchangeSavedMsg struct {
	err error
}
