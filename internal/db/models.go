// Package db persists answered timeline queries to SQLite so they can be
// recalled later, including over MCP.
package db

import "time"

// Exchange is one completed question/answer round against a selection.
type Exchange struct {
	ID         string
	Question   string
	Answer     string
	Agent      string
	RangeStart time.Time
	RangeEnd   time.Time
	Model      string
	CreatedAt  time.Time
}
