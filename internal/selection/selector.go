// Package selection turns pointer gestures on the time axis into a committed
// UTC time range.
package selection

import (
	"time"

	"github.com/mvandermeulen/screenpipe/internal/timeaxis"
)

// State tracks the selector lifecycle.
type State int

const (
	Idle State = iota
	Dragging
	Committed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Committed:
		return "committed"
	default:
		return "unknown"
	}
}

// Range is a committed selection. Start and end are UTC instants with
// Start <= End. A zero-width range (click without drag) is legal.
type Range struct {
	Start time.Time
	End   time.Time
}

// Selector is the gesture-driven state machine. Percents arriving from the
// pointer are clamped to the axis before use.
type Selector struct {
	state     State
	anchorPct float64
	startPct  float64
	endPct    float64
}

// New creates an idle selector.
func New() *Selector {
	return &Selector{}
}

// State returns the current lifecycle state.
func (s *Selector) State() State { return s.state }

// PointerDown begins a drag at the given axis position, discarding any prior
// selection. The initial selection is degenerate at the anchor.
func (s *Selector) PointerDown(percent float64) {
	p := timeaxis.ClampPercent(percent)
	s.state = Dragging
	s.anchorPct = p
	s.startPct = p
	s.endPct = p
}

// PointerMove extends the live selection while dragging. Ignored otherwise.
func (s *Selector) PointerMove(percent float64) {
	if s.state != Dragging {
		return
	}
	p := timeaxis.ClampPercent(percent)
	s.startPct = min(s.anchorPct, p)
	s.endPct = max(s.anchorPct, p)
}

// PointerUp freezes the selection. Ignored unless dragging.
func (s *Selector) PointerUp() {
	if s.state != Dragging {
		return
	}
	s.state = Committed
}

// Dismiss clears any selection and returns the selector to idle.
func (s *Selector) Dismiss() {
	*s = Selector{}
}

// HasSelection reports whether a live or committed selection exists.
func (s *Selector) HasSelection() bool {
	return s.state != Idle
}

// IsCommitted reports whether the selection is frozen.
func (s *Selector) IsCommitted() bool {
	return s.state == Committed
}

// Percents returns the current selection bounds on the axis.
func (s *Selector) Percents() (start, end float64) {
	return s.startPct, s.endPct
}

// Nudge grows or shrinks a selection's end by delta percent, for keyboard
// driven adjustment. Creates a degenerate committed selection when idle.
func (s *Selector) Nudge(delta float64) {
	if s.state == Idle {
		s.PointerDown(0)
		s.PointerUp()
		return
	}
	s.endPct = timeaxis.ClampPercent(s.endPct + delta)
	if s.endPct < s.startPct {
		s.startPct, s.endPct = s.endPct, s.startPct
	}
}

// Range resolves the selection against a reference calendar day.
func (s *Selector) Range(referenceDay time.Time) Range {
	return Range{
		Start: timeaxis.PositionToUTC(s.startPct, referenceDay),
		End:   timeaxis.PositionToUTC(s.endPct, referenceDay),
	}
}
