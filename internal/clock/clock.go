// Package clock provides the bridge's monotonic millisecond timebase.
//
// All debounce windows, macro timing and report timestamps are expressed in
// milliseconds since process start so that wall-clock adjustments can never
// move them backwards.
package clock

import "time"

var start = time.Now()

// NowMS returns monotonic milliseconds elapsed since process start.
func NowMS() int64 {
	return time.Since(start).Milliseconds()
}

// Fake is a manually advanced clock for tests.
type Fake struct {
	ms int64
}

// NewFake returns a Fake starting at the given millisecond value.
func NewFake(startMS int64) *Fake {
	return &Fake{ms: startMS}
}

// NowMS returns the fake's current time.
func (f *Fake) NowMS() int64 { return f.ms }

// Advance moves the fake clock forward.
func (f *Fake) Advance(ms int64) { f.ms += ms }
