// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sampling

// IntervalTimer fires when at least Interval units have passed since it
// last fired. Elapsed time is computed with unsigned subtraction, which is
// correct across counter overflow as long as polls are less than 2^32
// units apart.
type IntervalTimer struct {
	Interval uint32
	last     uint32
}

// NewIntervalTimer returns a timer whose first period starts at start.
func NewIntervalTimer(interval, start uint32) IntervalTimer {
	return IntervalTimer{Interval: interval, last: start}
}

// Due reports whether the timer has elapsed at now and, if so, restarts the
// period at now.
func (t *IntervalTimer) Due(now uint32) bool {
	if now-t.last < t.Interval {
		return false
	}
	t.last = now
	return true
}

// Last is the reading at which the timer last fired (or started).
func (t *IntervalTimer) Last() uint32 { return t.last }
