// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sampling

import "time"

// Instant is a pair of free-running monotonic counters. Both wrap at 2^32,
// the microsecond one after roughly 71 minutes; all comparisons go through
// IntervalTimer so the wrap is harmless.
type Instant struct {
	Micros uint32
	Millis uint32
}

// Clock supplies monotonic instants.
type Clock interface {
	Now() Instant
}

// MonotonicClock counts from its construction using the runtime's
// monotonic clock.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock starts counting now.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

func (c *MonotonicClock) Now() Instant {
	d := time.Since(c.start)
	return Instant{
		Micros: uint32(d.Microseconds()),
		Millis: uint32(d.Milliseconds()),
	}
}
