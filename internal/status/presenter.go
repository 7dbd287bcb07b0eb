// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package status

import (
	"context"
	"log"
	"sync"

	"github.com/relabs-tech/lokata/internal/gps"
)

// Snapshot is the read-only view handed to status presenters at the
// display cadence. Presenters never reach back into the sensors.
type Snapshot struct {
	LocationValid bool    `json:"location_valid"`
	HDOPValid     bool    `json:"hdop_valid"`
	Satellites    uint32  `json:"satellites"`
	HDOP          float64 `json:"hdop"` // HDOPSentinel when unknown
	Latitude      float64 `json:"lat"`  // last known, trust only with LocationValid
	Longitude     float64 `json:"lon"`
	AccuracyM     float64 `json:"accuracy_m"`
	Uptime        uint32  `json:"uptime_ms"`
}

// FromFix builds a Snapshot. Satellites are reported even without a
// location so the display can show acquisition progress.
func FromFix(fix gps.Fix, uptimeMillis uint32) Snapshot {
	hdop := fix.HDOP.Or(gps.HDOPSentinel)
	loc := fix.Location.Value()
	return Snapshot{
		LocationValid: fix.Location.IsValid(),
		HDOPValid:     fix.HDOP.IsValid(),
		Satellites:    fix.Satellites.Or(0),
		HDOP:          hdop,
		Latitude:      loc.Lat,
		Longitude:     loc.Lon,
		AccuracyM:     gps.EstimatedErrorMeters(hdop),
		Uptime:        uptimeMillis,
	}
}

// Presenter consumes status snapshots. It has no way to feed back into
// sampling.
type Presenter interface {
	Present(Snapshot)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(Snapshot)

func (f PresenterFunc) Present(s Snapshot) { f(s) }

// Multi fans a snapshot out to every presenter in order.
type Multi []Presenter

func (m Multi) Present(s Snapshot) {
	for _, p := range m {
		p.Present(s)
	}
}

// Discard drops every snapshot.
type Discard struct{}

func (Discard) Present(Snapshot) {}

// LogPresenter writes one log line per snapshot.
type LogPresenter struct {
	Prefix string
}

func (p LogPresenter) Present(s Snapshot) {
	state := "SEARCH"
	if s.LocationValid {
		state = "LOCKED"
	}
	log.Printf("%sgps=%s sats=%d hdop=%.2f lat=%.6f lon=%.6f acc=%.1fm",
		p.Prefix, state, s.Satellites, s.HDOP, s.Latitude, s.Longitude, s.AccuracyM)
}

// Async runs a slow presenter on its own goroutine behind a one-slot
// mailbox. Present never blocks: a newer snapshot replaces one that has not
// been picked up yet.
type Async struct {
	next Presenter

	mu      sync.Mutex
	pending *Snapshot
	wake    chan struct{}
	skipped uint64
}

// NewAsync starts the worker; it exits when ctx is done.
func NewAsync(ctx context.Context, next Presenter) *Async {
	a := &Async{next: next, wake: make(chan struct{}, 1)}
	go a.run(ctx)
	return a
}

func (a *Async) Present(s Snapshot) {
	a.mu.Lock()
	if a.pending != nil {
		a.skipped++
	}
	a.pending = &s
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Skipped counts snapshots overwritten before the presenter saw them.
func (a *Async) Skipped() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.skipped
}

func (a *Async) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.wake:
		}

		a.mu.Lock()
		s := a.pending
		a.pending = nil
		a.mu.Unlock()

		if s != nil {
			a.next.Present(*s)
		}
	}
}
