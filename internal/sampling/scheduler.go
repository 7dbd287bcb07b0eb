// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sampling drives the sensors from a single polling loop and emits
// one telemetry record per logging tick.
package sampling

import (
	"context"
	"log"
	"runtime"
	"time"

	"github.com/relabs-tech/lokata/internal/gps"
	"github.com/relabs-tech/lokata/internal/imu"
	"github.com/relabs-tech/lokata/internal/status"
	"github.com/relabs-tech/lokata/internal/telemetry"
)

// DefaultDisplayInterval is the status refresh period in milliseconds (2 Hz).
const DefaultDisplayInterval = 500

// errorLogEvery limits how often repeated emit errors reach the log.
const errorLogEvery = 1000

// Positioning is the streaming GNSS decoder fed by the loop.
type Positioning interface {
	Encode(b byte) bool
	Fix() gps.Fix
}

// RecordEmitter writes one telemetry record.
type RecordEmitter interface {
	Emit(rec telemetry.Record) error
}

// Sources groups the sensor inputs polled each iteration.
type Sources struct {
	GNSS     gps.ByteSource
	Position Positioning
	Inertial imu.InertialSource
	Magnetic imu.MagneticSource
}

// Options tunes the loop. Zero values pick the defaults.
type Options struct {
	Layout          telemetry.Layout
	DisplayInterval uint32        // ms
	IdleSleep       time.Duration // pause between iterations in Run; 0 yields instead
}

// Stats are running counters, readable between ticks.
type Stats struct {
	Records        uint64 // logging ticks
	DisplayTicks   uint64
	InertialMisses uint64 // ticks logged with the zero IMU sample because data was not ready
	InertialErrors uint64 // ticks logged with the zero IMU sample because the read failed
	EmitErrors     uint64
	GNSSBytes      uint64
	GNSSSentences  uint64
}

// Scheduler is the process-wide sampling context: sensors, timers and
// output, constructed once at startup and ticked forever.
type Scheduler struct {
	src       Sources
	emitter   RecordEmitter
	presenter status.Presenter

	layout       telemetry.Layout
	logTimer     IntervalTimer // in layout units
	displayTimer IntervalTimer // ms
	idle         time.Duration

	stats Stats
}

// New builds a scheduler. Missing inertial or magnetic sources are
// replaced by their zero fallbacks; a missing GNSS input never has data.
func New(src Sources, emitter RecordEmitter, presenter status.Presenter, opts Options) *Scheduler {
	if src.GNSS == nil {
		src.GNSS = gps.Empty{}
	}
	if src.Position == nil {
		src.Position = gps.NewReceiver()
	}
	if src.Inertial == nil {
		src.Inertial = imu.Absent{}
	}
	if src.Magnetic == nil {
		src.Magnetic = imu.FixedField{}
	}
	if presenter == nil {
		presenter = status.Discard{}
	}
	if opts.Layout.LogInterval == 0 {
		opts.Layout = telemetry.HighRate
	}
	if opts.DisplayInterval == 0 {
		opts.DisplayInterval = DefaultDisplayInterval
	}

	return &Scheduler{
		src:          src,
		emitter:      emitter,
		presenter:    presenter,
		layout:       opts.Layout,
		logTimer:     NewIntervalTimer(opts.Layout.LogInterval, 0),
		displayTimer: NewIntervalTimer(opts.DisplayInterval, 0),
		idle:         opts.IdleSleep,
	}
}

// Tick runs one loop iteration at now. GNSS input is always drained first,
// regardless of timer state; then the log timer and the display timer are
// checked independently, in that order.
func (s *Scheduler) Tick(now Instant) {
	s.drainGNSS()

	if t := s.logClock(now); s.logTimer.Due(t) {
		s.logTick(t)
	}

	if s.displayTimer.Due(now.Millis) {
		s.stats.DisplayTicks++
		s.presenter.Present(status.FromFix(s.src.Position.Fix(), now.Millis))
	}
}

// Run ticks until ctx is cancelled. On the device the loop only ends with
// power loss; cancellation exists for the host build and tests.
func (s *Scheduler) Run(ctx context.Context, clock Clock) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.Tick(clock.Now())

		if s.idle > 0 {
			time.Sleep(s.idle)
		} else {
			runtime.Gosched()
		}
	}
}

// Stats returns a copy of the counters.
func (s *Scheduler) Stats() Stats { return s.stats }

// Layout returns the telemetry variant in use.
func (s *Scheduler) Layout() telemetry.Layout { return s.layout }

// drainGNSS consumes exactly the bytes buffered at entry, so a fast
// producer cannot keep the loop here forever.
func (s *Scheduler) drainGNSS() {
	for n := s.src.GNSS.Available(); n > 0; n-- {
		b, err := s.src.GNSS.ReadByte()
		if err != nil {
			return
		}
		s.stats.GNSSBytes++
		if s.src.Position.Encode(b) {
			s.stats.GNSSSentences++
		}
	}
}

func (s *Scheduler) logClock(now Instant) uint32 {
	if s.layout.Unit == telemetry.Milliseconds {
		return now.Millis
	}
	return now.Micros
}

func (s *Scheduler) logTick(ts uint32) {
	var motion imu.InertialSample
	if s.src.Inertial.DataReady() {
		m, err := s.src.Inertial.Read()
		if err != nil {
			s.stats.InertialErrors++
		} else {
			motion = m
		}
	} else {
		s.stats.InertialMisses++
	}

	mag := s.src.Magnetic.Read()
	fix := s.src.Position.Fix().Telemetry()

	s.stats.Records++
	err := s.emitter.Emit(telemetry.Record{
		Timestamp:  ts,
		Satellites: fix.Satellites,
		Latitude:   fix.Latitude,
		Longitude:  fix.Longitude,
		HDOP:       fix.HDOP,
		Accel:      motion.Accel,
		Gyro:       motion.Gyro,
		Mag:        mag.Field,
	})
	if err != nil {
		s.stats.EmitErrors++
		if s.stats.EmitErrors%errorLogEvery == 1 {
			log.Printf("sampling: emit failed (%d so far): %v", s.stats.EmitErrors, err)
		}
	}
}
