// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sampling

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/relabs-tech/lokata/internal/gps"
	"github.com/relabs-tech/lokata/internal/imu"
	"github.com/relabs-tech/lokata/internal/status"
	"github.com/relabs-tech/lokata/internal/telemetry"
)

type fakeInertial struct {
	ready  bool
	sample imu.InertialSample
	err    error
	reads  int
}

func (f *fakeInertial) DataReady() bool { return f.ready }

func (f *fakeInertial) Read() (imu.InertialSample, error) {
	f.reads++
	return f.sample, f.err
}

type recordingEmitter struct {
	records []telemetry.Record
	err     error
}

func (e *recordingEmitter) Emit(rec telemetry.Record) error {
	e.records = append(e.records, rec)
	return e.err
}

type recordingPresenter struct {
	snaps []status.Snapshot
}

func (p *recordingPresenter) Present(s status.Snapshot) { p.snaps = append(p.snaps, s) }

func nmeaLine(payload string) string {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", payload, ck)
}

// twoDecimals reproduces the line format with two-decimal motion fields.
func twoDecimals() telemetry.Layout {
	l := telemetry.HighRate
	l.MotionDigits = 2
	return l
}

func TestScheduler_EndToEndNoFix(t *testing.T) {
	var out bytes.Buffer
	layout := twoDecimals()
	s := New(Sources{
		GNSS:     gps.NewRxBuffer(64),
		Inertial: &fakeInertial{ready: false, sample: imu.InertialSample{Accel: imu.Vec3{X: 5}}},
		Magnetic: imu.FixedField{Field: imu.Vec3{X: 1, Y: 2, Z: 3}},
	}, telemetry.NewEmitter(layout, &out), nil, Options{Layout: layout})

	s.Tick(Instant{Micros: 12_345_000, Millis: 12_345})

	want := "DATA,12345000,0,0,0,99.90,0.00,0.00,0.00,0.00,0.00,0.00,1.00,2.00,3.00\n"
	if out.String() != want {
		t.Fatalf("line mismatch\n got: %q\nwant: %q", out.String(), want)
	}
	if st := s.Stats(); st.InertialMisses != 1 || st.Records != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestScheduler_EndToEndValidFix(t *testing.T) {
	rx := gps.NewRxBuffer(1024)
	rx.Write([]byte(nmeaLine("GNGGA,123519.00,1220.740734,N,09845.925926,E,1,07,1.5,545.4,M,46.9,M,,")))

	var out bytes.Buffer
	inertial := &fakeInertial{ready: true, sample: imu.InertialSample{
		Accel: imu.Vec3{X: 0.1, Y: 0.2, Z: 9.8},
		Gyro:  imu.Vec3{Z: 0.01},
	}}
	s := New(Sources{GNSS: rx, Inertial: inertial}, telemetry.NewEmitter(telemetry.HighRate, &out), nil, Options{})

	// The bytes arrive in the same iteration as the log tick; draining
	// first means this record already carries the fix.
	s.Tick(Instant{Micros: 20_000, Millis: 20})

	fields := strings.Split(strings.TrimSpace(out.String()), ",")
	if len(fields) != 15 {
		t.Fatalf("fields = %d: %q", len(fields), out.String())
	}
	if fields[2] != "7" || fields[3] != "123456789" || fields[4] != "987654321" || fields[5] != "1.50" {
		t.Fatalf("unexpected gnss fields: %v", fields[2:6])
	}
	if fields[6] != "0.100" || fields[8] != "9.800" || fields[11] != "0.010" {
		t.Fatalf("unexpected motion fields: %v", fields[6:12])
	}
	if inertial.reads != 1 {
		t.Fatalf("inertial reads = %d", inertial.reads)
	}
}

func TestScheduler_InertialNotReadyOrFailingZeroFills(t *testing.T) {
	sample := imu.InertialSample{Accel: imu.Vec3{X: 1, Y: 1, Z: 1}, Gyro: imu.Vec3{X: 1, Y: 1, Z: 1}}
	tests := []struct {
		name   string
		source *fakeInertial
		reads  int
	}{
		{"not ready", &fakeInertial{ready: false, sample: sample}, 0},
		{"read error", &fakeInertial{ready: true, sample: sample, err: errors.New("spi")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em := &recordingEmitter{}
			s := New(Sources{Inertial: tt.source}, em, nil, Options{})
			s.Tick(Instant{Micros: 10_000, Millis: 10})

			if len(em.records) != 1 {
				t.Fatalf("records = %d", len(em.records))
			}
			rec := em.records[0]
			if rec.Accel != (imu.Vec3{}) || rec.Gyro != (imu.Vec3{}) {
				t.Fatalf("expected zero motion, got %+v %+v", rec.Accel, rec.Gyro)
			}
			if tt.source.reads != tt.reads {
				t.Fatalf("reads = %d, want %d", tt.source.reads, tt.reads)
			}
		})
	}
}

func TestScheduler_InvalidLocationZeroesFields(t *testing.T) {
	rx := gps.NewRxBuffer(1024)
	rx.Write([]byte(nmeaLine("GNGGA,123519.00,1220.740734,N,09845.925926,E,1,07,1.5,545.4,M,46.9,M,,")))
	rx.Write([]byte(nmeaLine("GNRMC,123520.00,V,1220.740734,N,09845.925926,E,0.0,0.0,191026,003.1,W")))

	em := &recordingEmitter{}
	s := New(Sources{GNSS: rx}, em, nil, Options{})
	s.Tick(Instant{Micros: 10_000, Millis: 10})

	rec := em.records[0]
	if rec.Latitude != 0 || rec.Longitude != 0 || rec.Satellites != 0 {
		t.Fatalf("expected zeroed location fields, got %+v", rec)
	}
	// HDOP degrades on its own flag, not the location's.
	if rec.HDOP != 1.5 {
		t.Fatalf("hdop = %v, want 1.5", rec.HDOP)
	}
}

func TestScheduler_DrainIsUnconditional(t *testing.T) {
	rx := gps.NewRxBuffer(4096)
	em := &recordingEmitter{}
	s := New(Sources{GNSS: rx}, em, nil, Options{})

	s.Tick(Instant{Micros: 10_000, Millis: 10}) // log tick fires, period restarts

	burst := strings.Repeat(nmeaLine("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"), 20)
	rx.Write([]byte(burst))

	// Neither timer is due here.
	s.Tick(Instant{Micros: 10_001, Millis: 10})
	if rx.Available() != 0 {
		t.Fatalf("%d bytes left after a non-logging iteration", rx.Available())
	}
	if len(em.records) != 1 {
		t.Fatalf("records = %d, want 1", len(em.records))
	}
	if st := s.Stats(); st.GNSSBytes != uint64(len(burst)) || st.GNSSSentences != 20 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestScheduler_CadenceOverSustainedRun(t *testing.T) {
	em := &recordingEmitter{}
	s := New(Sources{}, em, nil, Options{})

	// Loop iterations of irregular length, all shorter than maxStep.
	const maxStep = 450
	var micros uint32 = 1
	for len(em.records) < 1001 {
		micros += 37 + uint32(len(em.records)*7919+int(micros))%400
		s.Tick(Instant{Micros: micros, Millis: micros / 1000})
	}

	var total uint64
	for i := 1; i < len(em.records); i++ {
		gap := em.records[i].Timestamp - em.records[i-1].Timestamp
		if gap < 10_000 {
			t.Fatalf("tick %d came early: gap %d", i, gap)
		}
		if gap >= 10_000+maxStep {
			t.Fatalf("tick %d came late: gap %d", i, gap)
		}
		total += uint64(gap)
	}
	avg := float64(total) / 1000
	if avg < 10_000 || avg > 10_000+maxStep {
		t.Fatalf("average spacing %.1f outside tolerance", avg)
	}
}

func TestScheduler_CorrectAcrossClockOverflow(t *testing.T) {
	em := &recordingEmitter{}
	s := New(Sources{}, em, nil, Options{})

	micros := uint32(1<<32 - 25_000)
	for i := 0; i < 10_000; i++ { // 10,000 × 10 µs = 100 ms, crossing the wrap
		micros += 10
		s.Tick(Instant{Micros: micros})
	}
	if n := len(em.records); n < 9 || n > 11 {
		t.Fatalf("records = %d over 100 ms, want ~10", n)
	}
	for i := 1; i < len(em.records); i++ {
		if gap := em.records[i].Timestamp - em.records[i-1].Timestamp; gap != 10_000 {
			t.Fatalf("gap %d across wrap", gap)
		}
	}
}

func TestScheduler_DisplayAndLogTimersIndependent(t *testing.T) {
	em := &recordingEmitter{}
	p := &recordingPresenter{}
	s := New(Sources{}, em, p, Options{})

	// 2 s at 1 ms steps.
	for ms := uint32(1); ms <= 2000; ms++ {
		s.Tick(Instant{Micros: ms * 1000, Millis: ms})
	}
	if len(em.records) != 200 {
		t.Fatalf("log ticks = %d, want 200", len(em.records))
	}
	if len(p.snaps) != 4 {
		t.Fatalf("display ticks = %d, want 4", len(p.snaps))
	}
	for i, snap := range p.snaps {
		if want := uint32(500 * (i + 1)); snap.Uptime != want {
			t.Fatalf("display tick %d at %d ms, want %d", i, snap.Uptime, want)
		}
	}
	if s.logTimer.Last() != 2_000_000 || s.displayTimer.Last() != 2000 {
		t.Fatalf("timers: log=%d display=%d", s.logTimer.Last(), s.displayTimer.Last())
	}
}

func TestScheduler_DisplayFiresWithoutLogTick(t *testing.T) {
	p := &recordingPresenter{}
	em := &recordingEmitter{}
	s := New(Sources{}, em, p, Options{Layout: telemetry.Fusion, DisplayInterval: 500})

	// Log timer (ms) fires at 50; the display timer is still waiting.
	s.Tick(Instant{Millis: 50})
	if len(em.records) != 1 || len(p.snaps) != 0 {
		t.Fatalf("records=%d snaps=%d", len(em.records), len(p.snaps))
	}
	s.Tick(Instant{Millis: 500})
	if len(p.snaps) != 1 {
		t.Fatalf("display did not fire")
	}
	if em.records[0].Timestamp != 50 {
		t.Fatalf("fusion timestamp = %d, want ms", em.records[0].Timestamp)
	}
}

func TestScheduler_EmitErrorsAreNonFatal(t *testing.T) {
	em := &recordingEmitter{err: errors.New("stream gone")}
	s := New(Sources{}, em, nil, Options{})
	for ms := uint32(10); ms <= 50; ms += 10 {
		s.Tick(Instant{Micros: ms * 1000, Millis: ms})
	}
	if st := s.Stats(); st.EmitErrors != 5 || st.Records != 5 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

type stepClock struct{ now Instant }

func (c *stepClock) Now() Instant {
	c.now.Micros += 1000
	c.now.Millis++
	return c.now
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	em := &recordingEmitter{}
	s := New(Sources{}, em, nil, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Run(ctx, &stepClock{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run returned %v", err)
	}
	if len(em.records) == 0 {
		t.Fatalf("expected some records")
	}
}
