// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sim

import (
	"math"
	"testing"
	"time"

	"github.com/relabs-tech/lokata/internal/gps"
)

type manualClock struct{ t time.Duration }

func (c *manualClock) elapsed() time.Duration { return c.t }

func drain(t *testing.T, src gps.ByteSource, rx *gps.Receiver) int {
	t.Helper()
	sentences := 0
	for n := src.Available(); n > 0; n-- {
		b, err := src.ReadByte()
		if err != nil {
			t.Fatalf("ReadByte: %v", err)
		}
		if rx.Encode(b) {
			sentences++
		}
	}
	return sentences
}

func TestGNSS_AcquiresAfterDelay(t *testing.T) {
	clk := &manualClock{}
	g := NewGNSS(clk.elapsed, 5*time.Second, gps.LatLon{Lat: 48.1173, Lon: 11.5167})
	rx := gps.NewReceiver()

	if n := drain(t, g, rx); n != 3 {
		t.Fatalf("sentences at t=0: %d, want 3", n)
	}
	if rx.Fix().Location.IsValid() || rx.Fix().HDOP.IsValid() {
		t.Fatalf("fix valid before acquisition: %+v", rx.Fix())
	}
	if rx.FailedSentences() != 0 {
		t.Fatalf("simulated sentences failed to parse: %d", rx.FailedSentences())
	}

	// Same second: nothing new.
	clk.t = 900 * time.Millisecond
	if g.Available() != 0 {
		t.Fatalf("burst repeated within a second")
	}

	clk.t = 6 * time.Second
	drain(t, g, rx)
	fix := rx.Fix()
	if !fix.Location.IsValid() || !fix.HDOP.IsValid() {
		t.Fatalf("no fix after acquisition: %+v", fix)
	}
	loc := fix.Location.Value()
	if math.Abs(loc.Lat-48.1173) > 0.001 || math.Abs(loc.Lon-11.5167) > 0.001 {
		t.Fatalf("position %+v far from origin", loc)
	}
	if fix.Satellites.Value() != 9 {
		t.Fatalf("satellites = %d", fix.Satellites.Value())
	}
	if rx.FailedSentences() != 0 {
		t.Fatalf("simulated sentences failed to parse: %d", rx.FailedSentences())
	}
}

func TestGNSS_SouthernWesternHemisphere(t *testing.T) {
	clk := &manualClock{t: 10 * time.Second}
	g := NewGNSS(clk.elapsed, 0, gps.LatLon{Lat: -33.8688, Lon: -70.6693})
	rx := gps.NewReceiver()
	drain(t, g, rx)

	loc := rx.Fix().Location.Value()
	if math.Abs(loc.Lat+33.8688) > 0.001 || math.Abs(loc.Lon+70.6693) > 0.001 {
		t.Fatalf("position %+v", loc)
	}
}

func TestNMEACoord(t *testing.T) {
	s, h := nmeaCoord(48.1173, 2, "N", "S")
	if s != "4807.03800" || h != "N" {
		t.Fatalf("got %s %s", s, h)
	}
	s, h = nmeaCoord(-11.5, 3, "E", "W")
	if s != "01130.00000" || h != "W" {
		t.Fatalf("got %s %s", s, h)
	}
}

func TestInertial_ReadyOncePerPeriod(t *testing.T) {
	clk := &manualClock{}
	s := NewInertial(clk.elapsed, 10*time.Millisecond)
	if !s.DataReady() {
		t.Fatalf("first sample should be ready")
	}
	sample, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if sample.Accel.Z != 1 {
		t.Fatalf("gravity missing: %+v", sample.Accel)
	}
	if s.DataReady() {
		t.Fatalf("ready twice in one period")
	}
	clk.t = 10 * time.Millisecond
	if !s.DataReady() {
		t.Fatalf("expected ready in next period")
	}
}

func TestMagnetic_Magnitude(t *testing.T) {
	clk := &manualClock{t: 17 * time.Second}
	f := NewMagnetic(clk.elapsed).Read().Field
	if h := math.Hypot(f.X, f.Y); math.Abs(h-0.45) > 1e-9 {
		t.Fatalf("horizontal magnitude = %v", h)
	}
}
