// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"fmt"
	"time"

	"github.com/relabs-tech/lokata/internal/imu"
)

// Record is one logging tick. It is built, serialized and discarded within
// the tick; nothing keeps a reference to it.
type Record struct {
	Timestamp  uint32 // in the layout's TimestampUnit
	Satellites uint32
	Latitude   float64 // degrees, already passed through the fix fallbacks
	Longitude  float64
	HDOP       float64
	Accel      imu.Vec3
	Gyro       imu.Vec3
	Mag        imu.Vec3
}

// TimestampUnit selects which clock feeds the timestamp and log timer.
type TimestampUnit int

const (
	Microseconds TimestampUnit = iota
	Milliseconds
)

func (u TimestampUnit) String() string {
	if u == Milliseconds {
		return "ms"
	}
	return "us"
}

// Layout is a build variant of the telemetry line. Field order and count
// are fixed for the life of a Layout.
type Layout struct {
	Name         string
	Unit         TimestampUnit
	LogInterval  uint32 // in Unit
	MotionDigits int    // decimals for accel and gyro
	WithAccuracy bool   // emit hdop*2 after hdop
}

var (
	// HighRate is the 100 Hz variant with microsecond timestamps.
	HighRate = Layout{
		Name:         "highrate",
		Unit:         Microseconds,
		LogInterval:  10_000,
		MotionDigits: 3,
	}

	// Fusion is the 20 Hz variant that carries the accuracy estimate.
	Fusion = Layout{
		Name:         "fusion",
		Unit:         Milliseconds,
		LogInterval:  50,
		MotionDigits: 2,
		WithAccuracy: true,
	}
)

// LayoutByName returns one of the predefined layouts.
func LayoutByName(name string) (Layout, error) {
	switch name {
	case HighRate.Name, "":
		return HighRate, nil
	case Fusion.Name:
		return Fusion, nil
	default:
		return Layout{}, fmt.Errorf("telemetry: unknown layout %q", name)
	}
}

// Interval returns LogInterval as a duration.
func (l Layout) Interval() time.Duration {
	if l.Unit == Milliseconds {
		return time.Duration(l.LogInterval) * time.Millisecond
	}
	return time.Duration(l.LogInterval) * time.Microsecond
}

// Columns names the fields after the DATA tag, in wire order.
func (l Layout) Columns() []string {
	ts := "Micros"
	if l.Unit == Milliseconds {
		ts = "Millis"
	}
	cols := []string{ts, "Sats", "Lat", "Lon", "HDOP"}
	if l.WithAccuracy {
		cols = append(cols, "AccuracyM")
	}
	return append(cols, "Ax", "Ay", "Az", "Gx", "Gy", "Gz", "Mx", "My", "Mz")
}

// FieldCount is len(Columns()), excluding the DATA tag.
func (l Layout) FieldCount() int {
	if l.WithAccuracy {
		return 15
	}
	return 14
}
