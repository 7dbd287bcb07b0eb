// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import "math"

const (
	// CoordinateScale converts decimal degrees to the fixed-point integer
	// carried on the telemetry line.
	CoordinateScale = 10_000_000

	// HDOPSentinel stands in for an unknown HDOP. Consumers treat anything
	// at or above it as "no confidence".
	HDOPSentinel = 99.9

	// AccuracyFactor is the linear HDOP → metres estimate.
	AccuracyFactor = 2.0
)

// Field is a value paired with its validity flag.
type Field[T any] struct {
	value T
	valid bool
}

// Valid wraps v as a valid field.
func Valid[T any](v T) Field[T] {
	return Field[T]{value: v, valid: true}
}

// IsValid reports whether the field currently holds a trusted value.
func (f Field[T]) IsValid() bool { return f.valid }

// Value returns the raw value regardless of validity.
func (f Field[T]) Value() T { return f.value }

// Or returns the value when valid, otherwise fallback.
func (f Field[T]) Or(fallback T) T {
	if f.valid {
		return f.value
	}
	return fallback
}

func (f *Field[T]) set(v T) {
	f.value = v
	f.valid = true
}

// invalidate keeps the last value around (for display) but drops trust in it.
func (f *Field[T]) invalidate() {
	f.valid = false
}

// LatLon is a position in decimal degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Fix is the latest positioning solution, copied out by value.
type Fix struct {
	Location   Field[LatLon]
	Satellites Field[uint32]
	HDOP       Field[float64]
}

// Telemetry is the fix after the fallback policy has been applied.
type Telemetry struct {
	Latitude   float64
	Longitude  float64
	Satellites uint32
	HDOP       float64
}

// Telemetry applies the per-field fallbacks used on the log line:
// an invalid location zeroes lat/lon/satellites, an invalid HDOP becomes
// HDOPSentinel. The two degrade independently.
func (f Fix) Telemetry() Telemetry {
	t := Telemetry{HDOP: f.HDOP.Or(HDOPSentinel)}
	if f.Location.IsValid() {
		loc := f.Location.Value()
		t.Latitude = loc.Lat
		t.Longitude = loc.Lon
		t.Satellites = f.Satellites.Or(0)
	}
	return t
}

// ScaleE7 converts degrees to the ×1e7 integer representation, rounding to
// the nearest unit so values like 12.3456789 survive float error.
func ScaleE7(deg float64) int64 {
	return int64(math.Round(deg * CoordinateScale))
}

// EstimatedErrorMeters is the horizontal error estimate derived from HDOP.
func EstimatedErrorMeters(hdop float64) float64 {
	return hdop * AccuracyFactor
}
