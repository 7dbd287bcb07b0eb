// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// Vec3 is a three-axis reading.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// InertialSample is one accelerometer + gyroscope reading.
// Units are whatever the backend reports (g and °/s for the on-board parts).
// The zero value is the documented "no data this tick" fallback.
type InertialSample struct {
	Accel Vec3 `json:"accel"`
	Gyro  Vec3 `json:"gyro"`
}

// MagneticSample is one magnetometer reading (gauss on the on-board part).
type MagneticSample struct {
	Field Vec3 `json:"field"`
}

// InertialSource is a 6-axis IMU polled by the sampling loop.
type InertialSource interface {
	// DataReady is a cheap, non-blocking check that a fresh sample exists.
	DataReady() bool
	Read() (InertialSample, error)
}

// MagneticSource always has a reading: the sensor runs faster than the log
// rate, so its latest value is treated as fresh. Backends hide bus errors
// by returning the last good reading.
type MagneticSource interface {
	Read() MagneticSample
}

// Absent stands in for an IMU that failed bring-up. It is never ready, so
// every tick logs the zero sample.
type Absent struct{}

func (Absent) DataReady() bool               { return false }
func (Absent) Read() (InertialSample, error) { return InertialSample{}, nil }

// FixedField is a MagneticSource that always returns the same reading.
// A zero FixedField stands in for a magnetometer that failed bring-up.
type FixedField MagneticSample

func (f FixedField) Read() MagneticSample { return MagneticSample(f) }
