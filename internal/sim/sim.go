// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sim provides hardware-free stand-ins for the GNSS receiver, the
// IMU and the magnetometer so the logger can run on a development host.
package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/relabs-tech/lokata/internal/gps"
	"github.com/relabs-tech/lokata/internal/imu"
)

// Elapsed reports time since the simulation started.
type Elapsed func() time.Duration

// Since counts from start on the wall clock.
func Since(start time.Time) Elapsed {
	return func() time.Duration { return time.Since(start) }
}

// GNSS emits a GGA/GSA/RMC burst once per simulated second. Until the
// acquisition delay has passed the receiver reports no solution while the
// satellite count climbs.
type GNSS struct {
	elapsed Elapsed
	acquire time.Duration
	origin  gps.LatLon

	pending []byte
	second  int64 // last second emitted
}

// NewGNSS starts a receiver around origin.
func NewGNSS(elapsed Elapsed, acquire time.Duration, origin gps.LatLon) *GNSS {
	return &GNSS{elapsed: elapsed, acquire: acquire, origin: origin, second: -1}
}

// Available implements gps.ByteSource.
func (g *GNSS) Available() int {
	g.refill()
	return len(g.pending)
}

// ReadByte implements gps.ByteSource.
func (g *GNSS) ReadByte() (byte, error) {
	if len(g.pending) == 0 {
		return 0, gps.ErrEmpty
	}
	b := g.pending[0]
	g.pending = g.pending[1:]
	return b, nil
}

func (g *GNSS) refill() {
	el := g.elapsed()
	sec := int64(el / time.Second)
	if sec == g.second {
		return
	}
	// A host that stalled for several seconds gets only the latest burst,
	// the way a receiver reports only its current solution.
	g.second = sec
	g.pending = g.appendBurst(g.pending, el)
}

func (g *GNSS) appendBurst(dst []byte, el time.Duration) []byte {
	sec := int64(el / time.Second)
	utc := fmt.Sprintf("%02d%02d%02d.00", sec/3600%24, sec/60%60, sec%60)

	if el < g.acquire {
		sats := min(sec, 3)
		dst = appendSentence(dst, fmt.Sprintf("GPGGA,%s,0000.0000,N,00000.0000,E,0,%02d,,,M,,M,,", utc, sats))
		dst = appendSentence(dst, "GPGSA,A,1,,,,,,,,,,,,,,,")
		return appendSentence(dst, fmt.Sprintf("GPRMC,%s,V,0000.0000,N,00000.0000,E,0.0,0.0,010125,000.0,E", utc))
	}

	// Walk a 20 m circle around the origin once every two minutes.
	phase := 2 * math.Pi * el.Seconds() / 120
	lat := g.origin.Lat + 20/111_320.0*math.Sin(phase)
	lon := g.origin.Lon + 20/(111_320.0*math.Cos(g.origin.Lat*math.Pi/180))*math.Cos(phase)
	hdop := 0.9 + 0.3*math.Sin(phase*3)

	latS, ns := nmeaCoord(lat, 2, "N", "S")
	lonS, ew := nmeaCoord(lon, 3, "E", "W")
	dst = appendSentence(dst, fmt.Sprintf("GPGGA,%s,%s,%s,%s,%s,1,09,%.1f,545.4,M,46.9,M,,", utc, latS, ns, lonS, ew, hdop))
	dst = appendSentence(dst, fmt.Sprintf("GPGSA,A,3,02,05,07,09,13,15,18,21,30,,,,1.8,%.1f,1.2", hdop))
	return appendSentence(dst, fmt.Sprintf("GPRMC,%s,A,%s,%s,%s,%s,1.2,90.0,010125,000.0,E", utc, latS, ns, lonS, ew))
}

// nmeaCoord formats degrees as (d)ddmm.mmmmm with a hemisphere letter.
func nmeaCoord(deg float64, degDigits int, pos, neg string) (string, string) {
	hemi := pos
	if deg < 0 {
		hemi = neg
		deg = -deg
	}
	whole := math.Floor(deg)
	minutes := (deg - whole) * 60
	return fmt.Sprintf("%0*d%08.5f", degDigits, int(whole), minutes), hemi
}

func appendSentence(dst []byte, body string) []byte {
	var ck byte
	for i := 0; i < len(body); i++ {
		ck ^= body[i]
	}
	return fmt.Appendf(dst, "$%s*%02X\r\n", body, ck)
}

// Inertial latches a new sample every Period, like a chip running at a
// fixed output data rate.
type Inertial struct {
	elapsed Elapsed
	period  time.Duration
	last    int64 // sample index last read
}

// DefaultInertialPeriod matches a 112.1 Hz gyro ODR.
const DefaultInertialPeriod = time.Second * 10 / 1121

// NewInertial creates a source sampling every period.
func NewInertial(elapsed Elapsed, period time.Duration) *Inertial {
	if period <= 0 {
		period = DefaultInertialPeriod
	}
	return &Inertial{elapsed: elapsed, period: period, last: -1}
}

// DataReady implements imu.InertialSource.
func (s *Inertial) DataReady() bool {
	return int64(s.elapsed()/s.period) != s.last
}

// Read implements imu.InertialSource. The device sways gently about level
// with gravity on +Z.
func (s *Inertial) Read() (imu.InertialSample, error) {
	el := s.elapsed()
	s.last = int64(el / s.period)
	t := el.Seconds()
	return imu.InertialSample{
		Accel: imu.Vec3{
			X: 0.05 * math.Sin(2*math.Pi*0.5*t),
			Y: 0.03 * math.Cos(2*math.Pi*0.3*t),
			Z: 1,
		},
		Gyro: imu.Vec3{
			X: 10 * math.Cos(2*math.Pi*0.5*t),
			Y: 5 * math.Sin(2*math.Pi*0.3*t),
			Z: 3,
		},
	}, nil
}

// Magnetic is a 0.45 G horizontal field rotating once a minute, plus a
// fixed vertical component.
type Magnetic struct {
	elapsed Elapsed
}

// NewMagnetic creates the field source.
func NewMagnetic(elapsed Elapsed) *Magnetic { return &Magnetic{elapsed: elapsed} }

// Read implements imu.MagneticSource.
func (m *Magnetic) Read() imu.MagneticSample {
	a := 2 * math.Pi * m.elapsed().Seconds() / 60
	return imu.MagneticSample{Field: imu.Vec3{
		X: 0.45 * math.Cos(a),
		Y: 0.45 * math.Sin(a),
		Z: -0.2,
	}}
}
