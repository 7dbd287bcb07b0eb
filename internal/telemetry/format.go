// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"strconv"

	"github.com/relabs-tech/lokata/internal/gps"
	"github.com/relabs-tech/lokata/internal/imu"
)

// Tag starts every telemetry line.
const Tag = "DATA"

// MaxLineLen bounds a formatted line. Every field is a bounded numeric.
const MaxLineLen = 256

// AppendLine formats rec onto dst:
//
//	DATA,<ts>,<sats>,<lat_e7>,<lon_e7>,<hdop>,[<accuracy_m>,]<ax>,<ay>,<az>,<gx>,<gy>,<gz>,<mx>,<my>,<mz>\n
func (l Layout) AppendLine(dst []byte, rec Record) []byte {
	dst = append(dst, Tag...)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(rec.Timestamp), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(rec.Satellites), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, gps.ScaleE7(rec.Latitude), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, gps.ScaleE7(rec.Longitude), 10)
	dst = append(dst, ',')
	dst = appendFixed(dst, rec.HDOP, 2)
	if l.WithAccuracy {
		dst = append(dst, ',')
		dst = appendFixed(dst, gps.EstimatedErrorMeters(rec.HDOP), 2)
	}
	dst = appendVec(dst, rec.Accel, l.MotionDigits)
	dst = appendVec(dst, rec.Gyro, l.MotionDigits)
	dst = appendVec(dst, rec.Mag, 2)
	return append(dst, '\n')
}

func appendVec(dst []byte, v imu.Vec3, digits int) []byte {
	dst = append(dst, ',')
	dst = appendFixed(dst, v.X, digits)
	dst = append(dst, ',')
	dst = appendFixed(dst, v.Y, digits)
	dst = append(dst, ',')
	dst = appendFixed(dst, v.Z, digits)
	return dst
}

// appendFixed writes f with a fixed number of decimals, like %.Nf, but
// never prints "-0.00" so an all-zero sample reads as zero.
func appendFixed(dst []byte, f float64, digits int) []byte {
	start := len(dst)
	dst = strconv.AppendFloat(dst, f, 'f', digits, 64)
	if dst[start] == '-' && isZeroDigits(dst[start+1:]) {
		copy(dst[start:], dst[start+1:])
		dst = dst[:len(dst)-1]
	}
	return dst
}

func isZeroDigits(b []byte) bool {
	for _, c := range b {
		if c != '0' && c != '.' {
			return false
		}
	}
	return true
}
