// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// maxSentenceLen bounds the line accumulator. NMEA 0183 caps sentences at 82
// bytes; u-blox proprietary messages can run a little longer.
const maxSentenceLen = 128

// Receiver is a streaming NMEA decoder fed one byte at a time.
// It is not safe for concurrent use; the sampling loop is its only caller.
type Receiver struct {
	line []byte
	fix  Fix

	passed uint64
	failed uint64
}

// NewReceiver returns a Receiver with no fix.
func NewReceiver() *Receiver {
	return &Receiver{line: make([]byte, 0, maxSentenceLen)}
}

// Encode consumes one byte. It returns true when the byte completed a
// sentence that updated the fix.
func (r *Receiver) Encode(b byte) bool {
	switch b {
	case '$':
		// A start marker always begins a fresh sentence, even mid-line.
		r.line = append(r.line[:0], b)
		return false
	case '\r':
		return false
	case '\n':
		if len(r.line) == 0 {
			return false
		}
		line := string(r.line)
		r.line = r.line[:0]
		return r.parse(line)
	}

	if len(r.line) == 0 {
		// Noise between sentences.
		return false
	}
	if len(r.line) >= maxSentenceLen {
		r.line = r.line[:0]
		r.failed++
		return false
	}
	r.line = append(r.line, b)
	return false
}

// Fix returns a copy of the latest solution.
func (r *Receiver) Fix() Fix { return r.fix }

// PassedSentences counts sentences that parsed with a good checksum.
func (r *Receiver) PassedSentences() uint64 { return r.passed }

// FailedSentences counts sentences rejected for checksum, syntax or length.
func (r *Receiver) FailedSentences() uint64 { return r.failed }

func (r *Receiver) parse(line string) bool {
	sentence, err := nmea.Parse(strings.TrimSpace(line))
	if err != nil {
		r.failed++
		return false
	}
	r.passed++

	switch sentence.DataType() {
	case nmea.TypeGGA:
		r.applyGGA(sentence.(nmea.GGA))
	case nmea.TypeRMC:
		r.applyRMC(sentence.(nmea.RMC))
	case nmea.TypeGSA:
		r.applyGSA(sentence.(nmea.GSA))
	default:
		return false
	}
	return true
}

func (r *Receiver) applyGGA(m nmea.GGA) {
	r.fix.Satellites.set(uint32(max(m.NumSatellites, 0)))

	if m.FixQuality == nmea.Invalid || m.FixQuality == "" {
		r.fix.Location.invalidate()
		r.fix.HDOP.invalidate()
		return
	}
	r.fix.Location.set(LatLon{Lat: m.Latitude, Lon: m.Longitude})
	if m.HDOP > 0 {
		r.fix.HDOP.set(m.HDOP)
	} else {
		r.fix.HDOP.invalidate()
	}
}

func (r *Receiver) applyRMC(m nmea.RMC) {
	if m.Validity != nmea.ValidRMC {
		r.fix.Location.invalidate()
		return
	}
	r.fix.Location.set(LatLon{Lat: m.Latitude, Lon: m.Longitude})
}

func (r *Receiver) applyGSA(m nmea.GSA) {
	if m.FixType == nmea.FixNone || m.FixType == "" || m.HDOP <= 0 {
		r.fix.HDOP.invalidate()
		return
	}
	r.fix.HDOP.set(m.HDOP)
}
