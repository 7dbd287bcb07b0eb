// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/lokata/internal/imu"
)

// QMC6310Addr is the fixed I2C address of the QMC6310U.
const QMC6310Addr = 0x1C

// QMC6310 registers
const (
	qmcChipIDReg = 0x00
	qmcDataX     = 0x01
	qmcStatus    = 0x09
	qmcCtrl1     = 0x0A
	qmcCtrl2     = 0x0B
	qmcSignReg   = 0x29

	qmcChipID     = 0x80
	qmcSoftReset  = 1 << 7
	qmcDataReady  = 1 << 0
	qmcOverflow   = 1 << 1
	qmcSignXYZ    = 0x06
	qmcContinuous = 0x03
	qmcODR200Hz   = 0x03
	qmcOSR8       = 0x00
	qmcDSR8       = 0x03
)

// Field ranges, CTRL2 bits 3:2, with their sensitivity in LSB/gauss.
const (
	QMCRange30G = 0
	QMCRange12G = 1
	QMCRange8G  = 2
	QMCRange2G  = 3
)

var qmcLSBPerGauss = [4]float64{1000, 2500, 3750, 15000}

// QMC6310 is a 3-axis magnetometer on I2C, running continuously at 200 Hz.
// Read never fails: it returns the last good reading when the chip has
// nothing new or the bus errors.
type QMC6310 struct {
	regs   Registers
	perLSB float64
	last   imu.MagneticSample
	errors uint64
	warned bool
	buf    [6]byte
}

// NewQMC6310 resets the chip and starts continuous measurement in the
// given range.
func NewQMC6310(regs Registers, fieldRange byte) (*QMC6310, error) {
	if fieldRange > QMCRange2G {
		return nil, fmt.Errorf("qmc6310: invalid range %d", fieldRange)
	}
	if err := regs.expectID(qmcChipIDReg, qmcChipID); err != nil {
		return nil, fmt.Errorf("qmc6310: %w", err)
	}
	if err := regs.WriteReg(qmcCtrl2, qmcSoftReset); err != nil {
		return nil, fmt.Errorf("qmc6310: reset: %w", err)
	}
	sleep(5 * time.Millisecond)
	if err := regs.WriteReg(qmcCtrl2, 0); err != nil {
		return nil, fmt.Errorf("qmc6310: release reset: %w", err)
	}

	if err := regs.WriteReg(qmcSignReg, qmcSignXYZ); err != nil {
		return nil, fmt.Errorf("qmc6310: axis sign: %w", err)
	}
	if err := regs.WriteReg(qmcCtrl2, fieldRange<<2); err != nil {
		return nil, fmt.Errorf("qmc6310: range: %w", err)
	}
	ctrl1 := byte(qmcDSR8<<6 | qmcOSR8<<4 | qmcODR200Hz<<2 | qmcContinuous)
	if err := regs.WriteReg(qmcCtrl1, ctrl1); err != nil {
		return nil, fmt.Errorf("qmc6310: mode: %w", err)
	}

	log.Printf("qmc6310: continuous 200Hz, range index %d", fieldRange)
	return &QMC6310{regs: regs, perLSB: 1 / qmcLSBPerGauss[fieldRange]}, nil
}

// Read returns the field in gauss.
func (m *QMC6310) Read() imu.MagneticSample {
	st, err := m.regs.ReadReg(qmcStatus)
	if err != nil {
		m.fail(err)
		return m.last
	}
	if st&qmcDataReady == 0 || st&qmcOverflow != 0 {
		return m.last
	}
	if err := m.regs.Read(qmcDataX, m.buf[:]); err != nil {
		m.fail(err)
		return m.last
	}
	m.last = imu.MagneticSample{Field: imu.Vec3{
		X: float64(le16(m.buf[0:])) * m.perLSB,
		Y: float64(le16(m.buf[2:])) * m.perLSB,
		Z: float64(le16(m.buf[4:])) * m.perLSB,
	}}
	return m.last
}

// Errors counts failed bus transfers since start.
func (m *QMC6310) Errors() uint64 { return m.errors }

func (m *QMC6310) fail(err error) {
	m.errors++
	if !m.warned {
		m.warned = true
		log.Printf("qmc6310: read error (holding last value): %v", err)
	}
}
