// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors holds the register-level drivers for the logger's motion
// and field sensors.
package sensors

import (
	"errors"
	"fmt"
	"io"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// ErrWrongChip is returned when an identity register does not hold the
// expected value.
var ErrWrongChip = errors.New("unexpected chip id")

// sleep is replaced in tests.
var sleep = time.Sleep

// Tx is a full-duplex transfer: write w, then read len(r) bytes.
// Both spi.Conn and *i2c.Dev satisfy it.
type Tx interface {
	Tx(w, r []byte) error
}

// Registers reads and writes 8-bit device registers over SPI or I2C.
// On SPI the read flag is bit 7 of the address byte and the first byte
// clocked back is discarded.
type Registers struct {
	bus Tx
	spi bool
}

// NewSPIRegisters wraps an SPI connection.
func NewSPIRegisters(c Tx) Registers { return Registers{bus: c, spi: true} }

// NewI2CRegisters wraps an I2C device.
func NewI2CRegisters(d Tx) Registers { return Registers{bus: d} }

// Read fills buf starting at reg. The device must auto-increment.
func (r Registers) Read(reg byte, buf []byte) error {
	if !r.spi {
		return r.bus.Tx([]byte{reg}, buf)
	}
	w := make([]byte, len(buf)+1)
	rd := make([]byte, len(buf)+1)
	w[0] = reg | 0x80
	if err := r.bus.Tx(w, rd); err != nil {
		return err
	}
	copy(buf, rd[1:])
	return nil
}

// ReadReg reads a single register.
func (r Registers) ReadReg(reg byte) (byte, error) {
	var b [1]byte
	if err := r.Read(reg, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteReg writes a single register.
func (r Registers) WriteReg(reg, val byte) error {
	if r.spi {
		reg &^= 0x80
		return r.bus.Tx([]byte{reg, val}, make([]byte, 2))
	}
	return r.bus.Tx([]byte{reg, val}, nil)
}

// Update read-modify-writes the bits selected by mask.
func (r Registers) Update(reg, mask, val byte) error {
	cur, err := r.ReadReg(reg)
	if err != nil {
		return err
	}
	return r.WriteReg(reg, cur&^mask|val&mask)
}

func (r Registers) expectID(reg, want byte) error {
	id, err := r.ReadReg(reg)
	if err != nil {
		return fmt.Errorf("read id: %w", err)
	}
	if id != want {
		return fmt.Errorf("%w: 0x%02X, want 0x%02X", ErrWrongChip, id, want)
	}
	return nil
}

// OpenSPI opens an SPI device (e.g. "/dev/spidev0.0", or "" for the first
// one) at up to hz.
func OpenSPI(dev string, hz int, mode spi.Mode) (spi.Conn, io.Closer, error) {
	port, err := spireg.Open(dev)
	if err != nil {
		return nil, nil, fmt.Errorf("open SPI %q: %w", dev, err)
	}
	c, err := port.Connect(physic.Frequency(hz)*physic.Hertz, mode, 8)
	if err != nil {
		port.Close()
		return nil, nil, fmt.Errorf("connect SPI %q: %w", dev, err)
	}
	return c, port, nil
}

// OpenI2C opens bus ("" selects the first one) and addresses addr on it.
func OpenI2C(bus string, addr uint16) (*i2c.Dev, io.Closer, error) {
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, nil, fmt.Errorf("open I2C %q: %w", bus, err)
	}
	return &i2c.Dev{Bus: b, Addr: addr}, b, nil
}

func le16(b []byte) int16 { return int16(uint16(b[0]) | uint16(b[1])<<8) }

func be16(b []byte) int16 { return int16(uint16(b[0])<<8 | uint16(b[1])) }
