// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"testing"
	"time"
)

// fakeRegs is a 256-byte register file behind a Tx. In SPI mode the first
// write byte is the address with bit 7 as the read flag and the first read
// byte is a dummy; in I2C mode a read is a one-byte write followed by r.
type fakeRegs struct {
	spi    bool
	mem    [256]byte
	writes []regWrite
	failOn map[byte]error // address → error for any transfer touching it
	onRead map[byte]func(*fakeRegs)
}

type regWrite struct{ reg, val byte }

func newFakeRegs(spi bool) *fakeRegs {
	return &fakeRegs{spi: spi, failOn: map[byte]error{}, onRead: map[byte]func(*fakeRegs){}}
}

func (f *fakeRegs) Tx(w, r []byte) error {
	if len(w) == 0 {
		return errors.New("empty write")
	}
	addr := w[0]
	read := len(r) > 0 && (!f.spi || addr&0x80 != 0)
	if f.spi {
		addr &^= 0x80
	}
	if err := f.failOn[addr]; err != nil {
		return err
	}
	if !read {
		if len(w) != 2 {
			return errors.New("unexpected write length")
		}
		f.mem[addr] = w[1]
		f.writes = append(f.writes, regWrite{addr, w[1]})
		return nil
	}
	if hook := f.onRead[addr]; hook != nil {
		hook(f)
	}
	out := r
	if f.spi {
		out = r[1:]
	}
	for i := range out {
		out[i] = f.mem[byte(int(addr)+i)]
	}
	return nil
}

func (f *fakeRegs) regs() Registers {
	if f.spi {
		return NewSPIRegisters(f)
	}
	return NewI2CRegisters(f)
}

func (f *fakeRegs) put16LE(reg byte, v int16) {
	f.mem[reg] = byte(uint16(v))
	f.mem[reg+1] = byte(uint16(v) >> 8)
}

func (f *fakeRegs) put16BE(reg byte, v int16) {
	f.mem[reg] = byte(uint16(v) >> 8)
	f.mem[reg+1] = byte(uint16(v))
}

func (f *fakeRegs) lastWrite(reg byte) (byte, bool) {
	for i := len(f.writes) - 1; i >= 0; i-- {
		if f.writes[i].reg == reg {
			return f.writes[i].val, true
		}
	}
	return 0, false
}

func noSleep(t *testing.T) {
	t.Helper()
	prev := sleep
	sleep = func(time.Duration) {}
	t.Cleanup(func() { sleep = prev })
}

func near(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func TestRegisters_SPIFraming(t *testing.T) {
	f := newFakeRegs(true)
	f.mem[0x10] = 0xAA
	f.mem[0x11] = 0xBB
	r := f.regs()

	buf := make([]byte, 2)
	if err := r.Read(0x10, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if buf[0] != 0xAA || buf[1] != 0xBB {
		t.Fatalf("buf = % X", buf)
	}
	if err := r.Update(0x10, 0x0F, 0x05); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if f.mem[0x10] != 0xA5 {
		t.Fatalf("after update: 0x%02X", f.mem[0x10])
	}
}

func TestRegisters_ExpectIDWrapsSentinel(t *testing.T) {
	f := newFakeRegs(false)
	f.mem[0x00] = 0x12
	err := f.regs().expectID(0x00, 0x80)
	if !errors.Is(err, ErrWrongChip) {
		t.Fatalf("err = %v", err)
	}
}
