// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"testing"

	"github.com/relabs-tech/lokata/internal/imu"
)

func newTestQMC(t *testing.T) (*QMC6310, *fakeRegs) {
	t.Helper()
	noSleep(t)
	f := newFakeRegs(false)
	f.mem[qmcChipIDReg] = qmcChipID
	m, err := NewQMC6310(f.regs(), QMCRange8G)
	if err != nil {
		t.Fatalf("NewQMC6310: %v", err)
	}
	return m, f
}

func TestQMC6310_Configures(t *testing.T) {
	_, f := newTestQMC(t)
	if v, _ := f.lastWrite(qmcCtrl1); v != 0xCF {
		t.Fatalf("CTRL1 = 0x%02X, want continuous/200Hz/OSR8/DSR8", v)
	}
	if v, _ := f.lastWrite(qmcCtrl2); v != 0x08 {
		t.Fatalf("CTRL2 = 0x%02X, want 8G range", v)
	}
	if v, _ := f.lastWrite(qmcSignReg); v != qmcSignXYZ {
		t.Fatalf("sign = 0x%02X", v)
	}
}

func TestQMC6310_WrongChip(t *testing.T) {
	noSleep(t)
	f := newFakeRegs(false)
	if _, err := NewQMC6310(f.regs(), QMCRange8G); !errors.Is(err, ErrWrongChip) {
		t.Fatalf("err = %v", err)
	}
}

func TestQMC6310_ReadsGauss(t *testing.T) {
	m, f := newTestQMC(t)
	f.mem[qmcStatus] = qmcDataReady
	f.put16LE(qmcDataX, 3750)
	f.put16LE(qmcDataX+2, -1875)
	f.put16LE(qmcDataX+4, 375)

	got := m.Read().Field
	if !near(got.X, 1) || !near(got.Y, -0.5) || !near(got.Z, 0.1) {
		t.Fatalf("field = %+v", got)
	}
}

func TestQMC6310_HoldsLastReading(t *testing.T) {
	m, f := newTestQMC(t)
	f.mem[qmcStatus] = qmcDataReady
	f.put16LE(qmcDataX, 3750)
	first := m.Read()

	// Not ready: no new data.
	f.mem[qmcStatus] = 0
	f.put16LE(qmcDataX, 0)
	if got := m.Read(); got != first {
		t.Fatalf("not-ready read changed value: %+v", got)
	}

	// Overflow: discard.
	f.mem[qmcStatus] = qmcDataReady | qmcOverflow
	if got := m.Read(); got != first {
		t.Fatalf("overflow read changed value: %+v", got)
	}

	// Bus error: hold and count.
	f.failOn[qmcStatus] = errors.New("nack")
	if got := m.Read(); got != first {
		t.Fatalf("failed read changed value: %+v", got)
	}
	if m.Errors() != 1 {
		t.Fatalf("errors = %d", m.Errors())
	}
}

func TestQMC6310_ZeroBeforeFirstSample(t *testing.T) {
	m, _ := newTestQMC(t)
	if got := m.Read(); got != (imu.MagneticSample{}) {
		t.Fatalf("got %+v", got)
	}
}
