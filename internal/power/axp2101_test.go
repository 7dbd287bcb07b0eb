// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package power

import (
	"errors"
	"testing"

	"github.com/relabs-tech/lokata/internal/sensors"
)

type fakeI2C struct {
	mem  [256]byte
	fail error
}

func (f *fakeI2C) Tx(w, r []byte) error {
	if f.fail != nil {
		return f.fail
	}
	if len(r) > 0 {
		for i := range r {
			r[i] = f.mem[int(w[0])+i]
		}
		return nil
	}
	f.mem[w[0]] = w[1]
	return nil
}

func TestNew_ChecksChipID(t *testing.T) {
	f := &fakeI2C{}
	if _, err := New(sensors.NewI2CRegisters(f)); !errors.Is(err, ErrNoPMU) {
		t.Fatalf("err = %v", err)
	}
	f.fail = errors.New("nack")
	if _, err := New(sensors.NewI2CRegisters(f)); !errors.Is(err, ErrNoPMU) {
		t.Fatalf("err = %v", err)
	}
}

func TestEnableRails_SensorRails(t *testing.T) {
	f := &fakeI2C{}
	f.mem[regChipID] = chipID
	f.mem[regLDOOnOff] = 0x10 // a DLDO already on stays on
	p, err := New(sensors.NewI2CRegisters(f))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.EnableRails(SensorRails); err != nil {
		t.Fatalf("EnableRails: %v", err)
	}
	if f.mem[0x92] != 28 || f.mem[0x95] != 28 {
		t.Fatalf("voltage codes = %d, %d, want 28", f.mem[0x92], f.mem[0x95])
	}
	if f.mem[regLDOOnOff] != 0x19 {
		t.Fatalf("enable = 0x%02X, want 0x19", f.mem[regLDOOnOff])
	}
}

func TestEnableRails_RejectsBadVoltage(t *testing.T) {
	f := &fakeI2C{}
	f.mem[regChipID] = chipID
	p, err := New(sensors.NewI2CRegisters(f))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, mv := range []int{400, 3600, 3350} {
		if err := p.EnableRails([]RailSetting{{ALDO1, mv}}); err == nil {
			t.Fatalf("%dmV accepted", mv)
		}
	}
	if f.mem[regLDOOnOff] != 0 {
		t.Fatalf("rails switched on after rejected settings")
	}
}

func TestEnableRails_BusErrorIsFatal(t *testing.T) {
	f := &fakeI2C{}
	f.mem[regChipID] = chipID
	p, err := New(sensors.NewI2CRegisters(f))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.fail = errors.New("nack")
	if err := p.EnableRails(SensorRails); err == nil {
		t.Fatalf("expected error")
	}
}
