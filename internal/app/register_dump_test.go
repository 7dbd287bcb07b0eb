// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type mapRegs struct {
	vals map[byte]byte
	fail byte
}

func (m mapRegs) ReadReg(reg byte) (byte, error) {
	if reg == m.fail {
		return 0, errors.New("nack")
	}
	return m.vals[reg], nil
}

func TestDumpRegisters(t *testing.T) {
	var out bytes.Buffer
	regs := mapRegs{vals: map[byte]byte{0x00: 0x80, 0x0B: 0x08}, fail: 0x29}

	snap, err := DumpRegisters(&out, regs, "qmc6310")
	if err != nil {
		t.Fatalf("DumpRegisters: %v", err)
	}
	if snap.Registers["CHIP_ID"] != "0x80" || snap.Registers["CTRL2"] != "0x08" {
		t.Fatalf("registers = %v", snap.Registers)
	}
	if _, ok := snap.Errors["AXIS_SIGN"]; !ok {
		t.Fatalf("expected AXIS_SIGN error, got %v", snap.Errors)
	}
	if !strings.Contains(out.String(), "0x00 CHIP_ID          0x80  10000000") {
		t.Fatalf("table:\n%s", out.String())
	}
}

func TestDumpRegisters_UnknownDevice(t *testing.T) {
	if _, err := DumpRegisters(&bytes.Buffer{}, mapRegs{}, "bmp280"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRegisterDevices_Sorted(t *testing.T) {
	got := strings.Join(RegisterDevices(), ",")
	if got != "axp2101,mpu9250,qmc6310,qmi8658" {
		t.Fatalf("devices = %s", got)
	}
}
