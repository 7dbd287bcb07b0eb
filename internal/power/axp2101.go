// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package power brings up the AXP2101 PMU rails that feed the sensors and
// the GNSS module.
package power

import (
	"errors"
	"fmt"
	"log"

	"github.com/relabs-tech/lokata/internal/sensors"
)

// Addr is the AXP2101's I2C address.
const Addr = 0x34

const (
	regChipID   = 0x03
	regLDOOnOff = 0x90
	regALDO1V   = 0x92

	chipID = 0x4A

	aldoMinMV  = 500
	aldoMaxMV  = 3500
	aldoStepMV = 100
)

// Rail is one of the four ALDO outputs.
type Rail int

const (
	ALDO1 Rail = iota + 1
	ALDO2
	ALDO3
	ALDO4
)

func (r Rail) String() string { return fmt.Sprintf("ALDO%d", int(r)) }

// RailSetting is a rail and its target voltage.
type RailSetting struct {
	Rail Rail
	MV   int
}

// SensorRails are the rails the logger needs: ALDO1 (sensors) and ALDO4
// (GNSS), both at 3.3 V.
var SensorRails = []RailSetting{
	{ALDO1, 3300},
	{ALDO4, 3300},
}

// ErrNoPMU is returned when the PMU does not answer or identifies as
// something else. Without it the board has no sensor power.
var ErrNoPMU = errors.New("power: AXP2101 not found")

// AXP2101 drives the PMU's LDO rails.
type AXP2101 struct {
	regs sensors.Registers
}

// New checks the chip id.
func New(regs sensors.Registers) (*AXP2101, error) {
	id, err := regs.ReadReg(regChipID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPMU, err)
	}
	if id != chipID {
		return nil, fmt.Errorf("%w: chip id 0x%02X", ErrNoPMU, id)
	}
	return &AXP2101{regs: regs}, nil
}

// EnableRails sets each rail's voltage and then switches it on.
func (p *AXP2101) EnableRails(rails []RailSetting) error {
	for _, rs := range rails {
		if rs.Rail < ALDO1 || rs.Rail > ALDO4 {
			return fmt.Errorf("power: unknown rail %d", rs.Rail)
		}
		if rs.MV < aldoMinMV || rs.MV > aldoMaxMV || rs.MV%aldoStepMV != 0 {
			return fmt.Errorf("power: %s voltage %dmV out of range", rs.Rail, rs.MV)
		}
		code := byte((rs.MV - aldoMinMV) / aldoStepMV)
		if err := p.regs.WriteReg(regALDO1V+byte(rs.Rail-ALDO1), code); err != nil {
			return fmt.Errorf("power: set %s voltage: %w", rs.Rail, err)
		}
		bit := byte(1) << (rs.Rail - ALDO1)
		if err := p.regs.Update(regLDOOnOff, bit, bit); err != nil {
			return fmt.Errorf("power: enable %s: %w", rs.Rail, err)
		}
		log.Printf("power: %s on at %dmV", rs.Rail, rs.MV)
	}
	return nil
}
