// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/relabs-tech/lokata/internal/imu"
)

// MPU9250 registers
const (
	mpuSmplrtDiv    = 0x19
	mpuConfig       = 0x1A
	mpuGyroConfig   = 0x1B
	mpuAccelConfig  = 0x1C
	mpuAccelConfig2 = 0x1D
	mpuIntPinCfg    = 0x37
	mpuIntEnable    = 0x38
	mpuIntStatus    = 0x3A
	mpuAccelXoutH   = 0x3B
	mpuUserCtrl     = 0x6A
	mpuPwrMgmt1     = 0x6B
	mpuWhoAmI       = 0x75

	mpuReset      = 0x80
	mpuClockPLL   = 0x01
	mpuI2CIfDis   = 0x10
	mpuLatchAnyRd = 0x30 // LATCH_INT_EN | INT_ANYRD_2CLEAR
	mpuRawRdyEn   = 0x01
	mpuRawRdy     = 0x01
)

// MPUConfig selects the full-scale ranges (0-3 each, as in ACCEL_FS_SEL
// and GYRO_FS_SEL), the DLPF setting and the sample rate divider.
type MPUConfig struct {
	AccelRange byte
	GyroRange  byte
	DLPF       byte
	RateDiv    byte
}

// DefaultMPUConfig is ±2 g, ±250 dps, 41 Hz DLPF, 100 Hz output.
var DefaultMPUConfig = MPUConfig{DLPF: 3, RateDiv: 9}

// ReadyLine is the sampled level of the chip's INT output.
type ReadyLine interface {
	Read() gpio.Level
}

// MPU9250 is the alternative IMU on SPI. With an INT line, data-ready is a
// GPIO read and never touches the bus; without one, INT_STATUS is polled.
type MPU9250 struct {
	regs        Registers
	intLine     ReadyLine
	accelPerLSB float64
	gyroPerLSB  float64
	buf         [14]byte
}

// NewMPU9250 resets and configures the chip for raw-data-ready interrupts
// that clear on any read.
func NewMPU9250(regs Registers, intLine ReadyLine, cfg MPUConfig) (*MPU9250, error) {
	if cfg.AccelRange > 3 || cfg.GyroRange > 3 || cfg.DLPF > 7 {
		return nil, fmt.Errorf("mpu9250: invalid config %+v", cfg)
	}

	if err := regs.WriteReg(mpuPwrMgmt1, mpuReset); err != nil {
		return nil, fmt.Errorf("mpu9250: reset: %w", err)
	}
	sleep(100 * time.Millisecond)

	id, err := regs.ReadReg(mpuWhoAmI)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: read id: %w", err)
	}
	if id != 0x71 && id != 0x73 {
		return nil, fmt.Errorf("mpu9250: %w: 0x%02X", ErrWrongChip, id)
	}

	steps := []struct {
		reg, val byte
		name     string
	}{
		{mpuPwrMgmt1, mpuClockPLL, "PWR_MGMT_1"},
		{mpuUserCtrl, mpuI2CIfDis, "USER_CTRL"},
		{mpuConfig, cfg.DLPF, "CONFIG"},
		{mpuSmplrtDiv, cfg.RateDiv, "SMPLRT_DIV"},
		{mpuGyroConfig, cfg.GyroRange << 3, "GYRO_CONFIG"},
		{mpuAccelConfig, cfg.AccelRange << 3, "ACCEL_CONFIG"},
		{mpuAccelConfig2, 0x03, "ACCEL_CONFIG2"},
		{mpuIntPinCfg, mpuLatchAnyRd, "INT_PIN_CFG"},
		{mpuIntEnable, mpuRawRdyEn, "INT_ENABLE"},
	}
	for _, s := range steps {
		if err := regs.WriteReg(s.reg, s.val); err != nil {
			return nil, fmt.Errorf("mpu9250: write %s: %w", s.name, err)
		}
	}

	d := &MPU9250{
		regs:        regs,
		intLine:     intLine,
		accelPerLSB: float64(int(1)<<cfg.AccelRange) / 16384,
		gyroPerLSB:  float64(int(1)<<cfg.GyroRange) / 131,
	}
	log.Printf("mpu9250: id 0x%02X, ±%dg, ±%ddps, int line %v", id, 2<<cfg.AccelRange, 250<<cfg.GyroRange, intLine != nil)
	return d, nil
}

// DataReady reports a latched raw-data interrupt.
func (d *MPU9250) DataReady() bool {
	if d.intLine != nil {
		return d.intLine.Read() == gpio.High
	}
	st, err := d.regs.ReadReg(mpuIntStatus)
	if err != nil {
		return false
	}
	return st&mpuRawRdy != 0
}

// Read bursts ACCEL_XOUT_H through GYRO_ZOUT_L, skipping temperature.
// Readings are in g and degrees/s.
func (d *MPU9250) Read() (imu.InertialSample, error) {
	if err := d.regs.Read(mpuAccelXoutH, d.buf[:]); err != nil {
		return imu.InertialSample{}, fmt.Errorf("mpu9250: read data: %w", err)
	}
	b := d.buf[:]
	return imu.InertialSample{
		Accel: imu.Vec3{
			X: float64(be16(b[0:])) * d.accelPerLSB,
			Y: float64(be16(b[2:])) * d.accelPerLSB,
			Z: float64(be16(b[4:])) * d.accelPerLSB,
		},
		Gyro: imu.Vec3{
			X: float64(be16(b[8:])) * d.gyroPerLSB,
			Y: float64(be16(b[10:])) * d.gyroPerLSB,
			Z: float64(be16(b[12:])) * d.gyroPerLSB,
		},
	}, nil
}
