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

// QMI8658 registers
const (
	qmiWhoAmI  = 0x00
	qmiCtrl1   = 0x02
	qmiCtrl2   = 0x03
	qmiCtrl3   = 0x04
	qmiCtrl5   = 0x06
	qmiCtrl7   = 0x08
	qmiStatus0 = 0x2E
	qmiAxL     = 0x35
	qmiReset   = 0x60

	qmiChipID     = 0x05
	qmiResetValue = 0xB0

	qmiAddrAutoInc = 1 << 6
	qmiAccelEnable = 1 << 0
	qmiGyroEnable  = 1 << 1
	qmiAccelReady  = 1 << 0
	qmiGyroReady   = 1 << 1
)

// Accelerometer full scale, CTRL2 bits 6:4.
const (
	QMIAccel2G  = 0
	QMIAccel4G  = 1
	QMIAccel8G  = 2
	QMIAccel16G = 3
)

// Gyroscope full scale, CTRL3 bits 6:4.
const (
	QMIGyro16DPS   = 0
	QMIGyro32DPS   = 1
	QMIGyro64DPS   = 2
	QMIGyro128DPS  = 3
	QMIGyro256DPS  = 4
	QMIGyro512DPS  = 5
	QMIGyro1024DPS = 6
	QMIGyro2048DPS = 7
)

// QMIConfig selects ranges, output data rates and low-pass filter mode.
type QMIConfig struct {
	AccelRange byte
	AccelODR   byte // CTRL2 bits 3:0
	GyroRange  byte
	GyroODR    byte // CTRL3 bits 3:0
	LPFMode    byte // 0-3, applied to both sensors
}

// DefaultQMIConfig is ±4 g at 125 Hz and ±1024 dps at 112.1 Hz, LPF mode 3.
var DefaultQMIConfig = QMIConfig{
	AccelRange: QMIAccel4G,
	AccelODR:   0x06,
	GyroRange:  QMIGyro1024DPS,
	GyroODR:    0x06,
	LPFMode:    3,
}

// QMI8658 is a 6-axis IMU on SPI. Readings are in g and degrees/s.
type QMI8658 struct {
	regs        Registers
	accelPerLSB float64
	gyroPerLSB  float64
	buf         [12]byte
}

// NewQMI8658 resets and configures the chip. Any failure leaves the
// caller to fall back to imu.Absent.
func NewQMI8658(regs Registers, cfg QMIConfig) (*QMI8658, error) {
	if cfg.AccelRange > QMIAccel16G || cfg.GyroRange > QMIGyro2048DPS || cfg.LPFMode > 3 {
		return nil, fmt.Errorf("qmi8658: invalid config %+v", cfg)
	}

	if err := regs.WriteReg(qmiReset, qmiResetValue); err != nil {
		return nil, fmt.Errorf("qmi8658: reset: %w", err)
	}
	sleep(15 * time.Millisecond)

	if err := regs.expectID(qmiWhoAmI, qmiChipID); err != nil {
		return nil, fmt.Errorf("qmi8658: %w", err)
	}

	lpf := cfg.LPFMode<<1 | 1 // mode + enable
	steps := []struct {
		reg, val byte
		name     string
	}{
		{qmiCtrl1, qmiAddrAutoInc, "CTRL1"},
		{qmiCtrl2, cfg.AccelRange<<4 | cfg.AccelODR&0x0F, "CTRL2"},
		{qmiCtrl3, cfg.GyroRange<<4 | cfg.GyroODR&0x0F, "CTRL3"},
		{qmiCtrl5, lpf<<4 | lpf, "CTRL5"},
		{qmiCtrl7, qmiAccelEnable | qmiGyroEnable, "CTRL7"},
	}
	for _, s := range steps {
		if err := regs.WriteReg(s.reg, s.val); err != nil {
			return nil, fmt.Errorf("qmi8658: write %s: %w", s.name, err)
		}
	}

	d := &QMI8658{
		regs:        regs,
		accelPerLSB: float64(int(2)<<cfg.AccelRange) / 32768,
		gyroPerLSB:  float64(int(16)<<cfg.GyroRange) / 32768,
	}
	log.Printf("qmi8658: ±%dg, ±%ddps, LPF mode %d", 2<<cfg.AccelRange, 16<<cfg.GyroRange, cfg.LPFMode)
	return d, nil
}

// DataReady reports whether a new accelerometer or gyroscope sample is
// latched. A bus error reads as not ready.
func (d *QMI8658) DataReady() bool {
	st, err := d.regs.ReadReg(qmiStatus0)
	if err != nil {
		return false
	}
	return st&(qmiAccelReady|qmiGyroReady) != 0
}

// Read bursts the twelve data registers from AX_L through GZ_H.
func (d *QMI8658) Read() (imu.InertialSample, error) {
	if err := d.regs.Read(qmiAxL, d.buf[:]); err != nil {
		return imu.InertialSample{}, fmt.Errorf("qmi8658: read data: %w", err)
	}
	b := d.buf[:]
	return imu.InertialSample{
		Accel: imu.Vec3{
			X: float64(le16(b[0:])) * d.accelPerLSB,
			Y: float64(le16(b[2:])) * d.accelPerLSB,
			Z: float64(le16(b[4:])) * d.accelPerLSB,
		},
		Gyro: imu.Vec3{
			X: float64(le16(b[6:])) * d.gyroPerLSB,
			Y: float64(le16(b[8:])) * d.gyroPerLSB,
			Z: float64(le16(b[10:])) * d.gyroPerLSB,
		},
	}, nil
}
