// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/lokata/internal/config"
	"github.com/relabs-tech/lokata/internal/gps"
	"github.com/relabs-tech/lokata/internal/power"
	"github.com/relabs-tech/lokata/internal/sensors"
)

// bringUpHardware powers the board and opens each device in order:
// PMU, display, magnetometer, IMU, GNSS. Only the PMU is mandatory.
func bringUpHardware(ctx context.Context, cfg *config.Config) (*rig, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	r := &rig{}

	// PMU
	if cfg.PMUEnable {
		if err := enablePower(cfg); err != nil {
			return nil, err
		}
		time.Sleep(pmuSettle)
	} else {
		log.Println("power: PMU disabled in config, assuming rails are up")
	}

	// Display
	if cfg.DisplayEnable {
		d, closer, err := OpenDisplay(cfg.DisplayI2CBus)
		if err != nil {
			log.Printf("display: not available: %v", err)
		} else {
			r.closers = append(r.closers, closer)
			if err := d.Splash("Lokata", "Status: 100Hz Log"); err != nil {
				log.Printf("display: splash: %v", err)
			}
			r.display = d
		}
	}

	// Magnetometer
	if cfg.MagEnable {
		dev, closer, err := sensors.OpenI2C(cfg.MagI2CBus, cfg.MagI2CAddr)
		if err != nil {
			log.Printf("qmc6310: bus not available: %v", err)
		} else if mag, err := sensors.NewQMC6310(sensors.NewI2CRegisters(dev), sensors.QMCRange8G); err != nil {
			closer.Close()
			log.Printf("qmc6310: not available, logging zero field: %v", err)
		} else {
			r.closers = append(r.closers, closer)
			r.magnetic = mag
		}
	}

	// IMU
	if err := openIMU(cfg, r); err != nil {
		log.Printf("imu: not available, logging zero motion: %v", err)
	}

	// GNSS
	port, err := gps.OpenSerial(cfg.GPSSerialPort, cfg.GPSBaudRate)
	if err != nil {
		log.Printf("gps: serial port not available, no fix will be reported: %v", err)
	} else {
		rx := gps.NewRxBuffer(cfg.GPSRxBuffer)
		go rx.Pump(ctx, port)
		r.closers = append(r.closers, port)
		r.gnss = rx
		log.Printf("gps: %s at %d baud", cfg.GPSSerialPort, cfg.GPSBaudRate)
	}

	return r, nil
}

func enablePower(cfg *config.Config) error {
	dev, closer, err := sensors.OpenI2C(cfg.PMUI2CBus, cfg.PMUI2CAddr)
	if err != nil {
		return fmt.Errorf("power: %w", err)
	}
	defer closer.Close()

	pmu, err := power.New(sensors.NewI2CRegisters(dev))
	if err != nil {
		return err
	}
	return pmu.EnableRails(power.SensorRails)
}

func openIMU(cfg *config.Config, r *rig) error {
	switch cfg.IMUDriver {
	case config.IMUDriverNone:
		log.Println("imu: disabled in config")
		return nil

	case config.IMUDriverQMI8658:
		c, closer, err := sensors.OpenSPI(cfg.IMUSPIDevice, cfg.IMUSPISpeed, spi.Mode3)
		if err != nil {
			return err
		}
		d, err := sensors.NewQMI8658(sensors.NewSPIRegisters(c), sensors.DefaultQMIConfig)
		if err != nil {
			closer.Close()
			return err
		}
		r.closers = append(r.closers, closer)
		r.inertial = d
		return nil

	case config.IMUDriverMPU9250:
		pin := gpioreg.ByName(cfg.IMUIntPin)
		if pin == nil {
			return fmt.Errorf("mpu9250: INT pin %q not found", cfg.IMUIntPin)
		}
		if err := pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
			return fmt.Errorf("mpu9250: INT pin %s: %w", cfg.IMUIntPin, err)
		}
		c, closer, err := sensors.OpenSPI(cfg.IMUSPIDevice, cfg.IMUSPISpeed, spi.Mode0)
		if err != nil {
			return err
		}
		d, err := sensors.NewMPU9250(sensors.NewSPIRegisters(c), pin, sensors.DefaultMPUConfig)
		if err != nil {
			closer.Close()
			return err
		}
		r.closers = append(r.closers, closer)
		r.inertial = d
		return nil
	}
	return fmt.Errorf("unknown IMU driver %q", cfg.IMUDriver)
}
