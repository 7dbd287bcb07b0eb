// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/lokata/internal/config"
	"github.com/relabs-tech/lokata/internal/sensors"
)

// RegisterInfo names one register in a device map.
type RegisterInfo struct {
	Addr byte
	Name string
}

// registerMaps lists the registers worth looking at while bringing up a
// board, per device.
var registerMaps = map[string][]RegisterInfo{
	"qmi8658": {
		{0x00, "WHO_AM_I"},
		{0x01, "REVISION_ID"},
		{0x02, "CTRL1"},
		{0x03, "CTRL2"},
		{0x04, "CTRL3"},
		{0x06, "CTRL5"},
		{0x08, "CTRL7"},
		{0x2D, "STATUSINT"},
		{0x2E, "STATUS0"},
		{0x2F, "STATUS1"},
	},
	"mpu9250": {
		{0x19, "SMPLRT_DIV"},
		{0x1A, "CONFIG"},
		{0x1B, "GYRO_CONFIG"},
		{0x1C, "ACCEL_CONFIG"},
		{0x1D, "ACCEL_CONFIG2"},
		{0x37, "INT_PIN_CFG"},
		{0x38, "INT_ENABLE"},
		{0x3A, "INT_STATUS"},
		{0x6A, "USER_CTRL"},
		{0x6B, "PWR_MGMT_1"},
		{0x75, "WHO_AM_I"},
	},
	"qmc6310": {
		{0x00, "CHIP_ID"},
		{0x09, "STATUS"},
		{0x0A, "CTRL1"},
		{0x0B, "CTRL2"},
		{0x29, "AXIS_SIGN"},
	},
	"axp2101": {
		{0x00, "STATUS1"},
		{0x01, "STATUS2"},
		{0x03, "CHIP_ID"},
		{0x90, "LDO_ONOFF_CTRL0"},
		{0x92, "ALDO1_VOLTAGE"},
		{0x93, "ALDO2_VOLTAGE"},
		{0x94, "ALDO3_VOLTAGE"},
		{0x95, "ALDO4_VOLTAGE"},
	},
}

// RegisterDevices lists the devices DumpRegisters knows.
func RegisterDevices() []string {
	names := make([]string, 0, len(registerMaps))
	for n := range registerMaps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type regReader interface {
	ReadReg(reg byte) (byte, error)
}

// RegisterSnapshot is a dump of one device, stored as YAML when requested.
type RegisterSnapshot struct {
	Device    string            `yaml:"device"`
	Taken     time.Time         `yaml:"taken"`
	Registers map[string]string `yaml:"registers"` // name -> hex value
	Errors    map[string]string `yaml:"errors,omitempty"`
}

// DumpRegisters reads every register in the device map and prints a table
// to w. Failed reads are reported but do not stop the dump.
func DumpRegisters(w io.Writer, regs regReader, device string) (RegisterSnapshot, error) {
	infos, ok := registerMaps[device]
	if !ok {
		return RegisterSnapshot{}, fmt.Errorf("regdump: unknown device %q (want one of %s)",
			device, strings.Join(RegisterDevices(), ", "))
	}
	snap := RegisterSnapshot{
		Device:    device,
		Taken:     time.Now(),
		Registers: make(map[string]string, len(infos)),
	}
	fmt.Fprintf(w, "%s\n", device)
	for _, info := range infos {
		v, err := regs.ReadReg(info.Addr)
		if err != nil {
			if snap.Errors == nil {
				snap.Errors = make(map[string]string)
			}
			snap.Errors[info.Name] = err.Error()
			fmt.Fprintf(w, "  0x%02X %-16s error: %v\n", info.Addr, info.Name, err)
			continue
		}
		snap.Registers[info.Name] = fmt.Sprintf("0x%02X", v)
		fmt.Fprintf(w, "  0x%02X %-16s 0x%02X  %08b\n", info.Addr, info.Name, v, v)
	}
	return snap, nil
}

// RunRegisterDump opens the bus a device sits on per the configuration and
// dumps its registers. With yamlPath set the snapshot is also saved there.
func RunRegisterDump(device, yamlPath string) error {
	cfg := config.Get()
	if _, ok := registerMaps[device]; !ok {
		return fmt.Errorf("regdump: unknown device %q (want one of %s)",
			device, strings.Join(RegisterDevices(), ", "))
	}
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	var (
		regs   sensors.Registers
		closer io.Closer
	)
	switch device {
	case "qmi8658", "mpu9250":
		mode := spi.Mode3
		if device == "mpu9250" {
			mode = spi.Mode0
		}
		c, cl, err := sensors.OpenSPI(cfg.IMUSPIDevice, cfg.IMUSPISpeed, mode)
		if err != nil {
			return err
		}
		regs, closer = sensors.NewSPIRegisters(c), cl
	case "qmc6310":
		d, cl, err := sensors.OpenI2C(cfg.MagI2CBus, cfg.MagI2CAddr)
		if err != nil {
			return err
		}
		regs, closer = sensors.NewI2CRegisters(d), cl
	case "axp2101":
		d, cl, err := sensors.OpenI2C(cfg.PMUI2CBus, cfg.PMUI2CAddr)
		if err != nil {
			return err
		}
		regs, closer = sensors.NewI2CRegisters(d), cl
	}
	defer closer.Close()

	snap, err := DumpRegisters(os.Stdout, regs, device)
	if err != nil {
		return err
	}
	if yamlPath == "" {
		return nil
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("regdump: marshal: %w", err)
	}
	if err := os.WriteFile(yamlPath, data, 0o644); err != nil {
		return fmt.Errorf("regdump: %w", err)
	}
	log.Printf("regdump: snapshot saved to %s", yamlPath)
	return nil
}
