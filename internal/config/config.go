// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Compile-time defaults for the logger. A config file only needs to name
// what differs from these.
const (
	TelemetryBaud         = 921600
	GNSSBaud              = 9600
	LogIntervalHighRateUS = 10000
	LogIntervalFusionMS   = 50
	DisplayIntervalMS     = 500
)

// Backends
const (
	BackendHardware = "hardware"
	BackendSim      = "sim"
)

// IMU drivers
const (
	IMUDriverQMI8658 = "qmi8658"
	IMUDriverMPU9250 = "mpu9250"
	IMUDriverNone    = "none"
)

// Config holds all application configuration values.
type Config struct {
	// Logger
	Variant               string // "highrate" or "fusion"
	Backend               string // "hardware" or "sim"
	MotionDigits          int    // -1 keeps the variant's default
	LogInterval           int    // in variant units, 0 keeps the variant's default
	DisplayUpdateInterval int    // milliseconds
	LoopIdleMicros        int

	// Telemetry output
	TelemetryPort  string // "stdout" or a serial device
	TelemetryBaud  int
	TelemetryQueue int

	// GPS
	GPSSerialPort string
	GPSBaudRate   int
	GPSRxBuffer   int

	// IMU Hardware
	IMUDriver    string
	IMUSPIDevice string
	IMUSPISpeed  int // Hz
	IMUIntPin    string

	// Magnetometer
	MagEnable  bool
	MagI2CBus  string
	MagI2CAddr uint16

	// Power management
	PMUEnable  bool
	PMUI2CBus  string
	PMUI2CAddr uint16

	// Display
	DisplayEnable bool
	DisplayI2CBus string

	// MQTT
	MQTTBroker          string
	MQTTClientIDLogger  string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string

	// Topics
	TopicStatus    string
	TopicTelemetry string

	// Web Server
	WebServerPort int
	WebStaticDir  string

	// Capture
	CapturePort string // empty selects automatically
	CaptureBaud int
	CaptureDir  string
}

// Package-level singleton: InitGlobal sets it once, Get reads it under a
// read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used when no file overrides a key.
func Default() *Config {
	return &Config{
		Variant:               "highrate",
		Backend:               BackendHardware,
		MotionDigits:          -1,
		DisplayUpdateInterval: DisplayIntervalMS,

		TelemetryPort:  "stdout",
		TelemetryBaud:  TelemetryBaud,
		TelemetryQueue: 64,

		GPSSerialPort: "/dev/ttyS0",
		GPSBaudRate:   GNSSBaud,
		GPSRxBuffer:   4096,

		IMUDriver:    IMUDriverQMI8658,
		IMUSPIDevice: "/dev/spidev0.0",
		IMUSPISpeed:  1_000_000,
		IMUIntPin:    "GPIO25",

		MagEnable:  true,
		MagI2CAddr: 0x1C,

		PMUEnable:  true,
		PMUI2CAddr: 0x34,

		DisplayEnable: true,

		MQTTClientIDLogger:  "lokata-logger",
		MQTTClientIDConsole: "lokata-console",
		MQTTClientIDWeb:     "lokata-web",
		TopicStatus:         "lokata/status",
		TopicTelemetry:      "lokata/telemetry",

		WebServerPort: 8080,
		WebStaticDir:  "./web",

		CaptureBaud: TelemetryBaud,
		CaptureDir:  "data/raw",
	}
}

// Load reads the configuration file on top of Default.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInt(key, value string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, v)
	}
	return v, nil
}

func parseAddr(key, value string) (uint16, error) {
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if addr > 0x7F {
		return 0, fmt.Errorf("%s must be a 7-bit address, got 0x%X", key, addr)
	}
	return uint16(addr), nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Logger
	case "VARIANT":
		c.Variant = strings.ToLower(value)
	case "BACKEND":
		c.Backend = strings.ToLower(value)
	case "MOTION_DIGITS":
		c.MotionDigits, err = parseInt(key, value, 0, 6)
	case "LOG_INTERVAL":
		c.LogInterval, err = parseInt(key, value, 1, 1<<31-1)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value, 1, 1<<31-1)
	case "LOOP_IDLE_US":
		c.LoopIdleMicros, err = parseInt(key, value, 0, 1_000_000)

	// Telemetry output
	case "TELEMETRY_PORT":
		c.TelemetryPort = value
	case "TELEMETRY_BAUD":
		c.TelemetryBaud, err = parseInt(key, value, 1, 4_000_000)
	case "TELEMETRY_QUEUE":
		c.TelemetryQueue, err = parseInt(key, value, 1, 1<<16)

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = parseInt(key, value, 1, 4_000_000)
	case "GPS_RX_BUFFER":
		c.GPSRxBuffer, err = parseInt(key, value, 64, 1<<20)

	// IMU Hardware
	case "IMU_DRIVER":
		c.IMUDriver = strings.ToLower(value)
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_SPI_SPEED":
		c.IMUSPISpeed, err = parseInt(key, value, 1_000, 50_000_000)
	case "IMU_INT_PIN":
		c.IMUIntPin = value

	// Magnetometer
	case "MAG_ENABLE":
		c.MagEnable, err = parseBool(key, value)
	case "MAG_I2C_BUS":
		c.MagI2CBus = value
	case "MAG_I2C_ADDR":
		c.MagI2CAddr, err = parseAddr(key, value)

	// Power management
	case "PMU_ENABLE":
		c.PMUEnable, err = parseBool(key, value)
	case "PMU_I2C_BUS":
		c.PMUI2CBus = value
	case "PMU_I2C_ADDR":
		c.PMUI2CAddr, err = parseAddr(key, value)

	// Display
	case "DISPLAY_ENABLE":
		c.DisplayEnable, err = parseBool(key, value)
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_LOGGER":
		c.MQTTClientIDLogger = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_STATUS":
		c.TopicStatus = value
	case "TOPIC_TELEMETRY":
		c.TopicTelemetry = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 1, 65535)
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value

	// Capture
	case "CAPTURE_PORT":
		c.CapturePort = value
	case "CAPTURE_BAUD":
		c.CaptureBaud, err = parseInt(key, value, 1, 4_000_000)
	case "CAPTURE_DIR":
		c.CaptureDir = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks cross-field constraints.
func (c *Config) validate() error {
	switch c.Variant {
	case "highrate", "fusion":
	default:
		return fmt.Errorf("VARIANT must be highrate or fusion, got %q", c.Variant)
	}
	switch c.Backend {
	case BackendHardware, BackendSim:
	default:
		return fmt.Errorf("BACKEND must be %s or %s, got %q", BackendHardware, BackendSim, c.Backend)
	}
	switch c.IMUDriver {
	case IMUDriverQMI8658, IMUDriverMPU9250, IMUDriverNone:
	default:
		return fmt.Errorf("IMU_DRIVER must be qmi8658, mpu9250 or none, got %q", c.IMUDriver)
	}
	if c.TelemetryPort == "" {
		return fmt.Errorf("TELEMETRY_PORT is required")
	}
	if c.Backend == BackendHardware && c.GPSSerialPort == "" {
		return fmt.Errorf("GPS_SERIAL_PORT is required")
	}
	if c.IMUDriver == IMUDriverMPU9250 && c.IMUIntPin == "" {
		return fmt.Errorf("IMU_INT_PIN is required for the mpu9250 driver")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
