// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	humanize "github.com/dustin/go-humanize"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/lokata/internal/config"
	"github.com/relabs-tech/lokata/internal/gps"
	"github.com/relabs-tech/lokata/internal/imu"
	"github.com/relabs-tech/lokata/internal/sampling"
	"github.com/relabs-tech/lokata/internal/sim"
	"github.com/relabs-tech/lokata/internal/status"
	"github.com/relabs-tech/lokata/internal/telemetry"
)

// pmuSettle is the wait after the rails come up before any sensor is
// touched.
const pmuSettle = 200 * time.Millisecond

// simOrigin is where the simulated receiver places the device.
var simOrigin = gps.LatLon{Lat: 40.4168, Lon: -3.7038}

// rig is everything bring-up produced. Missing sensors are left nil and
// the scheduler substitutes its fallbacks.
type rig struct {
	gnss     gps.ByteSource
	inertial imu.InertialSource
	magnetic imu.MagneticSource
	display  status.Presenter

	closers []io.Closer
}

func (r *rig) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i].Close()
	}
}

// LayoutFromConfig picks the telemetry variant and applies overrides.
func LayoutFromConfig(cfg *config.Config) (telemetry.Layout, error) {
	layout, err := telemetry.LayoutByName(cfg.Variant)
	if err != nil {
		return telemetry.Layout{}, err
	}
	if cfg.MotionDigits >= 0 {
		layout.MotionDigits = cfg.MotionDigits
	}
	if cfg.LogInterval > 0 {
		layout.LogInterval = uint32(cfg.LogInterval)
	}
	return layout, nil
}

// RunLogger brings the device up in order and runs the sampling loop until
// ctx is cancelled. A PMU failure aborts before the loop starts; every
// other device failure degrades to its fallback.
func RunLogger(ctx context.Context) error {
	return runLogger(ctx, config.Get(), os.Stdout)
}

func runLogger(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	if cfg == nil {
		return errors.New("logger: configuration not loaded")
	}
	layout, err := LayoutFromConfig(cfg)
	if err != nil {
		return err
	}

	// 1) Telemetry output first so nothing after it can be lost.
	var port io.Writer = stdout
	if cfg.TelemetryPort != "stdout" {
		p, err := gps.OpenSerial(cfg.TelemetryPort, cfg.TelemetryBaud)
		if err != nil {
			return fmt.Errorf("logger: telemetry port: %w", err)
		}
		defer p.Close()
		port = p
		log.Printf("logger: telemetry on %s at %d baud", cfg.TelemetryPort, cfg.TelemetryBaud)
	}
	out := telemetry.NewDropWriter(port, cfg.TelemetryQueue)
	defer out.Close()

	var (
		client     mqtt.Client
		sink       io.Writer = out
		presenters status.Multi
	)
	if cfg.MQTTBroker != "" {
		client, err = connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDLogger)
		if err != nil {
			log.Printf("logger: MQTT unavailable, continuing without it: %v", err)
		} else {
			defer client.Disconnect(250)
			mirror := telemetry.NewDropWriter(telemetry.NewMQTTWriter(client, cfg.TopicTelemetry), cfg.TelemetryQueue)
			defer mirror.Close()
			sink = io.MultiWriter(out, mirror)
			presenters = append(presenters, NewMQTTStatusPresenter(client, cfg.TopicStatus))
		}
	}

	// 2) Devices.
	var r *rig
	if cfg.Backend == config.BackendSim {
		r = bringUpSim()
	} else {
		r, err = bringUpHardware(ctx, cfg)
		if err != nil {
			return err
		}
	}
	defer r.close()

	if r.display != nil {
		presenters = append(presenters, r.display)
	} else {
		presenters = append(presenters, status.LogPresenter{Prefix: "status: "})
	}
	presenter := status.NewAsync(ctx, presenters)

	// 3) Loop.
	sched := sampling.New(sampling.Sources{
		GNSS:     r.gnss,
		Inertial: r.inertial,
		Magnetic: r.magnetic,
	}, telemetry.NewEmitter(layout, sink), presenter, sampling.Options{
		Layout:          layout,
		DisplayInterval: uint32(cfg.DisplayUpdateInterval),
		IdleSleep:       time.Duration(cfg.LoopIdleMicros) * time.Microsecond,
	})

	log.Printf("logger: %s layout, %d fields every %d %s", layout.Name, layout.FieldCount(), layout.LogInterval, layout.Unit)
	err = sched.Run(ctx, sampling.NewMonotonicClock())

	st := sched.Stats()
	log.Printf("logger: stopped after %s records (%s dropped, %s inertial misses, %s GNSS bytes, %s status frames skipped)",
		humanize.Comma(int64(st.Records)),
		humanize.Comma(int64(out.Dropped())),
		humanize.Comma(int64(st.InertialMisses)),
		humanize.Comma(int64(st.GNSSBytes)),
		humanize.Comma(int64(presenter.Skipped())))

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func bringUpSim() *rig {
	elapsed := sim.Since(time.Now())
	log.Println("logger: simulated backend")
	return &rig{
		gnss:     sim.NewGNSS(elapsed, 5*time.Second, simOrigin),
		inertial: sim.NewInertial(elapsed, sim.DefaultInertialPeriod),
		magnetic: sim.NewMagnetic(elapsed),
	}
}
