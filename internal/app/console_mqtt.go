// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/lokata/internal/config"
	"github.com/relabs-tech/lokata/internal/status"
)

// RunConsoleMQTT prints the logger's status snapshots and telemetry lines
// as they arrive on the broker, until interrupted.
func RunConsoleMQTT() error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required for the console")
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribe(client, cfg.TopicStatus, func(_ mqtt.Client, msg mqtt.Message) {
		printStatus(os.Stdout, msg.Payload())
	}); err != nil {
		return err
	}
	if err := subscribe(client, cfg.TopicTelemetry, func(_ mqtt.Client, msg mqtt.Message) {
		fmt.Printf("[DATA] %s\n", msg.Payload())
	}); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	return nil
}

func printStatus(w io.Writer, payload []byte) {
	var s status.Snapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		log.Printf("console: status unmarshal error: %v", err)
		return
	}
	state := "SEARCH"
	if s.LocationValid {
		state = "LOCKED"
	}
	fmt.Fprintf(w, "[GPS ] %s sats=%2d hdop=%5.2f lat=%.7f lon=%.7f acc=%.1fm up=%.1fs\n",
		state, s.Satellites, s.HDOP, s.Latitude, s.Longitude, s.AccuracyM, float64(s.Uptime)/1000)
}
