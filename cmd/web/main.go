// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/lokata/internal/app"
	"github.com/relabs-tech/lokata/internal/config"
)

func main() {
	configPath := flag.String("config", "logger_config.txt", "path to the configuration file")
	flag.Parse()

	log.Println("starting lokata web server (MQTT subscriber)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	log.Println("Note: status updates require the logger to run with MQTT_BROKER set")

	if err := app.RunWeb(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
