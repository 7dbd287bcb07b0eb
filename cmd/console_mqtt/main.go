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

	log.Println("starting lokata console (MQTT subscriber)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
