// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"strings"

	"github.com/relabs-tech/lokata/internal/app"
	"github.com/relabs-tech/lokata/internal/config"
)

func main() {
	configPath := flag.String("config", "logger_config.txt", "path to the configuration file")
	device := flag.String("device", "qmi8658", "device to dump: "+strings.Join(app.RegisterDevices(), ", "))
	yamlPath := flag.String("yaml", "", "also save the dump as YAML to this path")
	flag.Parse()

	log.Println("starting register dump (stop the logger first, it owns the buses)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunRegisterDump(*device, *yamlPath); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
