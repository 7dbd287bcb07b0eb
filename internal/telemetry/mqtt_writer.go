// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"bytes"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTWriter mirrors each written line to an MQTT topic. Publishing is
// fire-and-forget at QoS 0: the token is never waited on, so a slow broker
// cannot stall the caller.
type MQTTWriter struct {
	client mqtt.Client
	topic  string
}

// NewMQTTWriter publishes to topic through an already connected client.
func NewMQTTWriter(client mqtt.Client, topic string) *MQTTWriter {
	return &MQTTWriter{client: client, topic: topic}
}

// Write publishes p without its trailing newline.
func (w *MQTTWriter) Write(p []byte) (int, error) {
	payload := bytes.TrimRight(p, "\r\n")
	// paho keeps the payload until the packet is sent; p is reused by the caller.
	w.client.Publish(w.topic, 0, false, bytes.Clone(payload))
	return len(p), nil
}
