// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// publishRecorder implements only Publish; any other call panics.
type publishRecorder struct {
	mqtt.Client
	topics   []string
	retained []bool
	payloads [][]byte
}

func (p *publishRecorder) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.topics = append(p.topics, topic)
	p.retained = append(p.retained, retained)
	p.payloads = append(p.payloads, payload.([]byte))
	return nil
}

func TestMQTTWriter_PublishesLineWithoutNewline(t *testing.T) {
	rec := &publishRecorder{}
	w := NewMQTTWriter(rec, "lokata/telemetry")

	buf := []byte("DATA,1,0,0,0,99.90\r\n")
	n, err := w.Write(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Write = %d, %v", n, err)
	}
	copy(buf, "XXXX")

	if len(rec.payloads) != 1 || rec.topics[0] != "lokata/telemetry" || rec.retained[0] {
		t.Fatalf("publishes = %v %v", rec.topics, rec.retained)
	}
	if got := string(rec.payloads[0]); got != "DATA,1,0,0,0,99.90" {
		t.Fatalf("payload = %q, must be a copy without line ending", got)
	}
}
