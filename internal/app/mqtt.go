// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/lokata/internal/status"
)

func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	log.Printf("connected to MQTT broker at %s as %s", broker, clientID)
	return client, nil
}

// subscribe waits for the broker to acknowledge the subscription.
func subscribe(client mqtt.Client, topic string, handler mqtt.MessageHandler) error {
	token := client.Subscribe(topic, 0, handler)
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("subscribed to MQTT topic %s", topic)
	return nil
}

// MQTTStatusPresenter publishes each snapshot as retained JSON so late
// subscribers get the current state immediately.
type MQTTStatusPresenter struct {
	client mqtt.Client
	topic  string
}

// NewMQTTStatusPresenter publishes to topic through a connected client.
func NewMQTTStatusPresenter(client mqtt.Client, topic string) *MQTTStatusPresenter {
	return &MQTTStatusPresenter{client: client, topic: topic}
}

func (p *MQTTStatusPresenter) Present(s status.Snapshot) {
	payload, err := json.Marshal(s)
	if err != nil {
		log.Printf("status: JSON marshal error: %v", err)
		return
	}
	p.client.Publish(p.topic, 0, true, payload)
}
