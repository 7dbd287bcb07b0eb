// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/lokata/internal/config"
	"github.com/relabs-tech/lokata/internal/status"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// statusHub keeps the latest snapshot and fans it out to WebSocket
// clients. Each client has a one-slot channel; a slow client misses
// intermediate snapshots instead of holding up the others.
type statusHub struct {
	mu      sync.RWMutex
	last    status.Snapshot
	have    bool
	clients map[chan status.Snapshot]struct{}
}

func newStatusHub() *statusHub {
	return &statusHub{clients: make(map[chan status.Snapshot]struct{})}
}

func (h *statusHub) Present(s status.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = s
	h.have = true
	for ch := range h.clients {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

func (h *statusHub) latest() (status.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.have
}

func (h *statusHub) join() chan status.Snapshot {
	ch := make(chan status.Snapshot, 1)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	if h.have {
		ch <- h.last
	}
	h.mu.Unlock()
	return ch
}

func (h *statusHub) leave(ch chan status.Snapshot) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

func (h *statusHub) handleAPI(w http.ResponseWriter, r *http.Request) {
	s, ok := h.latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func (h *statusHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := h.join()
	defer h.leave(ch)

	// Reader: only to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("web: websocket error: %v", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case s := <-ch:
			conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
			if err := conn.WriteJSON(s); err != nil {
				return
			}
		}
	}
}

func (h *statusHub) routes(staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", h.handleAPI)
	mux.HandleFunc("/ws/status", h.handleWS)
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

// RunWeb serves the latest status over HTTP and WebSocket, fed from the
// logger's MQTT status topic.
func RunWeb() error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required for the web server")
	}

	hub := newStatusHub()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribe(client, cfg.TopicStatus, func(_ mqtt.Client, msg mqtt.Message) {
		var s status.Snapshot
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("web: status unmarshal error: %v", err)
			return
		}
		hub.Present(s)
	}); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s (static files from %s)", addr, cfg.WebStaticDir)
	return http.ListenAndServe(addr, hub.routes(cfg.WebStaticDir))
}
