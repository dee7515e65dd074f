// Zaparoo Core
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Core.
//
// Zaparoo Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Core.  If not, see <http://www.gnu.org/licenses/>.

// Package publishers mirrors game notifications to external systems.
package publishers

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/ipc"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/models"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultMethods are published when no filter is configured.
var DefaultMethods = []string{
	models.NotificationGameStarted,
	models.NotificationGameStopped,
}

// MQTTPublisher publishes game notifications to an MQTT broker using the
// same envelope the IPC bridge sends to the web content.
type MQTTPublisher struct {
	client    mqtt.Client
	newClient func(*mqtt.ClientOptions) mqtt.Client
	clock     clockwork.Clock
	stopCh    chan struct{}
	done      chan struct{}
	broker    string
	topic     string
	filter    []string
	stopOnce  sync.Once
}

// NewMQTTPublisher creates a publisher for broker and topic. An empty filter
// publishes DefaultMethods.
func NewMQTTPublisher(broker, topic string, filter []string) *MQTTPublisher {
	if len(filter) == 0 {
		filter = DefaultMethods
	}
	return &MQTTPublisher{
		broker:    broker,
		topic:     topic,
		filter:    slices.Clone(filter),
		newClient: mqtt.NewClient,
		clock:     clockwork.NewRealClock(),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Methods returns the notification methods this publisher forwards.
func (p *MQTTPublisher) Methods() []string {
	return slices.Clone(p.filter)
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Start connects to the broker and forwards notifications until Stop is
// called or the channel closes.
func (p *MQTTPublisher) Start(notifications <-chan models.Notification) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(p.broker))
	opts.SetClientID("zaparoo-desktop-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Msgf("mqtt publisher: connected to %s", p.broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt publisher: connection lost")
	}

	p.client = p.newClient(opts)

	token := p.client.Connect()
	if token.Wait() && token.Error() != nil {
		close(p.done)
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Info().Str("topic", p.topic).Strs("methods", p.filter).Msg("mqtt publisher started")

	go p.publishNotifications(notifications)
	return nil
}

// Stop disconnects from the broker and waits for the publish loop to exit.
func (p *MQTTPublisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		if p.client == nil {
			return
		}
		<-p.done

		if p.client.IsConnected() {
			log.Debug().Msg("mqtt publisher: disconnecting")
			p.client.Disconnect(250)
		}
	})
}

func (p *MQTTPublisher) publishNotifications(notifications <-chan models.Notification) {
	defer close(p.done)

	for {
		select {
		case <-p.stopCh:
			return
		case n, ok := <-notifications:
			if !ok {
				log.Debug().Msg("mqtt publisher: notification channel closed")
				return
			}
			if !p.matchesFilter(n.Method) {
				continue
			}
			if err := p.publish(n); err != nil {
				log.Error().Err(err).Str("method", n.Method).Msg("mqtt publisher: failed to publish")
			}
		}
	}
}

func (p *MQTTPublisher) publish(n models.Notification) error {
	payload, err := json.Marshal(ipc.Message{
		Type:      n.Method,
		Payload:   n.Params,
		Timestamp: p.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish: %w", token.Error())
	}

	log.Debug().Str("method", n.Method).Msg("mqtt publisher: published notification")
	return nil
}

func (p *MQTTPublisher) matchesFilter(method string) bool {
	return slices.Contains(p.filter, method)
}
