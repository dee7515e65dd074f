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

package publishers

import (
	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers/syncutil"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// fakeMQTTClient records publishes. Only the methods MQTTPublisher calls are
// implemented; anything else panics on the nil embedded interface.
type fakeMQTTClient struct {
	mqtt.Client
	connectError error
	publishError error
	published    []publishedMessage
	mu           syncutil.Mutex
	connected    bool
}

type publishedMessage struct {
	payload any
	topic   string
}

func newFakeMQTTClient() *fakeMQTTClient {
	return &fakeMQTTClient{}
}

func (m *fakeMQTTClient) getPublishedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

func (m *fakeMQTTClient) firstPublished() publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.published[0]
}

func (m *fakeMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *fakeMQTTClient) Connect() mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectError != nil {
		return &fakeToken{err: m.connectError}
	}
	m.connected = true
	return &fakeToken{}
}

func (m *fakeMQTTClient) Disconnect(uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}

func (m *fakeMQTTClient) Publish(topic string, _ byte, _ bool, payload any) mqtt.Token {
	if m.publishError != nil {
		return &fakeToken{err: m.publishError}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, publishedMessage{topic: topic, payload: payload})
	return &fakeToken{}
}

// fakeToken is always complete.
type fakeToken struct {
	mqtt.Token
	err error
}

func (*fakeToken) Wait() bool { return true }

func (t *fakeToken) Error() error { return t.err }
