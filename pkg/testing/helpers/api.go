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

// Package helpers provides testing utilities shared across packages.
//
// IPCClient speaks the IPC message envelope over a real WebSocket so API
// tests exercise the same path web content does:
//
//	srv := httptest.NewServer(server.Router())
//	client := helpers.DialIPC(t, srv.URL, api.IPCPath)
//	resp := client.Request(t, "games:list", nil)
package helpers

import (
	"encoding/json"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/ipc"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// DefaultReadTimeout bounds every read in IPCClient.
const DefaultReadTimeout = 5 * time.Second

// IPCClient is a synchronous WebSocket client for tests. It is not safe for
// concurrent use.
type IPCClient struct {
	Conn   *websocket.Conn
	nextID int
}

// DialIPC connects to path on the httptest server at serverURL. The
// connection is closed when the test ends.
func DialIPC(t *testing.T, serverURL, path string) *IPCClient {
	t.Helper()

	u, err := url.Parse(serverURL)
	require.NoError(t, err)
	u.Scheme = "ws"
	u.Path = path

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return &IPCClient{Conn: conn}
}

// Send writes msg without waiting.
func (c *IPCClient) Send(t *testing.T, msg ipc.Message) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, c.Conn.WriteMessage(websocket.TextMessage, data))
}

// Read returns the next message.
func (c *IPCClient) Read(t *testing.T) ipc.Message {
	t.Helper()
	require.NoError(t, c.Conn.SetReadDeadline(time.Now().Add(DefaultReadTimeout)))
	_, data, err := c.Conn.ReadMessage()
	require.NoError(t, err)

	var msg ipc.Message
	require.NoError(t, json.Unmarshal(data, &msg), string(data))
	return msg
}

// WaitFor reads until a message of msgType arrives, skipping others.
func (c *IPCClient) WaitFor(t *testing.T, msgType string) ipc.Message {
	t.Helper()
	for {
		msg := c.Read(t)
		if msg.Type == msgType {
			return msg
		}
	}
}

// Request sends a request with a fresh requestId and returns the matching
// response, skipping notifications in between.
func (c *IPCClient) Request(t *testing.T, msgType string, payload any) ipc.Message {
	t.Helper()

	msg, err := ipc.NewMessage(msgType, payload)
	require.NoError(t, err)
	c.nextID++
	msg.RequestID = "test-" + strconv.Itoa(c.nextID)
	c.Send(t, msg)

	for {
		resp := c.Read(t)
		if resp.RequestID == msg.RequestID {
			return resp
		}
	}
}
