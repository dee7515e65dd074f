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

// Package client connects to a running service over its IPC WebSocket.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/api"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/ipc"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/config"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers/syncutil"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const DialTimeout = 5 * time.Second

var ErrConnectionClosed = errors.New("connection closed")

// Client is a long lived connection with its own IPC bridge.
type Client struct {
	conn      *websocket.Conn
	bridge    *ipc.Bridge
	done      chan struct{}
	closeOnce sync.Once
	writeMu   syncutil.Mutex
}

// LocalURL returns the WebSocket URL of the service configured in cfg.
// Wildcard listen addresses are dialled on loopback.
func LocalURL(cfg *config.Instance) string {
	host, port, err := net.SplitHostPort(cfg.APIListen())
	if err != nil {
		host, port = "127.0.0.1", strconv.Itoa(cfg.APIPort())
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(host, port),
		Path:   api.IPCPath,
	}
	return u.String()
}

// ShareURL returns the WebSocket URL other devices on the network would
// use. It is LocalURL unless the service listens on a wildcard address and
// a private LAN address is available.
func ShareURL(cfg *config.Instance) string {
	host, port, err := net.SplitHostPort(cfg.APIListen())
	if err != nil {
		return LocalURL(cfg)
	}
	if ip := net.ParseIP(host); host != "" && (ip == nil || !ip.IsUnspecified()) {
		return LocalURL(cfg)
	}
	lanIP := helpers.GetLocalIP()
	if lanIP == "" {
		return LocalURL(cfg)
	}
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(lanIP, port),
		Path:   api.IPCPath,
	}
	return u.String()
}

// Dial connects to wsURL and starts reading in the background.
func Dial(ctx context.Context, wsURL string, opts ...ipc.Option) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: DialTimeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	c := &Client{
		conn: conn,
		done: make(chan struct{}),
	}
	c.bridge = ipc.NewBridge(ipc.TransportFunc(c.write), opts...)
	go c.readLoop()
	return c, nil
}

func (c *Client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer c.bridge.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, net.ErrClosed) {
				log.Debug().Err(err).Msg("ipc connection read ended")
			}
			return
		}
		if string(data) == "pong" {
			continue
		}
		_ = c.bridge.HandleInbound(data)
	}
}

// Bridge returns the client's IPC bridge.
func (c *Client) Bridge() *ipc.Bridge {
	return c.bridge
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close fails pending requests and closes the connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.bridge.Close()
		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		err = c.conn.Close()
		<-c.done
	})
	if err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}

// Games lists the detected games, optionally filtered.
func (c *Client) Games(ctx context.Context, params *models.GamesListParams) (models.GamesResponse, error) {
	var payload any
	if params != nil {
		payload = params
	}
	return ipc.Request[models.GamesResponse](ctx, c.bridge, models.MethodGamesList, payload, 0)
}

// Rescan asks the service to rescan every library.
func (c *Client) Rescan(ctx context.Context) (models.GamesResponse, error) {
	return ipc.Request[models.GamesResponse](ctx, c.bridge, models.MethodGamesRescan, nil, 0)
}

// Version returns the running service's version.
func (c *Client) Version(ctx context.Context) (models.VersionResponse, error) {
	return ipc.Request[models.VersionResponse](ctx, c.bridge, models.MethodVersion, nil, 0)
}

// WaitNotification blocks until a message of msgType arrives. A zero
// timeout waits until ctx is done.
func (c *Client) WaitNotification(ctx context.Context, timeout time.Duration, msgType string) (ipc.Message, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	got := make(chan ipc.Message, 1)
	sub := c.bridge.Subscribe(msgType, func(msg ipc.Message) {
		select {
		case got <- msg:
		default:
		}
	})
	defer sub.Unsubscribe()

	select {
	case msg := <-got:
		return msg, nil
	case <-c.done:
		return ipc.Message{}, ErrConnectionClosed
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ipc.Message{}, ipc.ErrRequestTimeout
		}
		return ipc.Message{}, fmt.Errorf("%w: %w", ipc.ErrRequestCancelled, ctx.Err())
	}
}

// LocalClient sends one request to the local service, waits for the
// response using the configured request timeout, then disconnects.
func LocalClient(ctx context.Context, cfg *config.Instance, msgType string, payload any) (ipc.Message, error) {
	c, err := Dial(ctx, LocalURL(cfg), ipc.WithDefaultTimeout(cfg.RequestTimeout()))
	if err != nil {
		return ipc.Message{}, err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing websocket")
		}
	}()

	msg, err := ipc.NewMessage(msgType, payload)
	if err != nil {
		return ipc.Message{}, err
	}
	resp, err := c.bridge.SendAndReceive(ctx, msg, 0)
	if err != nil {
		return ipc.Message{}, fmt.Errorf("%s: %w", msgType, err)
	}
	return resp, nil
}

// WaitNotification connects to the local service and waits for one message
// of msgType.
func WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	cfg *config.Instance,
	msgType string,
) (ipc.Message, error) {
	c, err := Dial(ctx, LocalURL(cfg))
	if err != nil {
		return ipc.Message{}, err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing websocket")
		}
	}()
	return c.WaitNotification(ctx, timeout, msgType)
}

// IsServiceRunning reports whether the local service answers a version
// request.
func IsServiceRunning(cfg *config.Instance) bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := LocalClient(ctx, cfg, models.MethodVersion, nil)
	return err == nil
}

// WaitForAPI polls until the service answers or maxWait passes.
func WaitForAPI(cfg *config.Instance, maxWait, checkInterval time.Duration) bool {
	deadline := time.Now().Add(maxWait)
	for {
		if IsServiceRunning(cfg) {
			return true
		}
		if time.Now().Add(checkInterval).After(deadline) {
			return false
		}
		time.Sleep(checkInterval)
	}
}
