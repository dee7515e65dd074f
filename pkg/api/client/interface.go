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

package client

import (
	"context"
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/ipc"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/config"
)

// APIClient abstracts API communication for testability.
type APIClient interface {
	// Call sends a request and returns the response message.
	Call(ctx context.Context, msgType string, payload any) (ipc.Message, error)

	// WaitNotification blocks until a message of the given type is received.
	WaitNotification(ctx context.Context, timeout time.Duration, msgType string) (ipc.Message, error)
}

// LocalAPIClient implements APIClient with one connection per call.
type LocalAPIClient struct {
	cfg *config.Instance
}

// NewLocalAPIClient creates an APIClient that communicates with the local API.
func NewLocalAPIClient(cfg *config.Instance) *LocalAPIClient {
	return &LocalAPIClient{cfg: cfg}
}

// Call sends msgType via LocalClient.
func (c *LocalAPIClient) Call(ctx context.Context, msgType string, payload any) (ipc.Message, error) {
	resp, err := LocalClient(ctx, c.cfg, msgType, payload)
	if err != nil {
		return ipc.Message{}, fmt.Errorf("api call failed: %w", err)
	}
	return resp, nil
}

// WaitNotification waits for a notification via the local WebSocket client.
func (c *LocalAPIClient) WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	msgType string,
) (ipc.Message, error) {
	resp, err := WaitNotification(ctx, timeout, c.cfg, msgType)
	if err != nil {
		return ipc.Message{}, fmt.Errorf("wait notification failed: %w", err)
	}
	return resp, nil
}
