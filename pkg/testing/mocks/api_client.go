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

package mocks

import (
	"context"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/ipc"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/models"
	"github.com/stretchr/testify/mock"
)

// MockAPIClient is a mock implementation of client.APIClient for testing.
type MockAPIClient struct {
	mock.Mock
}

// NewMockAPIClient creates a new mock API client.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// Call mocks the API call method.
func (m *MockAPIClient) Call(ctx context.Context, msgType string, payload any) (ipc.Message, error) {
	args := m.Called(ctx, msgType, payload)
	msg, _ := args.Get(0).(ipc.Message)
	return msg, args.Error(1)
}

// WaitNotification mocks waiting for a notification.
func (m *MockAPIClient) WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	msgType string,
) (ipc.Message, error) {
	args := m.Called(ctx, timeout, msgType)
	msg, _ := args.Get(0).(ipc.Message)
	return msg, args.Error(1)
}

// SetupGamesResponse configures games:list to answer with resp.
func (m *MockAPIClient) SetupGamesResponse(resp models.GamesResponse) {
	msg, err := ipc.NewMessage(ipc.ResponseType(models.MethodGamesList), resp)
	if err != nil {
		panic(err)
	}
	m.On("Call", mock.Anything, models.MethodGamesList, mock.Anything).Return(msg, nil)
}

// SetupRescanResponse configures games:rescan to answer with resp.
func (m *MockAPIClient) SetupRescanResponse(resp models.GamesResponse) {
	msg, err := ipc.NewMessage(ipc.ResponseType(models.MethodGamesRescan), resp)
	if err != nil {
		panic(err)
	}
	m.On("Call", mock.Anything, models.MethodGamesRescan, mock.Anything).Return(msg, nil)
}

// SetupCallError makes every request of msgType fail with err.
func (m *MockAPIClient) SetupCallError(msgType string, err error) {
	m.On("Call", mock.Anything, msgType, mock.Anything).Return(ipc.Message{}, err)
}
