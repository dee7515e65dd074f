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

	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/stretchr/testify/mock"
)

// MockScanner is a testify mock of a game catalog scanner.
type MockScanner struct {
	mock.Mock
}

// NewMockScanner returns an available scanner with the given ID whose
// DetectGames expectations are left to the test.
func NewMockScanner(id string) *MockScanner {
	m := &MockScanner{}
	m.On("ID").Return(id).Maybe()
	m.On("IsAvailable").Return(true).Maybe()
	return m
}

func (m *MockScanner) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockScanner) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockScanner) DetectGames(ctx context.Context) ([]games.Descriptor, error) {
	args := m.Called(ctx)
	found, _ := args.Get(0).([]games.Descriptor)
	return found, args.Error(1) //nolint:wrapcheck // mock
}

// MockWatchableScanner adds library watch paths to MockScanner.
type MockWatchableScanner struct {
	MockScanner
}

func (m *MockWatchableScanner) WatchPaths() []string {
	args := m.Called()
	paths, _ := args.Get(0).([]string)
	return paths
}
