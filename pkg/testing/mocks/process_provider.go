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

	"github.com/ZaparooProject/zaparoo-desktop/pkg/procsnap"
	"github.com/stretchr/testify/mock"
)

// MockProcessProvider is a testify mock of procsnap.Provider.
type MockProcessProvider struct {
	mock.Mock
}

// ListProcesses implements procsnap.Provider.
func (m *MockProcessProvider) ListProcesses(ctx context.Context, extended bool) ([]procsnap.Process, error) {
	args := m.Called(ctx, extended)
	procs, _ := args.Get(0).([]procsnap.Process)
	return procs, args.Error(1) //nolint:wrapcheck // mock
}
