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

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/client"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/ipc"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/config"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games/scanners/custom"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/testing/fixtures"
	testhelpers "github.com/ZaparooProject/zaparoo-desktop/pkg/testing/helpers"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newServiceConfig(t *testing.T, mods ...func(*config.Values)) *config.Instance {
	t.Helper()
	off := false
	mods = append([]func(*config.Values){func(v *config.Values) {
		v.Service.APIListen = ""
		v.Scanners.WatchLibraries = &off
		v.Monitor.PollInterval = "20ms"
	}}, mods...)
	cfg, err := testhelpers.NewTestConfig(t.TempDir(), mods...)
	require.NoError(t, err)
	cfg.SetAPIPort(0)
	return cfg
}

func startService(t *testing.T, cfg *config.Instance, opts ...Option) {
	t.Helper()
	stop, err := Start(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, stop())
	})
}

func dial(t *testing.T, cfg *config.Instance) *client.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, client.LocalURL(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBuildScanners(t *testing.T) {
	t.Parallel()

	off := false
	tests := []struct {
		mod  func(*config.Values)
		name string
		want []string
	}{
		{
			name: "defaults",
			mod:  func(*config.Values) {},
			want: []string{"steam", "epic", "heroic", "lutris", custom.ID},
		},
		{
			name: "steam and lutris disabled",
			mod: func(v *config.Values) {
				v.Scanners.Steam = &off
				v.Scanners.Lutris = &off
			},
			want: []string{"epic", "heroic", custom.ID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := testhelpers.NewTestConfig(t.TempDir(), tt.mod)
			require.NoError(t, err)

			var ids []string
			for _, sc := range buildScanners(cfg) {
				ids = append(ids, sc.ID())
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStart_ServesScannedGames(t *testing.T) {
	t.Parallel()

	cfg := newServiceConfig(t)
	provider := testhelpers.NewFakeProvider()
	scanner := mocks.NewMockScanner("test")
	scanner.On("DetectGames", mock.Anything).Return(fixtures.SampleGames(), nil)

	startService(t, cfg, WithProcessProvider(provider), WithScanners(scanner))
	require.NotZero(t, cfg.APIPort())

	c := dial(t, cfg)
	ctx := context.Background()

	var resp models.GamesResponse
	require.Eventually(t, func() bool {
		got, err := c.Games(ctx, nil)
		if err != nil {
			return false
		}
		resp = got
		return len(got.Games) == 3
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0, resp.Running)
}

func TestStart_ForwardsGameStarted(t *testing.T) {
	t.Parallel()

	cfg := newServiceConfig(t)
	pinball := fixtures.NewCustomGame()
	provider := testhelpers.NewFakeProvider()
	scanner := mocks.NewMockScanner("test")
	scanner.On("DetectGames", mock.Anything).Return([]games.Descriptor{pinball}, nil)

	startService(t, cfg, WithProcessProvider(provider), WithScanners(scanner))
	c := dial(t, cfg)
	ctx := context.Background()

	require.Eventually(t, func() bool {
		got, err := c.Games(ctx, nil)
		return err == nil && len(got.Games) == 1
	}, 5*time.Second, 20*time.Millisecond)

	started := make(chan ipc.Message, 1)
	sub := c.Bridge().Subscribe(models.NotificationGameStarted, func(m ipc.Message) {
		select {
		case started <- m:
		default:
		}
	})
	defer sub.Unsubscribe()

	provider.SetProcesses(fixtures.ProcessFor(4242, &pinball))

	var msg ipc.Message
	select {
	case msg = <-started:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no games:started notification")
	}

	var ev games.StateEvent
	require.NoError(t, msg.Decode(&ev))
	assert.Equal(t, pinball.ID, ev.GameID)
	assert.Equal(t, games.StateStarted, ev.State)
	assert.Equal(t, int32(4242), ev.PID)

	running := true
	list, err := c.Games(ctx, &models.GamesListParams{Running: &running})
	require.NoError(t, err)
	require.Len(t, list.Games, 1)
	assert.True(t, list.Games[0].IsRunning)
}

func TestStart_ScannerFailureStillServes(t *testing.T) {
	t.Parallel()

	cfg := newServiceConfig(t)
	broken := mocks.NewMockScanner("broken")
	broken.On("DetectGames", mock.Anything).Return(nil, errors.New("library unreadable"))
	working := mocks.NewMockScanner("working")
	working.On("DetectGames", mock.Anything).Return([]games.Descriptor{fixtures.NewSteamGame()}, nil)

	startService(t, cfg,
		WithProcessProvider(testhelpers.NewFakeProvider()),
		WithScanners(broken, working),
	)
	c := dial(t, cfg)

	require.Eventually(t, func() bool {
		got, err := c.Games(context.Background(), nil)
		return err == nil && len(got.Games) == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStart_PortInUse(t *testing.T) {
	t.Parallel()

	first := newServiceConfig(t)
	startService(t, first,
		WithProcessProvider(testhelpers.NewFakeProvider()),
		WithScanners(),
	)

	second := newServiceConfig(t)
	second.SetAPIPort(first.APIPort())
	stop, err := Start(second,
		WithProcessProvider(testhelpers.NewFakeProvider()),
		WithScanners(),
	)
	require.Error(t, err)
	assert.Nil(t, stop)
}

func TestStart_UnknownProvider(t *testing.T) {
	t.Parallel()

	cfg := newServiceConfig(t, func(v *config.Values) {
		v.Monitor.Provider = "carrier-pigeon"
	})
	stop, err := Start(cfg, WithScanners())
	require.Error(t, err)
	assert.Nil(t, stop)
}
