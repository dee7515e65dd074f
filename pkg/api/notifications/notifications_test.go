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

package notifications

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A full channel must drop rather than block the monitor tick.
func TestSendNotification_NonBlocking(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification)

	done := make(chan struct{})
	go func() {
		GameStateChanged(ns, games.StateEvent{GameID: "1", State: games.StateStarted})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("sendNotification blocked on full channel")
	}
}

func TestGameStateChanged(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		state  games.State
		method string
	}{
		{name: "started", state: games.StateStarted, method: models.NotificationGameStarted},
		{name: "stopped", state: games.StateStopped, method: models.NotificationGameStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ns := make(chan models.Notification, 1)
			GameStateChanged(ns, games.StateEvent{
				GameID: "1145360",
				Source: games.SourceSteam,
				Name:   "Hades",
				State:  tt.state,
				PID:    42,
			})

			n := <-ns
			assert.Equal(t, tt.method, n.Method)

			var payload map[string]any
			require.NoError(t, json.Unmarshal(n.Params, &payload))
			assert.Equal(t, "1145360", payload["gameId"])
			assert.Equal(t, "steam", payload["platformSource"])
			assert.Equal(t, string(tt.state), payload["state"])
			assert.InDelta(t, 42, payload["pid"], 0)
		})
	}
}

func TestGamesDetected(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	GamesDetected(ns, []games.Descriptor{
		{ID: "a", Source: games.SourceCustom, IsRunning: true},
		{ID: "b", Source: games.SourceCustom},
	})

	n := <-ns
	assert.Equal(t, models.NotificationGamesDetected, n.Method)

	var resp models.GamesResponse
	require.NoError(t, json.Unmarshal(n.Params, &resp))
	assert.Len(t, resp.Games, 2)
	assert.Equal(t, 1, resp.Running)
}

func TestGamesDetected_EmptyListIsArray(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	GamesDetected(ns, nil)

	n := <-ns
	assert.JSONEq(t, `{"games":[],"running":0}`, string(n.Params))
}
