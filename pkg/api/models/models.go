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

package models

import (
	"encoding/json"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
)

// Notification types published to the web content and MQTT.
const (
	NotificationGamesDetected = "games:detected"
	NotificationGameStarted   = "games:started"
	NotificationGameStopped   = "games:stopped"
)

// Request types the core answers.
const (
	MethodGamesList   = "games:list"
	MethodGamesRescan = "games:rescan"
	MethodVersion     = "version"
)

// Notification is an event queued for every notification consumer. Params
// is the already encoded payload.
type Notification struct {
	Method string
	Params json.RawMessage
}

// GamesResponse answers games:list and games:rescan and is the payload of
// games:detected.
type GamesResponse struct {
	Games   []games.Descriptor `json:"games"`
	Running int                `json:"running"`
}

// NewGamesResponse counts running games so clients don't have to.
func NewGamesResponse(gs []games.Descriptor) GamesResponse {
	if gs == nil {
		gs = []games.Descriptor{}
	}
	running := 0
	for i := range gs {
		if gs[i].IsRunning {
			running++
		}
	}
	return GamesResponse{Games: gs, Running: running}
}

// GamesListParams optionally filters games:list.
type GamesListParams struct {
	Running *bool        `json:"running,omitempty"`
	Source  games.Source `json:"source,omitempty" validate:"omitempty,oneof=steam epic gog heroic lutris custom"`
	// Query ranks results by fuzzy name match and drops non-matches.
	Query string `json:"query,omitempty" validate:"omitempty,max=200"`
}

// VersionResponse answers version requests.
type VersionResponse struct {
	Version  string `json:"version"`
	Platform string `json:"platform"`
}

// HealthResponse is served on the HTTP health endpoint.
type HealthResponse struct {
	StartedAt  time.Time `json:"startedAt"`
	Status     string    `json:"status"`
	Version    string    `json:"version"`
	Games      int       `json:"games"`
	Clients    int       `json:"clients"`
	Monitoring bool      `json:"monitoring"`
}
