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

	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/rs/zerolog/log"
)

// sendNotification queues a notification without blocking. A full channel
// drops the notification so the monitor tick that raised it can't stall.
func sendNotification(ns chan<- models.Notification, method string, payload any) {
	var params json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("method", method).Msg("failed to marshal notification params")
			return
		}
		params = data
	}

	select {
	case ns <- models.Notification{Method: method, Params: params}:
	default:
		log.Warn().Str("method", method).Msg("notification channel full, dropping notification")
	}
}

// GamesDetected announces the result of a library scan.
func GamesDetected(ns chan<- models.Notification, gs []games.Descriptor) {
	sendNotification(ns, models.NotificationGamesDetected, models.NewGamesResponse(gs))
}

// GameStateChanged announces a started or stopped edge.
func GameStateChanged(ns chan<- models.Notification, ev games.StateEvent) {
	method := models.NotificationGameStarted
	if ev.State == games.StateStopped {
		method = models.NotificationGameStopped
	}
	sendNotification(ns, method, ev)
}
