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

package fixtures

import (
	"path"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/procsnap"
)

// Common game and process fixtures shared by service and API tests.

// NewSteamGame returns a Steam title matched by its install directory.
func NewSteamGame() games.Descriptor {
	return games.Descriptor{
		ID:          "570",
		Name:        "Dota 2",
		Source:      games.SourceSteam,
		InstallPath: "/games/steamapps/common/dota 2 beta",
	}
}

// NewEpicGame returns an Epic title matched by its launch executable.
func NewEpicGame() games.Descriptor {
	return games.Descriptor{
		ID:             "Fortnite",
		Name:           "Fortnite",
		Source:         games.SourceEpic,
		InstallPath:    "/games/epic/Fortnite",
		ExecutablePath: "/games/epic/Fortnite/FortniteLauncher",
	}
}

// NewCustomGame returns a user defined game matched by process name.
func NewCustomGame() games.Descriptor {
	return games.Descriptor{
		ID:           "pinball",
		Name:         "Space Cadet Pinball",
		Source:       games.SourceCustom,
		ProcessNames: []string{"pinball"},
	}
}

// NewDeepSearchGame returns a game only found through extended process
// metadata.
func NewDeepSearchGame() games.Descriptor {
	return games.Descriptor{
		ID:                 "emulated",
		Name:               "Emulated Classic",
		Source:             games.SourceCustom,
		DeepSearchPatterns: []string{"classic.rom"},
	}
}

// SampleGames returns one game from each fixture.
func SampleGames() []games.Descriptor {
	return []games.Descriptor{
		NewSteamGame(),
		NewEpicGame(),
		NewCustomGame(),
	}
}

// ProcessFor returns a user process that runs g's executable, or a binary
// inside its install directory.
func ProcessFor(pid int32, g *games.Descriptor) procsnap.Process {
	exe := g.ExecutablePath
	if exe == "" && g.InstallPath != "" {
		exe = path.Join(g.InstallPath, "game")
	}
	name := path.Base(exe)
	if len(g.ProcessNames) > 0 {
		name = g.ProcessNames[0]
	}
	return procsnap.Process{
		PID:            pid,
		Name:           name,
		ExecutablePath: exe,
		SessionID:      1,
	}
}
