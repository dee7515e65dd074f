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

package config

import "slices"

type Games struct {
	Custom []CustomGame `toml:"custom,omitempty"`
}

// CustomGame is a user supplied game the platform scanners can't find.
type CustomGame struct {
	ID             string   `toml:"id"`
	Name           string   `toml:"name"`
	InstallPath    string   `toml:"install_path,omitempty"`
	ExecutablePath string   `toml:"executable_path,omitempty"`
	ProcessNames   []string `toml:"process_names,omitempty"`
	DeepSearch     []string `toml:"deep_search,omitempty"`
}

func (c *Instance) CustomGames() []CustomGame {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]CustomGame, len(c.vals.Games.Custom))
	for i, g := range c.vals.Games.Custom {
		g.ProcessNames = slices.Clone(g.ProcessNames)
		g.DeepSearch = slices.Clone(g.DeepSearch)
		out[i] = g
	}
	return out
}

func (c *Instance) SetCustomGames(gs []CustomGame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Games.Custom = slices.Clone(gs)
}
