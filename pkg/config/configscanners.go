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

type Scanners struct {
	Steam            *bool  `toml:"steam,omitempty"`
	Epic             *bool  `toml:"epic,omitempty"`
	Heroic           *bool  `toml:"heroic,omitempty"`
	Lutris           *bool  `toml:"lutris,omitempty"`
	WatchLibraries   *bool  `toml:"watch_libraries,omitempty"`
	SteamPath        string `toml:"steam_path,omitempty"`
	EpicManifestPath string `toml:"epic_manifests_path,omitempty"`
	HeroicConfigPath string `toml:"heroic_config_path,omitempty"`
	LutrisDataPath   string `toml:"lutris_data_path,omitempty"`
}

func enabled(b *bool) bool {
	return b == nil || *b
}

func (c *Instance) SteamEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return enabled(c.vals.Scanners.Steam)
}

func (c *Instance) EpicEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return enabled(c.vals.Scanners.Epic)
}

func (c *Instance) HeroicEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return enabled(c.vals.Scanners.Heroic)
}

func (c *Instance) LutrisEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return enabled(c.vals.Scanners.Lutris)
}

// WatchLibraries reports whether library folders are watched for installs.
func (c *Instance) WatchLibraries() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return enabled(c.vals.Scanners.WatchLibraries)
}

func (c *Instance) SteamPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Scanners.SteamPath
}

func (c *Instance) EpicManifestsPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Scanners.EpicManifestPath
}

func (c *Instance) HeroicConfigPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Scanners.HeroicConfigPath
}

// LutrisDataPath overrides the directory holding pga.db and games/.
func (c *Instance) LutrisDataPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Scanners.LutrisDataPath
}
