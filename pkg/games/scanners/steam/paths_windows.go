//go:build windows

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

package steam

import (
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/windows/registry"
)

// DefaultSteamDirs returns Steam install directories from the registry,
// then the default install locations.
func DefaultSteamDirs() []string {
	var dirs []string

	lookups := []struct {
		path  string
		value string
		root  registry.Key
	}{
		{root: registry.CURRENT_USER, path: `Software\Valve\Steam`, value: "SteamPath"},
		{root: registry.LOCAL_MACHINE, path: `SOFTWARE\Wow6432Node\Valve\Steam`, value: "InstallPath"},
		{root: registry.LOCAL_MACHINE, path: `SOFTWARE\Valve\Steam`, value: "InstallPath"},
	}
	for _, l := range lookups {
		key, err := registry.OpenKey(l.root, l.path, registry.QUERY_VALUE)
		if err != nil {
			continue
		}
		p, _, err := key.GetStringValue(l.value)
		if closeErr := key.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing registry key")
		}
		if err == nil && p != "" {
			dirs = append(dirs, p)
		}
	}

	return append(dirs,
		`C:\Program Files (x86)\Steam`,
		`C:\Program Files\Steam`,
	)
}
