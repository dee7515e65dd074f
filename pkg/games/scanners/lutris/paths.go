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

package lutris

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
)

// DefaultDataDirs returns native then Flatpak Lutris data directories.
// Lutris only exists on Linux.
func DefaultDataDirs() []string {
	if runtime.GOOS != "linux" {
		return nil
	}
	dirs := []string{filepath.Join(xdg.DataHome, "lutris")}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".var", "app", "net.lutris.Lutris", "data", "lutris"))
	}
	return dirs
}

// legacyConfigDir maps a data dir to the pre 0.5.13 config location for
// game YAML files.
func legacyConfigDir(dataDir string) string {
	if filepath.Clean(dataDir) == filepath.Join(xdg.DataHome, "lutris") {
		return filepath.Join(xdg.ConfigHome, "lutris", "games")
	}
	return filepath.Join(filepath.Dir(filepath.Dir(dataDir)), "config", "lutris", "games")
}
