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

package heroic

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
)

// DefaultConfigDirs returns Heroic's config locations for this OS, native
// install first.
func DefaultConfigDirs() []string {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return nil
		}
		return []string{filepath.Join(appData, "heroic")}
	}

	dirs := []string{filepath.Join(xdg.ConfigHome, "heroic")}
	if runtime.GOOS == "linux" {
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs,
				filepath.Join(home, ".var", "app", "com.heroicgameslauncher.hgl", "config", "heroic"))
		}
	}
	return dirs
}
