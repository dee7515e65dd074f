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

package helpers

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// AppName is used for the config, data and log directory names.
const AppName = "zaparoo-desktop"

// ConfigDir returns the per-user config directory.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DataDir returns the per-user data directory.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// LogDir returns the directory log files are written to.
func LogDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// IsWindowsStylePath returns true if the path looks like a Windows path
// (starts with drive letter like "C:" or UNC path like "\\server").
func IsWindowsStylePath(p string) bool {
	if p == "" {
		return false
	}

	if strings.HasPrefix(p, `\\`) || strings.HasPrefix(p, "//") {
		return true
	}

	if len(p) >= 2 && p[1] == ':' {
		c := p[0]
		return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
	}

	return false
}

// NormalizePathForComparison returns a cleaned, lowercase, forward slash form
// of a path. Windows style paths have their backslashes converted on every OS
// so paths reported by other machines or test fixtures compare consistently.
func NormalizePathForComparison(p string) string {
	if p == "" {
		return ""
	}
	cleaned := filepath.ToSlash(filepath.Clean(p))
	if IsWindowsStylePath(p) || IsWindowsStylePath(cleaned) {
		cleaned = path.Clean(strings.ReplaceAll(cleaned, `\`, "/"))
	}
	return strings.ToLower(cleaned)
}

// PathHasPrefix checks if path is within root directory, handling separator boundaries correctly.
// This avoids the prefix bug where "c:/games2/game.exe" would incorrectly match root "c:/games".
func PathHasPrefix(p, root string) bool {
	normPath := NormalizePathForComparison(p)
	normRoot := NormalizePathForComparison(root)

	if normPath == normRoot {
		return normRoot != ""
	}

	return within(normPath, normRoot)
}

// PathIsWithin is like PathHasPrefix but the path must be strictly below root,
// root itself does not count.
func PathIsWithin(p, root string) bool {
	normPath := NormalizePathForComparison(p)
	normRoot := NormalizePathForComparison(root)
	if normPath == normRoot {
		return false
	}
	return within(normPath, normRoot)
}

func within(normPath, normRoot string) bool {
	if normRoot == "" || normPath == "" {
		return false
	}

	// ensure root ends with separator to avoid "foo" matching "foo2"
	if !strings.HasSuffix(normRoot, "/") {
		normRoot += "/"
	}

	return strings.HasPrefix(normPath, normRoot)
}

// PathEqual reports whether two paths refer to the same location, ignoring
// case and separator style.
func PathEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return NormalizePathForComparison(a) == NormalizePathForComparison(b)
}

// BaseName returns the last element of a path, accepting both separators.
func BaseName(p string) string {
	p = strings.TrimRight(strings.ReplaceAll(p, `\`, "/"), "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// BareProcessName strips any directory and a trailing ".exe" from a process
// or executable name. Other extensions are kept because on Linux they are
// usually part of the binary name (game.x86_64).
func BareProcessName(name string) string {
	name = BaseName(name)
	if len(name) > 4 && strings.EqualFold(name[len(name)-4:], ".exe") {
		return name[:len(name)-4]
	}
	return name
}
