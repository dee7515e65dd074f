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

package procsnap

import "golang.org/x/sys/windows"

// sessionID returns the terminal services session of a process, or -1 if
// unknown. Services run in session 0.
func sessionID(pid int32) int32 {
	if pid < 0 {
		return -1
	}
	var sid uint32
	if err := windows.ProcessIdToSessionId(uint32(pid), &sid); err != nil {
		return -1
	}
	return int32(sid) //nolint:gosec // G115: session ids are small
}
