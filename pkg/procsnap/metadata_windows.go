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

import (
	"fmt"
	"unsafe"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/windows"
)

type versionInfo struct {
	FileDescription string
	ProductName     string
	CompanyName     string
}

var (
	user32             = windows.NewLazySystemDLL("user32.dll")
	procGetWindowTextW = user32.NewProc("GetWindowTextW")
)

const maxTitleLen = 512

// windowTitles maps each pid to the title of its first visible top level
// window with a non-empty title.
func windowTitles() map[int32]string {
	titles := make(map[int32]string)

	cb := windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		if !windows.IsWindowVisible(hwnd) {
			return 1
		}
		var pid uint32
		if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid == 0 {
			return 1
		}
		key := int32(pid) //nolint:gosec // G115: windows pids fit in int32
		if _, ok := titles[key]; ok {
			return 1
		}

		buf := make([]uint16, maxTitleLen)
		n, _, _ := procGetWindowTextW.Call(
			uintptr(hwnd),
			uintptr(unsafe.Pointer(&buf[0])),
			uintptr(len(buf)),
		)
		if n > 0 {
			titles[key] = windows.UTF16ToString(buf[:n])
		}
		return 1
	})

	if err := windows.EnumWindows(cb, nil); err != nil {
		log.Debug().Err(err).Msg("failed to enumerate windows")
	}
	return titles
}

// readVersionInfo reads the string table of an executable's version
// resource. Missing resources yield empty fields.
func readVersionInfo(path string) versionInfo {
	size, err := windows.GetFileVersionInfoSize(path, nil)
	if err != nil || size == 0 {
		return versionInfo{}
	}

	data := make([]byte, size)
	if err := windows.GetFileVersionInfo(path, 0, size, unsafe.Pointer(&data[0])); err != nil {
		return versionInfo{}
	}

	lang := "040904b0"
	var trans *[2]uint16
	var transLen uint32
	err = windows.VerQueryValue(
		unsafe.Pointer(&data[0]),
		`\VarFileInfo\Translation`,
		unsafe.Pointer(&trans),
		&transLen,
	)
	if err == nil && trans != nil && transLen >= 4 {
		lang = fmt.Sprintf("%04x%04x", trans[0], trans[1])
	}

	query := func(key string) string {
		var ptr *uint16
		var n uint32
		sub := `\StringFileInfo\` + lang + `\` + key
		if err := windows.VerQueryValue(unsafe.Pointer(&data[0]), sub, unsafe.Pointer(&ptr), &n); err != nil {
			return ""
		}
		if ptr == nil || n == 0 {
			return ""
		}
		return windows.UTF16PtrToString(ptr)
	}

	return versionInfo{
		FileDescription: query("FileDescription"),
		ProductName:     query("ProductName"),
		CompanyName:     query("CompanyName"),
	}
}
