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

package vdfbinary

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ErrNoShortcuts is returned when the document has no "shortcuts" map.
var ErrNoShortcuts = errors.New("could not find 'shortcuts' in parsed vdf")

// Shortcut is a non-Steam game added to the Steam library.
type Shortcut struct {
	AppName       string
	Exe           string
	StartDir      string
	LaunchOptions string
	AppID         uint32
	IsHidden      bool
}

// ParseShortcuts parses shortcuts.vdf. Only appid and AppName are
// required; tools like EmuDeck and Lutris omit the rest. Exe and StartDir
// are returned without the surrounding quotes Steam stores them with.
func ParseShortcuts(r io.Reader) ([]Shortcut, error) {
	root, err := Parse(r)
	if err != nil {
		return nil, err
	}

	entries, ok := root.GetMap("shortcuts")
	if !ok {
		return nil, ErrNoShortcuts
	}

	// entries are keyed "0", "1", ... but may have gaps after deletions
	keys := make([]int, 0, len(entries))
	for k := range entries {
		i, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		keys = append(keys, i)
	}
	sort.Ints(keys)

	shortcuts := make([]Shortcut, 0, len(keys))
	for _, i := range keys {
		s := entries[strconv.Itoa(i)]

		appID, ok := s.GetUint("appid")
		if !ok {
			return nil, fmt.Errorf("shortcut %d: missing appid", i)
		}
		appName, ok := s.GetString("AppName")
		if !ok {
			return nil, fmt.Errorf("shortcut %d: missing AppName", i)
		}

		exe, _ := s.GetString("Exe")
		startDir, _ := s.GetString("StartDir")
		launchOpts, _ := s.GetString("LaunchOptions")
		hidden, _ := s.GetBool("IsHidden")

		shortcuts = append(shortcuts, Shortcut{
			AppID:         appID,
			AppName:       appName,
			Exe:           Unquote(exe),
			StartDir:      Unquote(startDir),
			LaunchOptions: launchOpts,
			IsHidden:      hidden,
		})
	}

	return shortcuts, nil
}

// Unquote strips one pair of surrounding double quotes.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
