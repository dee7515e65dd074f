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

// Package custom turns user configured game entries into descriptors.
package custom

import (
	"context"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/config"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
)

// ID is the scanner identifier.
const ID = "custom"

// Source provides the current custom entries. It is read on every scan so
// config reloads show up on the next rescan.
type Source func() []config.CustomGame

// Scanner returns descriptors for config defined games.
type Scanner struct {
	entries Source
}

func New(entries Source) *Scanner {
	return &Scanner{entries: entries}
}

// ID implements the scanner interface.
func (*Scanner) ID() string {
	return ID
}

// IsAvailable reports whether any custom games are configured.
func (s *Scanner) IsAvailable() bool {
	return s.entries != nil && len(s.entries()) > 0
}

// DetectGames converts every configured entry. Entries are validated by the
// game service along with every other scanner's output.
func (s *Scanner) DetectGames(_ context.Context) ([]games.Descriptor, error) {
	if s.entries == nil {
		return nil, nil
	}
	entries := s.entries()
	out := make([]games.Descriptor, 0, len(entries))
	for _, e := range entries {
		name := e.Name
		if name == "" {
			name = e.ID
		}
		out = append(out, games.Descriptor{
			ID:                 e.ID,
			Name:               name,
			Source:             games.SourceCustom,
			InstallPath:        e.InstallPath,
			ExecutablePath:     e.ExecutablePath,
			ProcessNames:       e.ProcessNames,
			DeepSearchPatterns: e.DeepSearch,
		})
	}
	return out, nil
}
