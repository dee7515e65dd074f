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

package custom

import (
	"context"
	"testing"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/config"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectGames(t *testing.T) {
	t.Parallel()

	entries := []config.CustomGame{
		{ID: "doom", Name: "DOOM", InstallPath: "/games/doom", ProcessNames: []string{"gzdoom"}},
		{ID: "mame", DeepSearch: []string{"MAME"}},
	}
	s := New(func() []config.CustomGame { return entries })
	require.True(t, s.IsAvailable())

	found, err := s.DetectGames(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.Equal(t, games.Descriptor{
		ID:           "doom",
		Name:         "DOOM",
		Source:       games.SourceCustom,
		InstallPath:  "/games/doom",
		ProcessNames: []string{"gzdoom"},
	}, found[0])
	assert.Equal(t, "mame", found[1].Name)
	assert.True(t, found[1].NeedsDeepSearch())
}

func TestUnavailable(t *testing.T) {
	t.Parallel()

	assert.False(t, New(nil).IsAvailable())
	assert.False(t, New(func() []config.CustomGame { return nil }).IsAvailable())

	found, err := New(nil).DetectGames(context.Background())
	require.NoError(t, err)
	assert.Empty(t, found)
}
