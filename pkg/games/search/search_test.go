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

package search

import (
	"testing"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func catalog() []games.Descriptor {
	return []games.Descriptor{
		{ID: "292030", Name: "The Witcher 3: Wild Hunt", Source: games.SourceSteam},
		{ID: "1091500", Name: "Cyberpunk 2077", Source: games.SourceSteam},
		{ID: "Fortnite", Name: "Fortnite", Source: games.SourceEpic},
		{ID: "celeste", Name: "Celeste", Source: games.SourceLutris},
		{ID: "1207664643", Name: "The Witcher", Source: games.SourceGOG},
	}
}

func ids(gs []games.Descriptor) []string {
	out := make([]string, len(gs))
	for i := range gs {
		out[i] = gs[i].ID
	}
	return out
}

func TestGames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "exact", query: "fortnite", want: []string{"Fortnite"}},
		{name: "substring keeps order", query: "witcher", want: []string{"292030", "1207664643"}},
		{name: "exact beats substring", query: "the witcher", want: []string{"1207664643", "292030"}},
		{name: "typo", query: "cyberpnk", want: []string{"1091500"}},
		{name: "id match", query: "292030", want: []string{"292030"}},
		{name: "whitespace folded", query: "  CELESTE ", want: []string{"celeste"}},
		{name: "no match", query: "zelda", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ids(Games(catalog(), tt.query, DefaultMinSimilarity)))
		})
	}
}

func TestGames_EmptyQueryReturnsAll(t *testing.T) {
	t.Parallel()
	assert.Len(t, Games(catalog(), "", DefaultMinSimilarity), 5)
}

func TestGames_ResultsAreCopies(t *testing.T) {
	t.Parallel()
	gs := catalog()
	gs[2].ProcessNames = []string{"FortniteClient"}
	out := Games(gs, "fortnite", DefaultMinSimilarity)
	out[0].ProcessNames[0] = "changed"
	assert.Equal(t, "FortniteClient", gs[2].ProcessNames[0])
}

func TestGames_SubsetProperty(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		query := rapid.StringMatching(`[a-z ]{0,12}`).Draw(t, "query")
		out := Games(catalog(), query, DefaultMinSimilarity)
		assert.LessOrEqual(t, len(out), len(catalog()))
		seen := map[string]bool{}
		for _, g := range out {
			assert.False(t, seen[g.ID], "duplicate %s", g.ID)
			seen[g.ID] = true
		}
	})
}
