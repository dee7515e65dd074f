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

// Package search ranks games by how closely their name matches a query.
package search

import (
	"sort"
	"strings"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/hbollon/go-edlib"
	"github.com/rs/zerolog/log"
)

// DefaultMinSimilarity is the Jaro-Winkler score a name must reach when the
// query is not a plain substring of it.
const DefaultMinSimilarity float32 = 0.85

type scored struct {
	game  games.Descriptor
	score float32
}

// Games returns the games whose name or id matches query, best match first.
// Substring matches always win over fuzzy ones. Ties keep input order.
func Games(gs []games.Descriptor, query string, minSimilarity float32) []games.Descriptor {
	q := normalize(query)
	if q == "" {
		return games.CloneAll(gs)
	}

	var matches []scored
	for i := range gs {
		score := scoreName(q, normalize(gs[i].Name))
		if idScore := scoreName(q, normalize(gs[i].ID)); idScore > score {
			score = idScore
		}
		if score < minSimilarity {
			continue
		}
		matches = append(matches, scored{game: gs[i].Clone(), score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	out := make([]games.Descriptor, len(matches))
	for i := range matches {
		out[i] = matches[i].game
	}
	log.Debug().Str("query", query).Int("matches", len(out)).Msg("searched games")
	return out
}

// scoreName is 2 for an exact match, 1 plus a small prefix bonus for a
// substring and the Jaro-Winkler similarity otherwise.
func scoreName(q, name string) float32 {
	switch {
	case name == "":
		return 0
	case name == q:
		return 2
	case strings.HasPrefix(name, q):
		return 1.5
	case strings.Contains(name, q):
		return 1
	}

	best := edlib.JaroWinklerSimilarity(q, name)
	// compare against each word too so "witcher" finds "The Witcher 3"
	for _, word := range strings.Fields(name) {
		if s := edlib.JaroWinklerSimilarity(q, word); s > best {
			best = s
		}
	}
	return best
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
