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
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// TestPropertyNormalizePathIdempotent verifies normalizing twice gives same result.
func TestPropertyNormalizePathIdempotent(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		p := rapid.StringMatching(`[a-zA-Z0-9_\-./\\]{0,50}`).Draw(t, "path")

		once := NormalizePathForComparison(p)
		twice := NormalizePathForComparison(once)

		if once != twice {
			t.Fatalf("not idempotent: first=%q, second=%q", once, twice)
		}
	})
}

// TestPropertySiblingPrefixNeverWithin verifies a directory sharing a name
// prefix with the root is never treated as inside it.
func TestPropertySiblingPrefixNeverWithin(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		dir := rapid.StringMatching(`[a-zA-Z0-9]{1,12}`).Draw(t, "dir")
		suffix := rapid.StringMatching(`[a-zA-Z0-9]{1,6}`).Draw(t, "suffix")
		file := rapid.StringMatching(`[a-zA-Z0-9]{1,12}\.exe`).Draw(t, "file")

		root := `C:\Games\` + dir
		sibling := root + suffix + `\` + file

		if PathIsWithin(sibling, root) {
			t.Fatalf("sibling %q matched root %q", sibling, root)
		}
		if !PathIsWithin(root+`\`+file, root) {
			t.Fatalf("child of %q did not match", root)
		}
	})
}

// TestPropertyNormalizeLowercase verifies the result is always lowercase.
func TestPropertyNormalizeLowercase(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		p := rapid.StringMatching(`[a-zA-Z0-9_\-./\\]{0,50}`).Draw(t, "path")

		result := NormalizePathForComparison(p)
		if result != strings.ToLower(result) {
			t.Fatalf("result not lowercase: %q from input %q", result, p)
		}
	})
}
