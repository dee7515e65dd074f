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

package telemetry

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: ""},
		{
			name:     "no username in path",
			input:    "/usr/games/bin/game",
			expected: "/usr/games/bin/game",
		},
		{
			name:     "linux steam library",
			input:    "/home/alice/.steam/steam/steamapps/common/Celeste/Celeste",
			expected: "/home/<user>/.steam/steam/steamapps/common/Celeste/Celeste",
		},
		{
			name:     "linux home path uppercase",
			input:    "/Home/Alice/Games/Heroic/game",
			expected: "/home/<user>/Games/Heroic/game",
		},
		{
			name:     "macos users path",
			input:    "/Users/bob/Library/Application Support/Steam/steamapps",
			expected: "/Users/<user>/Library/Application Support/Steam/steamapps",
		},
		{
			name:     "windows path",
			input:    "C:\\Users\\carol\\AppData\\Roaming\\heroic\\gog_store",
			expected: "C:\\Users\\<user>\\AppData\\Roaming\\heroic\\gog_store",
		},
		{
			name:     "windows path different drive",
			input:    "D:\\Users\\admin\\Games\\game.exe",
			expected: "C:\\Users\\<user>\\Games\\game.exe",
		},
		{
			name:     "multiple paths in message",
			input:    "copying /home/alice/src to /home/bob/dst",
			expected: "copying /home/<user>/src to /home/<user>/dst",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, sanitizePath(tt.input))
		})
	}
}

func TestSanitizeEvent(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{
		ServerName: "alice-desktop",
		User:       sentry.User{Username: "alice"},
		Message:    "scan failed for /home/alice/Games",
		Exception: []sentry.Exception{{
			Value: `open C:\Users\alice\AppData\Roaming\heroic\x.json`,
			Stacktrace: &sentry.Stacktrace{Frames: []sentry.Frame{{
				AbsPath:  "/home/alice/src/main.go",
				Filename: "/home/alice/src/main.go",
			}}},
		}},
		Extra: map[string]any{"path": "/Users/alice/x", "count": 3},
		Tags:  map[string]string{"exe": "/home/alice/game"},
	}

	out := sanitizeEvent(event)
	require.NotNil(t, out)
	assert.Empty(t, out.ServerName)
	assert.Empty(t, out.User.Username)
	assert.Equal(t, "scan failed for /home/<user>/Games", out.Message)
	assert.Equal(t, `open C:\Users\<user>\AppData\Roaming\heroic\x.json`, out.Exception[0].Value)
	assert.Equal(t, "/home/<user>/src/main.go", out.Exception[0].Stacktrace.Frames[0].AbsPath)
	assert.Equal(t, "/Users/<user>/x", out.Extra["path"])
	assert.Equal(t, 3, out.Extra["count"])
	assert.Equal(t, "/home/<user>/game", out.Tags["exe"])
}

func TestInitDisabled(t *testing.T) {
	t.Parallel()
	require.NoError(t, Init(Options{Enabled: false, DSN: "https://key@example.invalid/1"}))
	assert.False(t, Enabled())
}

func TestInitRequiresDSN(t *testing.T) {
	t.Parallel()
	require.ErrorIs(t, Init(Options{Enabled: true}), ErrNoDSN)
	assert.False(t, Enabled())
}

func TestCloseAndFlushWhenDisabled(t *testing.T) {
	t.Parallel()
	Close()
	Flush()
}

func TestRecoverRepanics(t *testing.T) {
	t.Parallel()
	assert.PanicsWithValue(t, "boom", func() {
		defer Recover()
		panic("boom")
	})
}
