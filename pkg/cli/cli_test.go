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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"testing"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/ipc"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/testing/fixtures"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *Flags {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := SetupFlagSet(fs)
	exit, err := f.Pre(args, io.Discard)
	require.NoError(t, err)
	require.False(t, exit)
	return f
}

func TestPre_Version(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := SetupFlagSet(fs)
	var out bytes.Buffer

	exit, err := f.Pre([]string{"-version"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Contains(t, out.String(), "zaparoo-desktop v")
}

func TestPre_BadFlag(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := SetupFlagSet(fs)

	exit, err := f.Pre([]string{"-nope"}, io.Discard)
	require.Error(t, err)
	assert.True(t, exit)
}

func TestIsClientCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"no flags", nil, false},
		{"daemon", []string{"-daemon"}, false},
		{"list", []string{"-list"}, true},
		{"search", []string{"-search", "doom"}, true},
		{"rescan", []string{"-rescan"}, true},
		{"api", []string{"-api", "version"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFlags(t, tt.args...)
			assert.Equal(t, tt.want, f.IsClientCommand())
		})
	}
}

func TestPost_NothingToDo(t *testing.T) {
	t.Parallel()

	f := newFlags(t, "-daemon")
	api := mocks.NewMockAPIClient()

	handled, err := f.Post(context.Background(), api, io.Discard)
	require.NoError(t, err)
	assert.False(t, handled)
	api.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything)
}

func TestPost_List(t *testing.T) {
	t.Parallel()

	gs := fixtures.SampleGames()
	gs[0].IsRunning = true
	api := mocks.NewMockAPIClient()
	api.SetupGamesResponse(models.NewGamesResponse(gs))

	f := newFlags(t, "-list")
	var out bytes.Buffer
	handled, err := f.Post(context.Background(), api, &out)
	require.NoError(t, err)
	assert.True(t, handled)

	text := out.String()
	assert.Contains(t, text, "SOURCE")
	assert.Contains(t, text, "Dota 2")
	assert.Contains(t, text, "Space Cadet Pinball")
	assert.Contains(t, text, "yes")
}

func TestPost_SearchSendsFilters(t *testing.T) {
	t.Parallel()

	resp, err := ipc.NewMessage(ipc.ResponseType(models.MethodGamesList), models.NewGamesResponse(nil))
	require.NoError(t, err)

	api := mocks.NewMockAPIClient()
	api.On("Call", mock.Anything, models.MethodGamesList, mock.MatchedBy(func(p models.GamesListParams) bool {
		return p.Query == "dota" && p.Source == games.SourceSteam && p.Running != nil && *p.Running
	})).Return(resp, nil)

	f := newFlags(t, "-search", "dota", "-source", "steam", "-running")
	handled, err := f.Post(context.Background(), api, io.Discard)
	require.NoError(t, err)
	assert.True(t, handled)
	api.AssertExpectations(t)
}

func TestPost_Rescan(t *testing.T) {
	t.Parallel()

	api := mocks.NewMockAPIClient()
	api.SetupRescanResponse(models.NewGamesResponse(fixtures.SampleGames()))

	f := newFlags(t, "-rescan")
	var out bytes.Buffer
	handled, err := f.Post(context.Background(), api, &out)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "Found 3 games (0 running)\n", out.String())
}

func TestPost_RescanError(t *testing.T) {
	t.Parallel()

	api := mocks.NewMockAPIClient()
	api.SetupCallError(models.MethodGamesRescan, errors.New("rescan cooldown"))

	f := newFlags(t, "-rescan")
	handled, err := f.Post(context.Background(), api, io.Discard)
	require.Error(t, err)
	assert.True(t, handled)
	assert.Contains(t, err.Error(), "rescan cooldown")
}

func TestPost_API(t *testing.T) {
	t.Parallel()

	resp, err := ipc.NewMessage(ipc.ResponseType(models.MethodVersion), models.VersionResponse{
		Version:  "1.0.0",
		Platform: "linux",
	})
	require.NoError(t, err)

	api := mocks.NewMockAPIClient()
	api.On("Call", mock.Anything, "games:list", json.RawMessage(`{"source":"epic"}`)).
		Return(resp, nil)

	f := newFlags(t, "-api", `games:list:{"source":"epic"}`)
	var out bytes.Buffer
	handled, err := f.Post(context.Background(), api, &out)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.JSONEq(t, `{"version":"1.0.0","platform":"linux"}`, out.String())
}

func TestPost_APIErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		value   string
	}{
		{name: "empty", value: "", wantErr: ErrFlagValue},
		{name: "bad payload", value: "games:list:{oops", wantErr: ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api := mocks.NewMockAPIClient()
			f := newFlags(t, "-api", tt.value)
			handled, err := f.Post(context.Background(), api, io.Discard)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, handled)
			api.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPost_Wait(t *testing.T) {
	t.Parallel()

	api := mocks.NewMockAPIClient()
	api.On("WaitNotification", mock.Anything, mock.Anything, models.NotificationGameStarted).
		Return(ipc.Message{Type: models.NotificationGameStarted, Payload: json.RawMessage(`{"id":"570"}`)}, nil)

	f := newFlags(t, "-wait", models.NotificationGameStarted)
	var out bytes.Buffer
	handled, err := f.Post(context.Background(), api, &out)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "{\"id\":\"570\"}\n", out.String())
}
