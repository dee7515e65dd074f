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
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ZaparooProject/zaparoo-desktop/internal/telemetry"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/client"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/config"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers"
	"github.com/rs/zerolog/log"
)

var (
	// ErrFlagValue is returned when a flag that needs a value was given none.
	ErrFlagValue      = errors.New("flag requires a value")
	ErrInvalidPayload = errors.New("invalid JSON payload")
)

type Flags struct {
	fs      *flag.FlagSet
	List    *bool
	Running *bool
	Search  *string
	Source  *string
	Rescan  *bool
	Wait    *string
	API     *string
	Version *bool
	Daemon  *bool
	Tray    *bool
}

// SetupFlags defines all CLI flags on the default flag set.
func SetupFlags() *Flags {
	return SetupFlagSet(flag.CommandLine)
}

// SetupFlagSet defines all CLI flags on fs.
func SetupFlagSet(fs *flag.FlagSet) *Flags {
	return &Flags{
		fs: fs,
		List: fs.Bool(
			"list",
			false,
			"print detected games and exit",
		),
		Running: fs.Bool(
			"running",
			false,
			"only list games that are currently running",
		),
		Search: fs.String(
			"search",
			"",
			"print games matching a fuzzy name query and exit",
		),
		Source: fs.String(
			"source",
			"",
			"only list games from this launcher (steam, epic, gog, heroic, lutris, custom)",
		),
		Rescan: fs.Bool(
			"rescan",
			false,
			"rescan launcher libraries and exit",
		),
		Wait: fs.String(
			"wait",
			"",
			"print the next notification of this type and exit",
		),
		API: fs.String(
			"api",
			"",
			"send type and payload to API and print response",
		),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
		Daemon: fs.Bool(
			"daemon",
			false,
			"run service in foreground with no tray icon",
		),
		Tray: fs.Bool(
			"tray",
			true,
			"show a system tray icon while the service runs",
		),
	}
}

func (f *Flags) isFlagPassed(name string) bool {
	found := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// Pre parses args and actions any flags that don't need config or logging.
// Returns true if the program should exit.
func (f *Flags) Pre(args []string, out io.Writer) (bool, error) {
	if err := f.fs.Parse(args); err != nil {
		return true, fmt.Errorf("failed to parse flags: %w", err)
	}

	if *f.Version {
		_, _ = fmt.Fprintf(out, "%s v%s\n", helpers.AppName, config.AppVersion)
		return true, nil
	}

	return false, nil
}

// IsClientCommand reports whether a flag was passed that talks to a
// running service instead of starting one.
func (f *Flags) IsClientCommand() bool {
	for _, name := range []string{"list", "search", "rescan", "wait", "api"} {
		if f.isFlagPassed(name) {
			return true
		}
	}
	return false
}

// Post actions all client flags against a running service. Returns true if
// a flag was handled and the program should exit.
func (f *Flags) Post(ctx context.Context, api client.APIClient, out io.Writer) (bool, error) {
	switch {
	case f.isFlagPassed("api"):
		if *f.API == "" {
			return true, fmt.Errorf("api: %w", ErrFlagValue)
		}
		return true, callRaw(ctx, api, out, *f.API)
	case f.isFlagPassed("wait"):
		if *f.Wait == "" {
			return true, fmt.Errorf("wait: %w", ErrFlagValue)
		}
		msg, err := api.WaitNotification(ctx, 0, *f.Wait)
		if err != nil {
			log.Error().Err(err).Msg("error waiting for notification")
			return true, fmt.Errorf("error waiting for notification: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(msg.Payload))
		return true, nil
	case *f.Rescan:
		resp, err := api.Call(ctx, models.MethodGamesRescan, nil)
		if err != nil {
			log.Error().Err(err).Msg("error rescanning games")
			return true, fmt.Errorf("error rescanning: %w", err)
		}
		var found models.GamesResponse
		if err := resp.Decode(&found); err != nil {
			return true, fmt.Errorf("failed to decode rescan response: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Found %d games (%d running)\n", len(found.Games), found.Running)
		return true, nil
	case *f.List || f.isFlagPassed("search"):
		return true, f.listGames(ctx, api, out)
	}
	return false, nil
}

func callRaw(ctx context.Context, api client.APIClient, out io.Writer, value string) error {
	msgType, payload, _ := strings.Cut(value, ":")

	var params any
	if payload != "" {
		if !json.Valid([]byte(payload)) {
			return fmt.Errorf("%w: %s", ErrInvalidPayload, payload)
		}
		params = json.RawMessage(payload)
	}

	resp, err := api.Call(ctx, msgType, params)
	if err != nil {
		log.Error().Err(err).Msg("error calling API")
		return fmt.Errorf("error calling API: %w", err)
	}
	_, _ = fmt.Fprintln(out, string(resp.Payload))
	return nil
}

func (f *Flags) listGames(ctx context.Context, api client.APIClient, out io.Writer) error {
	params := models.GamesListParams{
		Source: games.Source(*f.Source),
		Query:  *f.Search,
	}
	if *f.Running {
		running := true
		params.Running = &running
	}

	resp, err := api.Call(ctx, models.MethodGamesList, params)
	if err != nil {
		log.Error().Err(err).Msg("error listing games")
		return fmt.Errorf("error listing games: %w", err)
	}

	var list models.GamesResponse
	if err := resp.Decode(&list); err != nil {
		return fmt.Errorf("failed to decode games response: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SOURCE\tID\tNAME\tRUNNING")
	for i := range list.Games {
		g := &list.Games[i]
		running := ""
		if g.IsRunning {
			running = "yes"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", g.Source, g.ID, g.Name, running)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write games: %w", err)
	}
	return nil
}

// Setup initializes logging and the user config, then error reporting if
// the user opted in.
//
//nolint:gocritic // config struct copied for immutability
func Setup(defaultConfig config.Values, writers []io.Writer) (*config.Instance, error) {
	err := helpers.InitLogging(helpers.LogDir(), writers)
	if err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(helpers.ConfigDir(), defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	helpers.SetDebugLogging(cfg.DebugLogging())

	if err := telemetry.Init(telemetry.Options{
		Enabled:    cfg.ErrorReporting(),
		DSN:        cfg.SentryDSN(),
		AppVersion: config.AppVersion,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, nil
}
