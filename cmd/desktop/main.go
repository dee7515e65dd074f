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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaparooProject/zaparoo-desktop/internal/telemetry"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/client"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/assets"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/cli"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/config"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/service"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/ui/systray"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var errAlreadyRunning = errors.New("service is already running")

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags()

	exit, err := flags.Pre(os.Args[1:], os.Stdout)
	if err != nil || exit {
		return err
	}

	var logWriters []io.Writer
	if *flags.Daemon {
		logWriters = []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}
	}

	cfg, err := cli.Setup(config.BaseDefaults, logWriters)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped by Setup
	}
	defer telemetry.Close()
	defer telemetry.Recover()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if flags.IsClientCommand() {
		_, err := flags.Post(ctx, client.NewLocalAPIClient(cfg), os.Stdout)
		return err //nolint:wrapcheck // printed as is
	}

	if client.IsServiceRunning(cfg) {
		return errAlreadyRunning
	}

	stopSvc, err := service.Start(cfg)
	if err != nil {
		log.Error().Err(err).Msg("error starting service")
		return fmt.Errorf("error starting service: %w", err)
	}
	defer func() {
		if err := stopSvc(); err != nil {
			log.Error().Err(err).Msg("error stopping service")
		}
	}()

	if *flags.Daemon || !*flags.Tray {
		log.Info().Msg("started in daemon mode")
		<-ctx.Done()
		return nil
	}

	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(ctx, cfg, assets.TrayIcon(), cancel)

	return nil
}
