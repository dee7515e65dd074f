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

package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/api"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/notifications"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/config"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games/matcher"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games/monitor"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games/scanners/custom"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games/scanners/epic"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games/scanners/heroic"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games/scanners/lutris"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games/scanners/steam"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/procsnap"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/service/broker"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/service/discovery"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/service/library"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/service/publishers"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	notificationQueueSize = 100
	subscriberBufferSize  = 100
	shutdownTimeout       = 5 * time.Second
)

type options struct {
	provider procsnap.Provider
	clock    clockwork.Clock
	scanners []library.Scanner
	custom   bool
}

// Option overrides a dependency the service would otherwise build from
// config.
type Option func(*options)

// WithProcessProvider replaces the configured process provider.
func WithProcessProvider(p procsnap.Provider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithScanners replaces the configured catalog scanners.
func WithScanners(scanners ...library.Scanner) Option {
	return func(o *options) {
		o.scanners = scanners
		o.custom = true
	}
}

// WithClock sets the clock used by the monitor and the API server.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// buildScanners returns a scanner for every launcher enabled in cfg. The
// custom scanner is always present so config edits apply on rescan.
func buildScanners(cfg *config.Instance) []library.Scanner {
	var scanners []library.Scanner
	if cfg.SteamEnabled() {
		scanners = append(scanners, steam.New(nil, cfg.SteamPath()))
	}
	if cfg.EpicEnabled() {
		scanners = append(scanners, epic.New(nil, cfg.EpicManifestsPath()))
	}
	if cfg.HeroicEnabled() {
		scanners = append(scanners, heroic.New(nil, cfg.HeroicConfigPath()))
	}
	if cfg.LutrisEnabled() {
		scanners = append(scanners, lutris.New(nil, cfg.LutrisDataPath()))
	}
	return append(scanners, custom.New(cfg.CustomGames))
}

// startPublishers starts every enabled MQTT publisher, each with its own
// broker subscription limited to the methods it publishes.
func startPublishers(cfg *config.Instance, notifBroker *broker.Broker) []*publishers.MQTTPublisher {
	active := make([]*publishers.MQTTPublisher, 0)

	for _, mqttCfg := range cfg.GetMQTTPublishers() {
		// nil means enabled
		if mqttCfg.Enabled != nil && !*mqttCfg.Enabled {
			continue
		}

		log.Info().Msgf("starting MQTT publisher: %s (topic: %s)", mqttCfg.Broker, mqttCfg.Topic)

		publisher := publishers.NewMQTTPublisher(mqttCfg.Broker, mqttCfg.Topic, mqttCfg.Filter)
		ch, id := notifBroker.Subscribe(subscriberBufferSize, publisher.Methods()...)
		if err := publisher.Start(ch); err != nil {
			log.Error().Err(err).Msgf("failed to start MQTT publisher for %s", mqttCfg.Broker)
			notifBroker.Unsubscribe(id)
			continue
		}

		active = append(active, publisher)
	}

	if len(active) > 0 {
		log.Info().Msgf("started %d MQTT publisher(s)", len(active))
	}
	return active
}

// Start builds and starts the monitor, game service, notification broker,
// API server and optional publishers, then scans all libraries in the
// background. The returned stop function tears everything down in reverse
// order and waits for it to finish.
func Start(cfg *config.Instance, opts ...Option) (stop func() error, err error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.provider == nil {
		o.provider, err = procsnap.New(cfg.ProcessProvider())
		if err != nil {
			return nil, fmt.Errorf("process provider: %w", err)
		}
	}
	if !o.custom {
		o.scanners = buildScanners(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())

	engine := matcher.New(matcher.WithExclusions(cfg.ExcludeExecutables()...))
	mon := monitor.New(
		o.provider,
		monitor.WithPollInterval(cfg.PollInterval()),
		monitor.WithEngine(engine),
		monitor.WithClock(o.clock),
	)
	lib := library.New(mon, o.scanners...)

	ns := make(chan models.Notification, notificationQueueSize)
	notifBroker := broker.NewBroker(ctx, ns)
	notifBroker.Start()

	detectedID := lib.GamesDetected().Subscribe(func(gs []games.Descriptor) {
		notifications.GamesDetected(ns, gs)
	})
	stateID := lib.GameStateChanged().Subscribe(func(ev games.StateEvent) {
		notifications.GameStateChanged(ns, ev)
	})

	log.Info().Msg("starting API service")
	srv := api.NewServer(cfg, lib, api.WithClock(o.clock))
	if err := srv.Start(ctx); err != nil {
		lib.Close()
		cancel()
		<-notifBroker.Done()
		return nil, fmt.Errorf("start api server: %w", err)
	}
	if cfg.APIPort() == 0 {
		if tcp, ok := srv.Addr().(*net.TCPAddr); ok {
			cfg.SetAPIPort(tcp.Port)
		}
	}
	apiNotifications, _ := notifBroker.Subscribe(subscriberBufferSize)
	go srv.Forward(ctx, apiNotifications)

	log.Info().Msg("starting publishers")
	activePublishers := startPublishers(cfg, notifBroker)

	log.Info().Msg("starting mDNS discovery service")
	discoveryService := discovery.New(cfg)
	if discoveryErr := discoveryService.Start(); discoveryErr != nil {
		log.Error().Err(discoveryErr).Msg("mDNS discovery failed to start (continuing without discovery)")
	}

	var watcher *library.Watcher
	if cfg.WatchLibraries() {
		watcher, err = lib.WatchLibraries(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("library watcher unavailable, changes need a manual rescan")
		}
	}

	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		found, scanErr := lib.ScanAllGames(ctx)
		if scanErr != nil {
			log.Error().Err(scanErr).Msg("initial game scan failed")
			return
		}
		log.Info().Int("games", len(found)).Msg("initial game scan finished")
	}()

	stop = func() error {
		log.Info().Msg("stopping service")

		discoveryService.Stop()
		var errs []error
		if watcher != nil {
			if err := watcher.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close library watcher: %w", err))
			}
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop api server: %w", err))
		}

		cancel()
		<-scanDone
		lib.Close()
		lib.GamesDetected().Unsubscribe(detectedID)
		lib.GameStateChanged().Unsubscribe(stateID)

		for _, publisher := range activePublishers {
			publisher.Stop()
		}
		<-notifBroker.Done()

		log.Info().Msg("service cleanup completed")
		return errors.Join(errs...)
	}
	return stop, nil
}
