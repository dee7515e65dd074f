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

// Package library is the game service: it collects installed games from
// every catalog scanner, hands them to the monitor and republishes the
// monitor's edges as game state events.
package library

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games/monitor"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers/dispatch"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Scanner enumerates the games installed by one platform.
type Scanner interface {
	ID() string
	IsAvailable() bool
	DetectGames(ctx context.Context) ([]games.Descriptor, error)
}

// Watchable is implemented by scanners whose library folders change when
// games are installed or removed.
type Watchable interface {
	WatchPaths() []string
}

// Service owns the game catalog and the monitor's lifecycle. The monitor
// holds the catalog itself.
type Service struct {
	monitor      *monitor.Monitor
	detected     *dispatch.Registry[[]games.Descriptor]
	stateChanged *dispatch.Registry[games.StateEvent]
	scanners     []Scanner
	handlerIDs   [2]dispatch.HandlerID
	scanMu       syncutil.Mutex
}

// New creates a service and subscribes to the monitor's events.
func New(mon *monitor.Monitor, scanners ...Scanner) *Service {
	s := &Service{
		monitor:      mon,
		scanners:     scanners,
		detected:     dispatch.NewRegistry[[]games.Descriptor]("games_detected"),
		stateChanged: dispatch.NewRegistry[games.StateEvent]("game_state_changed"),
	}
	ev := mon.Events()
	s.handlerIDs[0] = ev.Started.Subscribe(func(e monitor.Event) {
		s.onEdge(&e, games.StateStarted)
	})
	s.handlerIDs[1] = ev.Stopped.Subscribe(func(e monitor.Event) {
		s.onEdge(&e, games.StateStopped)
	})
	return s
}

// GamesDetected is emitted with the merged list after every scan.
func (s *Service) GamesDetected() *dispatch.Registry[[]games.Descriptor] {
	return s.detected
}

// GameStateChanged is emitted once per started or stopped edge.
func (s *Service) GameStateChanged() *dispatch.Registry[games.StateEvent] {
	return s.stateChanged
}

// Scanners returns the configured scanners.
func (s *Service) Scanners() []Scanner {
	return s.scanners
}

// Games returns copies of the catalog with each game's current running state.
func (s *Service) Games() []games.Descriptor {
	return s.monitor.Games()
}

// IsMonitoring reports whether the monitoring loop is running.
func (s *Service) IsMonitoring() bool {
	return s.monitor.IsMonitoring()
}

// ScanAllGames queries every available scanner concurrently, merges the
// results, starts monitoring them and replaces the catalog. A failing scanner
// contributes no games. Concurrent calls run one after another. If ctx is
// cancelled the current catalog and monitoring are left untouched.
func (s *Service) ScanAllGames(ctx context.Context) ([]games.Descriptor, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	return s.scanLocked(ctx)
}

// RescanGames stops monitoring before scanning again, so no events for the
// previous catalog fire once it begins. The previous catalog stays visible
// until the new one replaces it. If the scan is cancelled, monitoring
// resumes on the previous catalog.
func (s *Service) RescanGames(ctx context.Context) ([]games.Descriptor, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	log.Info().Msg("rescanning game libraries")
	wasMonitoring := s.monitor.IsMonitoring()
	s.monitor.StopMonitoring()

	found, err := s.scanLocked(ctx)
	if err != nil && wasMonitoring {
		log.Warn().Err(err).Msg("rescan failed, resuming monitoring of previous catalog")
		s.monitor.ResumeMonitoring()
	}
	return found, err
}

// Close stops monitoring and detaches from the monitor's events.
func (s *Service) Close() {
	s.monitor.StopMonitoring()
	ev := s.monitor.Events()
	ev.Started.Unsubscribe(s.handlerIDs[0])
	ev.Stopped.Unsubscribe(s.handlerIDs[1])
}

func (s *Service) scanLocked(ctx context.Context) ([]games.Descriptor, error) {
	start := time.Now()
	results := s.detectAll(ctx)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("game scan cancelled: %w", err)
	}
	merged := merge(results)

	// the scan finished, a late cancel must not lose the initial snapshot
	seeded := s.monitor.StartMonitoring(context.WithoutCancel(ctx), merged)

	log.Info().
		Int("games", len(seeded)).
		Dur("took", time.Since(start)).
		Msg("game scan complete")

	s.detected.Emit(games.CloneAll(seeded))
	return games.CloneAll(seeded), nil
}

// detectAll runs every available scanner in parallel. Results are indexed
// by scanner so merge order is stable regardless of completion order.
func (s *Service) detectAll(ctx context.Context) [][]games.Descriptor {
	results := make([][]games.Descriptor, len(s.scanners))

	var g errgroup.Group
	for i, sc := range s.scanners {
		g.Go(func() error {
			results[i] = runScanner(ctx, sc)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func runScanner(ctx context.Context, sc Scanner) (found []games.Descriptor) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("scanner", sc.ID()).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic in game scanner")
			found = nil
		}
	}()

	if !sc.IsAvailable() {
		log.Debug().Str("scanner", sc.ID()).Msg("scanner not available, skipping")
		return nil
	}

	start := time.Now()
	found, err := sc.DetectGames(ctx)
	if err != nil {
		log.Warn().Err(err).Str("scanner", sc.ID()).Msg("game scanner failed")
		return nil
	}
	log.Debug().
		Str("scanner", sc.ID()).
		Int("games", len(found)).
		Dur("took", time.Since(start)).
		Msg("scanner finished")
	return found
}

// merge flattens scanner results, dropping duplicates by key (first wins)
// and descriptors that could never match a process.
func merge(results [][]games.Descriptor) []games.Descriptor {
	seen := make(map[string]struct{})
	var out []games.Descriptor
	for _, found := range results {
		for i := range found {
			d := found[i].Clone()
			d.IsRunning = false
			if err := d.Validate(); err != nil {
				log.Warn().Err(err).Msg("skipping invalid game descriptor")
				continue
			}
			key := d.Key()
			if _, dup := seen[key]; dup {
				log.Debug().Str("game", key).Msg("skipping duplicate game")
				continue
			}
			seen[key] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

func (s *Service) onEdge(e *monitor.Event, state games.State) {
	s.stateChanged.Emit(games.StateEvent{
		Timestamp: e.At,
		GameID:    e.Game.ID,
		Source:    e.Game.Source,
		Name:      e.Game.Name,
		State:     state,
		PID:       e.Process.PID,
	})
}

// WatchLibraries watches the library folders of every available scanner and
// rescans after they change. The returned watcher must be closed by the
// caller.
func (s *Service) WatchLibraries(ctx context.Context, opts ...WatcherOption) (*Watcher, error) {
	var paths []string
	for _, sc := range s.scanners {
		w, ok := sc.(Watchable)
		if !ok || !sc.IsAvailable() {
			continue
		}
		paths = append(paths, w.WatchPaths()...)
	}

	return NewWatcher(paths, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.RescanGames(ctx); err != nil {
			log.Warn().Err(err).Msg("library change rescan failed")
		}
	}, opts...)
}
