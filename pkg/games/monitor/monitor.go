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

// Package monitor polls the process table on a timer and turns match
// results into edge-triggered started and stopped events.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games/matcher"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers/dispatch"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/procsnap"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultPollInterval bounds enumeration cost while keeping launch and quit
// detection within a few seconds.
const DefaultPollInterval = 15 * time.Second

// ErrNoProvider is returned when the monitor was built without a process
// provider.
var ErrNoProvider = errors.New("no process provider")

// Event is raised once per running-state edge. Game is a copy with
// IsRunning already updated.
type Event struct {
	At      time.Time
	Process procsnap.Process
	Game    games.Descriptor
	Rule    matcher.Rule
}

// Events are the registries the monitor emits on. They are normally owned
// by the game service.
type Events struct {
	Started *dispatch.Registry[Event]
	Stopped *dispatch.Registry[Event]
}

// NewEvents creates an empty pair of registries.
func NewEvents() Events {
	return Events{
		Started: dispatch.NewRegistry[Event]("game_started"),
		Stopped: dispatch.NewRegistry[Event]("game_stopped"),
	}
}

// Monitor owns the polling timer and the set of games believed running.
type Monitor struct {
	provider procsnap.Provider
	clock    clockwork.Clock
	engine   *matcher.Engine
	events   Events
	// published copies for readers outside the poll goroutine
	published *syncutil.Guarded[[]games.Descriptor]
	done      chan struct{}
	cancel    context.CancelFunc
	// tracked, running and seeded are only touched with tickMu held
	running    map[string]procsnap.Process
	tracked    []games.Descriptor
	interval   time.Duration
	tickMu     syncutil.Mutex
	mu         syncutil.Mutex
	deepSearch bool
	// seeded is false until one snapshot has set the initial running state
	seeded bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithPollInterval sets the polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithClock sets the clock used for the ticker and event timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(m *Monitor) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithEngine sets the match engine.
func WithEngine(e *matcher.Engine) Option {
	return func(m *Monitor) {
		if e != nil {
			m.engine = e
		}
	}
}

// WithEvents makes the monitor emit on registries owned by the caller.
func WithEvents(ev Events) Option {
	return func(m *Monitor) {
		if ev.Started != nil && ev.Stopped != nil {
			m.events = ev
		}
	}
}

// New creates a stopped monitor.
func New(provider procsnap.Provider, opts ...Option) *Monitor {
	m := &Monitor{
		provider:  provider,
		clock:     clockwork.NewRealClock(),
		engine:    matcher.New(),
		events:    NewEvents(),
		interval:  DefaultPollInterval,
		running:   make(map[string]procsnap.Process),
		published: syncutil.NewGuarded[[]games.Descriptor](nil),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Events returns the registries started and stopped events are emitted on.
func (m *Monitor) Events() Events {
	return m.events
}

// StartMonitoring replaces the monitored set and arms the timer. Initial
// running state is computed synchronously from one snapshot and no events
// are raised for it. Returns copies of the games with IsRunning seeded.
func (m *Monitor) StartMonitoring(ctx context.Context, gs []games.Descriptor) []games.Descriptor {
	m.StopMonitoring()

	m.tickMu.Lock()
	m.tracked = games.CloneAll(gs)
	clear(m.running)
	m.deepSearch = false
	for i := range m.tracked {
		m.tracked[i].IsRunning = false
		if m.tracked[i].NeedsDeepSearch() {
			m.deepSearch = true
		}
	}
	m.seeded = false
	snap, err := m.snapshot(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("initial process snapshot failed, seeding on first successful poll")
	} else {
		m.seed(snap)
	}
	seeded := games.CloneAll(m.tracked)
	m.published.Set(games.CloneAll(m.tracked))
	deep := m.deepSearch
	m.tickMu.Unlock()

	m.arm()

	log.Info().
		Int("games", len(seeded)).
		Int("running", countRunning(seeded)).
		Bool("deepSearch", deep).
		Dur("interval", m.interval).
		Msg("game monitoring started")

	return seeded
}

// ResumeMonitoring re-arms the timer on the current set without taking a new
// initial snapshot, so edges that happened while stopped are reported on the
// next poll. Does nothing if the timer is already armed.
func (m *Monitor) ResumeMonitoring() {
	if m.IsMonitoring() {
		return
	}
	m.arm()
	log.Debug().Msg("game monitoring resumed")
}

func (m *Monitor) arm() {
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ticker := m.clock.NewTicker(m.interval)

	m.mu.Lock()
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	go m.loop(loopCtx, ticker, done)
}

// seed sets the running state from snap without raising events. Caller
// must hold tickMu.
func (m *Monitor) seed(snap *matcher.Snapshot) {
	for i := range m.tracked {
		g := &m.tracked[i]
		if res := m.engine.Match(g, snap); res.Running {
			g.IsRunning = true
			m.running[g.Key()] = res.Process
		}
	}
	m.seeded = true
}

// StopMonitoring disarms the timer and waits for an in-flight poll to
// finish. Safe to call more than once. Must not be called from an event
// handler.
func (m *Monitor) StopMonitoring() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Debug().Msg("game monitoring stopped")
}

// IsMonitoring reports whether the timer is armed.
func (m *Monitor) IsMonitoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// Games returns copies of the monitored games with their last known state.
// The state is updated before the matching event is emitted, so handlers
// may call it.
func (m *Monitor) Games() []games.Descriptor {
	return games.CloneAll(m.published.Get())
}

func (m *Monitor) loop(ctx context.Context, ticker clockwork.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.tick(ctx)
		}
	}
}

// tick takes one snapshot and emits events for every edge. A failed or
// panicking tick is logged and the next one runs normally.
func (m *Monitor) tick(ctx context.Context) {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic in game monitor tick")
		}
	}()

	snap, err := m.snapshot(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Msg("process snapshot failed, skipping poll")
		}
		return
	}

	if !m.seeded {
		m.seed(snap)
		m.published.Set(games.CloneAll(m.tracked))
		log.Info().Int("running", countRunning(m.tracked)).Msg("game running state seeded")
		return
	}

	now := m.clock.Now()
	for i := range m.tracked {
		if ctx.Err() != nil {
			return
		}

		g := &m.tracked[i]
		key := g.Key()
		res := m.engine.Match(g, snap)
		last, was := m.running[key]

		switch {
		case res.Running && !was:
			proc, ok := m.engine.FindRunningProcess(g, snap.Basic)
			if !ok {
				proc = res.Process
			}
			m.running[key] = proc
			g.IsRunning = true
			m.published.Set(games.CloneAll(m.tracked))
			log.Info().
				Str("game", key).
				Str("name", g.Name).
				Int32("pid", proc.PID).
				Stringer("rule", res.Rule).
				Msg("game started")
			m.events.Started.Emit(Event{Game: g.Clone(), Process: proc, Rule: res.Rule, At: now})
		case !res.Running && was:
			delete(m.running, key)
			g.IsRunning = false
			m.published.Set(games.CloneAll(m.tracked))
			log.Info().Str("game", key).Str("name", g.Name).Msg("game stopped")
			m.events.Stopped.Emit(Event{Game: g.Clone(), Process: last, At: now})
		}
	}
}

func (m *Monitor) snapshot(ctx context.Context) (*matcher.Snapshot, error) {
	if m.provider == nil {
		return nil, ErrNoProvider
	}

	basic, err := m.provider.ListProcesses(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("basic snapshot: %w", err)
	}

	var extended []procsnap.Process
	if m.deepSearch {
		extended, err = m.provider.ListProcesses(ctx, true)
		if err != nil {
			return nil, fmt.Errorf("extended snapshot: %w", err)
		}
	}

	return matcher.NewSnapshot(basic, extended), nil
}

func countRunning(gs []games.Descriptor) int {
	n := 0
	for i := range gs {
		if gs[i].IsRunning {
			n++
		}
	}
	return n
}
