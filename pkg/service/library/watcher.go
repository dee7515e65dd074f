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

package library

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce groups the burst of writes a launcher makes during one
// install or uninstall into a single rescan.
const DefaultDebounce = 2 * time.Second

// ErrNoWatchPaths is returned when none of the given paths exist.
var ErrNoWatchPaths = errors.New("no library paths to watch")

// Watcher calls onChange once a burst of filesystem changes in the watched
// library folders has settled.
type Watcher struct {
	fsw      *fsnotify.Watcher
	clock    clockwork.Clock
	onChange func()
	stop     chan struct{}
	done     chan struct{}
	debounce time.Duration
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the folders must be quiet before onChange runs.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherClock sets the clock used for the debounce timer.
func WithWatcherClock(c clockwork.Clock) WatcherOption {
	return func(w *Watcher) {
		if c != nil {
			w.clock = c
		}
	}
}

// NewWatcher starts watching every existing path. Missing paths are skipped.
func NewWatcher(paths []string, onChange func(), opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		clock:    clockwork.NewRealClock(),
		onChange: onChange,
		debounce: DefaultDebounce,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	added := 0
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			log.Debug().Str("path", p).Msg("library path not found, not watching")
			continue
		}
		if err := fsw.Add(p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("failed to watch library path")
			continue
		}
		added++
	}
	if added == 0 {
		if closeErr := fsw.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing file watcher")
		}
		return nil, ErrNoWatchPaths
	}

	go w.run()
	log.Info().Int("paths", added).Msg("watching game libraries for changes")
	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit. A pending
// debounced change is dropped.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stop)
		err = w.fsw.Close()
	})
	<-w.done
	if err != nil {
		return fmt.Errorf("failed to close file watcher: %w", err)
	}
	return nil
}

func (w *Watcher) run() {
	defer close(w.done)

	var timer clockwork.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.Debug().Str("path", event.Name).Stringer("op", event.Op).Msg("library change")
			if timer != nil {
				timer.Stop()
			}
			timer = w.clock.NewTimer(w.debounce)
			fire = timer.Chan()
		case watchErr, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Error().Err(watchErr).Msg("error in library watcher")
		case <-fire:
			fire = nil
			timer = nil
			w.onChange()
		}
	}
}
