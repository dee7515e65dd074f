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

// Package games holds the models shared by the catalog scanners, the match
// engine, the monitoring loop and the game service.
package games

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/validation"
)

// Source identifies the platform namespace a descriptor came from.
type Source string

const (
	SourceSteam  Source = "steam"
	SourceEpic   Source = "epic"
	SourceGOG    Source = "gog"
	SourceHeroic Source = "heroic"
	SourceLutris Source = "lutris"
	SourceCustom Source = "custom"
)

// State is the lifecycle state published for a game.
type State string

const (
	StateStarted State = "started"
	StateStopped State = "stopped"
)

// ErrInvalidDescriptor is returned when a descriptor can never match a process.
var ErrInvalidDescriptor = errors.New("invalid game descriptor")

// Descriptor is an installed game and the signals used to detect it running.
// IsRunning is owned by the monitoring loop; everyone else receives copies.
type Descriptor struct {
	ID                 string   `json:"id" validate:"required"`
	Name               string   `json:"name"`
	Source             Source   `json:"source" validate:"required,oneof=steam epic gog heroic lutris custom"`
	InstallPath        string   `json:"installPath,omitempty" validate:"abspath,required_without_all=ExecutablePath ProcessNames DeepSearchPatterns"` //nolint:lll // tag
	ExecutablePath     string   `json:"executablePath,omitempty" validate:"abspath"`
	ProcessNames       []string `json:"processNames,omitempty" validate:"dive,procname"`
	DeepSearchPatterns []string `json:"deepSearchPatterns,omitempty" validate:"dive,required"`
	IsRunning          bool     `json:"isRunning"`
}

// Key is unique across all sources.
func (d *Descriptor) Key() string {
	return string(d.Source) + ":" + d.ID
}

// NeedsDeepSearch reports whether matching this game requires extended
// process metadata.
func (d *Descriptor) NeedsDeepSearch() bool {
	return len(d.DeepSearchPatterns) > 0
}

// Clone returns a deep copy so callers can't mutate shared slices.
func (d *Descriptor) Clone() Descriptor {
	c := *d
	c.ProcessNames = slices.Clone(d.ProcessNames)
	c.DeepSearchPatterns = slices.Clone(d.DeepSearchPatterns)
	return c
}

// Validate checks a descriptor has at least one usable matching signal and
// that any paths are absolute.
func (d *Descriptor) Validate() error {
	if err := validation.DefaultValidator.Validate(d); err != nil {
		return fmt.Errorf("%w %s: %w", ErrInvalidDescriptor, d.Key(), err)
	}
	return nil
}

// CloneAll deep copies a descriptor list.
func CloneAll(gs []Descriptor) []Descriptor {
	out := make([]Descriptor, len(gs))
	for i := range gs {
		out[i] = gs[i].Clone()
	}
	return out
}

// StateEvent is published by the game service on every running-state edge.
type StateEvent struct {
	Timestamp time.Time `json:"timestamp"`
	GameID    string    `json:"gameId"`
	Source    Source    `json:"platformSource"`
	Name      string    `json:"name"`
	State     State     `json:"state"`
	PID       int32     `json:"pid,omitempty"`
}
