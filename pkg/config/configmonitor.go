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

package config

import (
	"slices"
	"time"
)

const DefaultPollInterval = 15 * time.Second

const (
	ProviderAuto     = "auto"
	ProviderGopsutil = "gopsutil"
	ProviderProcFS   = "procfs"
)

type Monitor struct {
	PollInterval       string   `toml:"poll_interval,omitempty"`
	Provider           string   `toml:"provider,omitempty"`
	ExcludeExecutables []string `toml:"exclude_executables,omitempty,multiline"`
}

func (c *Instance) PollInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration("monitor.poll_interval", c.vals.Monitor.PollInterval, DefaultPollInterval)
}

func (c *Instance) SetPollInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Monitor.PollInterval = d.String()
}

// ProcessProvider returns the configured snapshot provider, "auto" when unset.
func (c *Instance) ProcessProvider() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Monitor.Provider == "" {
		return ProviderAuto
	}
	return c.vals.Monitor.Provider
}

// ExcludeExecutables returns extra helper binaries never treated as games.
func (c *Instance) ExcludeExecutables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.vals.Monitor.ExcludeExecutables)
}
