//go:build deadlock

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

// Package syncutil wraps the sync primitives used across the service so
// builds with the "deadlock" tag can swap in lock-order checking.
package syncutil

import (
	"os"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// DeadlockEnabled reports whether lock-order detection is compiled in.
const DeadlockEnabled = true

// DeadlockTimeoutEnv overrides how long a lock may be held before it is
// reported as a potential deadlock.
const DeadlockTimeoutEnv = "ZAPAROO_DESKTOP_DEADLOCK_TIMEOUT"

func init() {
	deadlock.Opts.DeadlockTimeout = 30 * time.Second
	if v := os.Getenv(DeadlockTimeoutEnv); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			deadlock.Opts.DeadlockTimeout = d
		}
	}
}

// Mutex is a sync.Mutex with deadlock detection.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is a sync.RWMutex with deadlock detection.
type RWMutex struct {
	deadlock.RWMutex
}
