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

package helpers

import (
	"context"
	"errors"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/procsnap"
)

// ErrScripted is the default error returned by FakeProvider.FailNext.
var ErrScripted = errors.New("scripted provider failure")

// FakeProvider is a procsnap.Provider whose process table is set by the
// test. Extended requests return the same table with Extended set.
type FakeProvider struct {
	procs         []procsnap.Process
	failures      []error
	basicCalls    int
	extendedCalls int
	mu            syncutil.Mutex
}

// NewFakeProvider creates a provider returning procs.
func NewFakeProvider(procs ...procsnap.Process) *FakeProvider {
	return &FakeProvider{procs: procs}
}

// SetProcesses replaces the process table.
func (f *FakeProvider) SetProcesses(procs ...procsnap.Process) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.procs = procs
}

// FailNext makes the next call return err, or ErrScripted if err is nil.
func (f *FakeProvider) FailNext(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		err = ErrScripted
	}
	f.failures = append(f.failures, err)
}

// Calls returns how many basic and extended snapshots were requested.
func (f *FakeProvider) Calls() (basic, extended int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.basicCalls, f.extendedCalls
}

// ListProcesses implements procsnap.Provider.
func (f *FakeProvider) ListProcesses(ctx context.Context, extended bool) ([]procsnap.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if extended {
		f.extendedCalls++
	} else {
		f.basicCalls++
	}

	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // test helper
	}

	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}

	out := make([]procsnap.Process, len(f.procs))
	copy(out, f.procs)
	for i := range out {
		out[i].Extended = extended
	}
	return out, nil
}

// UserProcess builds a process in a user session.
func UserProcess(pid int32, name, exe string) procsnap.Process {
	return procsnap.Process{PID: pid, Name: name, ExecutablePath: exe, SessionID: 1}
}
