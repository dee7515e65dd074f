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

// Package procsnap lists the processes running in user sessions. Snapshots
// come in two fidelities: basic (pid, name, path) and extended, which adds
// the window title, version resource strings and command line.
package procsnap

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// ErrUnsupported is returned when a provider is not available on this OS.
var ErrUnsupported = errors.New("process provider not supported on this platform")

// Process is one observed OS process at one polling instant. A pid is not a
// durable identity and entries are never reused between snapshots.
type Process struct {
	Name            string `json:"name"`
	ExecutablePath  string `json:"executablePath,omitempty"`
	WindowTitle     string `json:"windowTitle,omitempty"`
	FileDescription string `json:"fileDescription,omitempty"`
	ProductName     string `json:"productName,omitempty"`
	CompanyName     string `json:"companyName,omitempty"`
	CommandLine     string `json:"commandLine,omitempty"`
	PID             int32  `json:"pid"`
	SessionID       int32  `json:"sessionId"`
	// System is set for processes in session 0 or owned by the kernel.
	System bool `json:"system,omitempty"`
	// Extended is set when the metadata fields above were collected.
	Extended bool `json:"extended,omitempty"`
}

// Provider lists running processes.
type Provider interface {
	ListProcesses(ctx context.Context, extended bool) ([]Process, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, extended bool) ([]Process, error)

// ListProcesses implements Provider.
func (f ProviderFunc) ListProcesses(ctx context.Context, extended bool) ([]Process, error) {
	return f(ctx, extended)
}

// Provider kinds accepted by New.
const (
	KindAuto     = "auto"
	KindGopsutil = "gopsutil"
	KindProcFS   = "procfs"
)

// New returns the provider for the given kind. An empty kind is treated as
// KindAuto, which prefers procfs on Linux and gopsutil everywhere else.
func New(kind string) (Provider, error) {
	switch kind {
	case "", KindAuto:
		if runtime.GOOS == "linux" {
			return NewProcFS(), nil
		}
		return NewGopsutil(), nil
	case KindGopsutil:
		return NewGopsutil(), nil
	case KindProcFS:
		if runtime.GOOS != "linux" {
			return nil, fmt.Errorf("%s: %w", kind, ErrUnsupported)
		}
		return NewProcFS(), nil
	default:
		return nil, fmt.Errorf("unknown process provider %q", kind)
	}
}

// markSystem sets System from a session id. Unknown sessions (-1) are
// treated as user sessions.
func markSystem(p *Process) {
	p.System = p.SessionID == 0
}
