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

package procsnap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// ProcFS lists processes with a single pass over /proc. Only usable on Linux
// outside of tests.
type ProcFS struct {
	procPath string
}

// ProcFSOption configures a ProcFS provider.
type ProcFSOption func(*ProcFS)

// WithProcPath sets a custom /proc path (for testing).
func WithProcPath(path string) ProcFSOption {
	return func(p *ProcFS) {
		p.procPath = path
	}
}

// NewProcFS creates a procfs provider.
func NewProcFS(opts ...ProcFSOption) *ProcFS {
	p := &ProcFS{procPath: "/proc"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ListProcesses implements Provider.
func (p *ProcFS) ListProcesses(ctx context.Context, extended bool) ([]Process, error) {
	entries, err := os.ReadDir(p.procPath)
	if err != nil {
		return nil, fmt.Errorf("read proc directory: %w", err)
	}

	out := make([]Process, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("list processes: %w", ctx.Err())
		}
		if !entry.IsDir() {
			continue
		}

		pid, err := strconv.ParseInt(entry.Name(), 10, 32)
		if err != nil {
			continue
		}

		proc, ok := p.readProcess(int32(pid), extended)
		if !ok {
			continue
		}
		out = append(out, proc)
	}

	log.Trace().Int("count", len(out)).Bool("extended", extended).Msg("procfs snapshot")
	return out, nil
}

// readProcess reads comm, exe and the session id for a process. A process
// that exits mid-read is skipped; an unreadable exe link leaves the path
// empty.
func (p *ProcFS) readProcess(pid int32, extended bool) (Process, bool) {
	dir := filepath.Join(p.procPath, strconv.Itoa(int(pid)))

	commData, err := os.ReadFile(filepath.Join(dir, "comm")) //nolint:gosec // G304: procPath is controlled
	if err != nil {
		return Process{}, false
	}

	proc := Process{
		PID:       pid,
		Name:      strings.TrimSpace(string(commData)),
		SessionID: -1,
	}

	if exe, err := os.Readlink(filepath.Join(dir, "exe")); err == nil {
		proc.ExecutablePath = strings.TrimSuffix(exe, " (deleted)")
	}

	if statData, err := os.ReadFile(filepath.Join(dir, "stat")); err == nil { //nolint:gosec // G304: procPath is controlled
		if sid, ok := parseStatSession(string(statData)); ok {
			proc.SessionID = sid
		}
	}
	markSystem(&proc)

	if extended {
		proc.Extended = true
		cmdline, _ := os.ReadFile(filepath.Join(dir, "cmdline")) //nolint:gosec // G304: procPath is controlled
		proc.CommandLine = strings.TrimSpace(strings.ReplaceAll(string(cmdline), "\x00", " "))
	}

	return proc, true
}

// parseStatSession extracts the session field from /proc/<pid>/stat. The
// comm field is wrapped in parens and may itself contain spaces or parens,
// so parsing starts after the last ')'.
func parseStatSession(stat string) (int32, bool) {
	end := strings.LastIndexByte(stat, ')')
	if end < 0 {
		return 0, false
	}
	// fields after comm: state ppid pgrp session ...
	fields := strings.Fields(stat[end+1:])
	if len(fields) < 4 {
		return 0, false
	}
	sid, err := strconv.ParseInt(fields[3], 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(sid), true
}
