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

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"
)

// Gopsutil lists processes with gopsutil. It works on every OS the service
// supports.
type Gopsutil struct{}

// NewGopsutil returns a gopsutil backed provider.
func NewGopsutil() *Gopsutil {
	return &Gopsutil{}
}

// ListProcesses implements Provider. Processes that exit or deny access
// mid-enumeration are skipped, or reported without a path.
func (*Gopsutil) ListProcesses(ctx context.Context, extended bool) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	var titles map[int32]string
	if extended {
		titles = windowTitles()
	}

	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("list processes: %w", ctx.Err())
		}

		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}

		entry := Process{
			PID:       p.Pid,
			Name:      name,
			SessionID: sessionID(p.Pid),
		}
		markSystem(&entry)

		if exe, exeErr := p.ExeWithContext(ctx); exeErr == nil {
			entry.ExecutablePath = exe
		}

		if extended {
			entry.Extended = true
			entry.WindowTitle = titles[p.Pid]
			if cmd, cmdErr := p.CmdlineWithContext(ctx); cmdErr == nil {
				entry.CommandLine = cmd
			}
			if entry.ExecutablePath != "" {
				info := readVersionInfo(entry.ExecutablePath)
				entry.FileDescription = info.FileDescription
				entry.ProductName = info.ProductName
				entry.CompanyName = info.CompanyName
			}
		}

		out = append(out, entry)
	}

	log.Trace().Int("count", len(out)).Bool("extended", extended).Msg("process snapshot")
	return out, nil
}
