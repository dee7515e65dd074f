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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProc struct {
	comm    string
	cmdline string
	exe     string
	pid     int
	session int
}

func createMockProcess(t *testing.T, procDir string, p mockProc) {
	t.Helper()

	pidDir := filepath.Join(procDir, strconv.Itoa(p.pid))
	require.NoError(t, os.MkdirAll(pidDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(pidDir, "comm"), []byte(p.comm+"\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(pidDir, "cmdline"), []byte(p.cmdline), 0o600))
	stat := fmt.Sprintf("%d (%s) S 1 %d %d 0 -1 4194560", p.pid, p.comm, p.session, p.session)
	require.NoError(t, os.WriteFile(filepath.Join(pidDir, "stat"), []byte(stat), 0o600))
	if p.exe != "" {
		require.NoError(t, os.Symlink(p.exe, filepath.Join(pidDir, "exe")))
	}
}

func TestProcFS_ListProcesses(t *testing.T) {
	t.Parallel()

	procDir := t.TempDir()
	createMockProcess(t, procDir, mockProc{
		pid: 100, comm: "game", cmdline: "/opt/game/bin/game\x00--fullscreen\x00",
		exe: "/opt/game/bin/game", session: 100,
	})
	createMockProcess(t, procDir, mockProc{pid: 2, comm: "kthreadd", session: 0})
	// non-pid entries are ignored
	require.NoError(t, os.MkdirAll(filepath.Join(procDir, "self"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(procDir, "uptime"), []byte("1 1"), 0o600))

	p := NewProcFS(WithProcPath(procDir))

	procs, err := p.ListProcesses(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, procs, 2)

	byPID := map[int32]Process{}
	for _, proc := range procs {
		byPID[proc.PID] = proc
	}

	game := byPID[100]
	assert.Equal(t, "game", game.Name)
	assert.Equal(t, "/opt/game/bin/game", game.ExecutablePath)
	assert.Equal(t, int32(100), game.SessionID)
	assert.False(t, game.System)
	assert.False(t, game.Extended)
	assert.Empty(t, game.CommandLine)

	kthread := byPID[2]
	assert.True(t, kthread.System)
	assert.Empty(t, kthread.ExecutablePath)
}

func TestProcFS_Extended(t *testing.T) {
	t.Parallel()

	procDir := t.TempDir()
	createMockProcess(t, procDir, mockProc{
		pid: 7, comm: "eldenring.exe", cmdline: "Z:\\Elden Ring\\eldenring.exe\x00-eac\x00", session: 7,
	})

	procs, err := NewProcFS(WithProcPath(procDir)).ListProcesses(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, procs, 1)
	assert.True(t, procs[0].Extended)
	assert.Equal(t, `Z:\Elden Ring\eldenring.exe -eac`, procs[0].CommandLine)
}

func TestProcFS_MissingProcDir(t *testing.T) {
	t.Parallel()

	_, err := NewProcFS(WithProcPath(filepath.Join(t.TempDir(), "nope"))).
		ListProcesses(context.Background(), false)
	require.Error(t, err)
}

func TestProcFS_CancelledContext(t *testing.T) {
	t.Parallel()

	procDir := t.TempDir()
	createMockProcess(t, procDir, mockProc{pid: 1, comm: "init", session: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProcFS(WithProcPath(procDir)).ListProcesses(ctx, false)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseStatSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		stat   string
		want   int32
		wantOK bool
	}{
		{name: "simple", stat: "42 (bash) S 1 42 42 34816", want: 42, wantOK: true},
		{name: "comm with parens", stat: "9 (a (b) c) R 1 5 6 0", want: 6, wantOK: true},
		{name: "kernel thread", stat: "2 (kthreadd) S 0 0 0 0", want: 0, wantOK: true},
		{name: "truncated", stat: "9 (x) R 1", wantOK: false},
		{name: "garbage", stat: "nonsense", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := parseStatSession(tt.stat)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	p, err := New(KindGopsutil)
	require.NoError(t, err)
	assert.IsType(t, &Gopsutil{}, p)

	_, err = New("bogus")
	require.Error(t, err)

	p, err = New("")
	require.NoError(t, err)
	assert.NotNil(t, p)
}
