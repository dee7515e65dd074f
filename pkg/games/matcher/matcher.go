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

// Package matcher decides whether a game is running given a process
// snapshot. It does no I/O and holds no state between calls.
package matcher

import (
	"runtime"
	"strings"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/procsnap"
	"golang.org/x/text/cases"
)

// Rule names the signal that produced a match.
type Rule int

const (
	RuleNone Rule = iota
	RuleDeepSearch
	RuleProcessName
	RuleInstallPath
	RuleExecutable
)

func (r Rule) String() string {
	switch r {
	case RuleDeepSearch:
		return "deep_search"
	case RuleProcessName:
		return "process_name"
	case RuleInstallPath:
		return "install_path"
	case RuleExecutable:
		return "executable"
	default:
		return "none"
	}
}

// DefaultExclusions are helper binaries commonly shipped inside game
// folders. Entries ending in "*" match by prefix. Names are compared without
// extension and case-insensitively.
var DefaultExclusions = []string{
	"unins*",
	"uninstall*",
	"unitycrashhandler32",
	"unitycrashhandler64",
	"crashreportclient",
	"crashpad_handler",
	"crashhandler",
	"bugsplat*",
	"vc_redist*",
	"vcredist*",
	"dxsetup",
	"dxwebsetup",
	"dotnetfx*",
	"ndp*-kb*",
	"oalinst",
	"physx*",
	"ue4prereqsetup*",
	"ueprereqsetup*",
	"easyanticheat_setup",
	"easyanticheat_eos_setup",
	"battleye_installer",
	"be_service_installer",
	"steamerrorreporter",
	"steamerrorreporter64",
	"redistributable*",
	"setup",
	"updater",
	"launcherpatcher",
	"epicwebhelper",
	"cefsharp.browsersubprocess",
	"qtwebengineprocess",
}

// Engine evaluates descriptors against process snapshots.
type Engine struct {
	exact         map[string]struct{}
	prefixes      []string
	caseSensitive bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithExclusions adds helper binary names to the built-in exclusion list.
func WithExclusions(names ...string) Option {
	return func(e *Engine) {
		e.addExclusions(names)
	}
}

// WithCaseSensitiveNames controls process-name list comparison. By default
// names are compared case-insensitively except on Linux.
func WithCaseSensitiveNames(sensitive bool) Option {
	return func(e *Engine) {
		e.caseSensitive = sensitive
	}
}

// New creates an Engine with the default exclusions.
func New(opts ...Option) *Engine {
	e := &Engine{
		exact:         make(map[string]struct{}),
		caseSensitive: runtime.GOOS == "linux",
	}
	e.addExclusions(DefaultExclusions)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) addExclusions(names []string) {
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if strings.HasSuffix(n, "*") {
			e.prefixes = append(e.prefixes, strings.TrimSuffix(n, "*"))
			continue
		}
		e.exact[helpers.BareProcessName(n)] = struct{}{}
	}
}

// IsExcluded reports whether an executable path or process name is a known
// non-game helper binary.
func (e *Engine) IsExcluded(nameOrPath string) bool {
	bare := strings.ToLower(helpers.BareProcessName(nameOrPath))
	if bare == "" {
		return false
	}
	if _, ok := e.exact[bare]; ok {
		return true
	}
	for _, p := range e.prefixes {
		if strings.HasPrefix(bare, p) {
			return true
		}
	}
	return false
}

// Result describes the outcome of a Match.
type Result struct {
	Process procsnap.Process
	Rule    Rule
	Running bool
}

// Snapshot is one poll's worth of processes. Extended is only needed when a
// game uses deep search and may be nil otherwise.
type Snapshot struct {
	Basic    []procsnap.Process
	Extended []procsnap.Process
	folded   [][]string
}

// NewSnapshot prepares a snapshot for matching many games. Deep search
// haystacks are case folded once here instead of once per game.
func NewSnapshot(basic, extended []procsnap.Process) *Snapshot {
	s := &Snapshot{Basic: basic, Extended: extended}
	if len(extended) > 0 {
		caser := cases.Fold()
		s.folded = make([][]string, len(extended))
		for i := range extended {
			s.folded[i] = foldFields(caser, &extended[i])
		}
	}
	return s
}

// IsRunning reports whether the game is running in procs. Deep search only
// considers entries collected with extended metadata.
func (e *Engine) IsRunning(g *games.Descriptor, procs []procsnap.Process) bool {
	return e.Match(g, NewSnapshot(procs, extendedOnly(procs))).Running
}

// FindRunningProcess returns the first process inside the install path, or
// failing that the first process whose path equals the executable path.
func (e *Engine) FindRunningProcess(g *games.Descriptor, procs []procsnap.Process) (procsnap.Process, bool) {
	if p, ok := e.matchInstallPath(g, procs); ok {
		return p, true
	}
	return e.matchExecutable(g, procs)
}

// Match runs the rules in order and stops at the first hit: deep search,
// process names, install path containment, then exact executable. A deep
// search miss falls through to the remaining rules.
func (e *Engine) Match(g *games.Descriptor, snap *Snapshot) Result {
	if g == nil || snap == nil {
		return Result{}
	}

	if g.NeedsDeepSearch() {
		if p, ok := deepSearch(g.DeepSearchPatterns, snap); ok {
			return Result{Running: true, Rule: RuleDeepSearch, Process: p}
		}
	}

	if len(g.ProcessNames) > 0 {
		if p, ok := e.matchProcessName(g.ProcessNames, snap.Basic); ok {
			return Result{Running: true, Rule: RuleProcessName, Process: p}
		}
	}

	if p, ok := e.matchInstallPath(g, snap.Basic); ok {
		return Result{Running: true, Rule: RuleInstallPath, Process: p}
	}

	if p, ok := e.matchExecutable(g, snap.Basic); ok {
		return Result{Running: true, Rule: RuleExecutable, Process: p}
	}

	return Result{}
}

func (e *Engine) matchProcessName(names []string, procs []procsnap.Process) (procsnap.Process, bool) {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[e.normName(n)] = struct{}{}
	}
	for i := range procs {
		p := &procs[i]
		if p.System || p.Name == "" {
			continue
		}
		if _, ok := want[e.normName(p.Name)]; ok {
			return *p, true
		}
	}
	return procsnap.Process{}, false
}

func (e *Engine) normName(n string) string {
	n = helpers.BareProcessName(strings.TrimSpace(n))
	if e.caseSensitive {
		return n
	}
	return strings.ToLower(n)
}

func (e *Engine) matchInstallPath(g *games.Descriptor, procs []procsnap.Process) (procsnap.Process, bool) {
	if g == nil || g.InstallPath == "" {
		return procsnap.Process{}, false
	}
	for i := range procs {
		p := &procs[i]
		if p.System || p.ExecutablePath == "" {
			continue
		}
		if !helpers.PathIsWithin(p.ExecutablePath, g.InstallPath) {
			continue
		}
		if e.IsExcluded(p.ExecutablePath) {
			continue
		}
		return *p, true
	}
	return procsnap.Process{}, false
}

func (*Engine) matchExecutable(g *games.Descriptor, procs []procsnap.Process) (procsnap.Process, bool) {
	if g == nil || g.ExecutablePath == "" {
		return procsnap.Process{}, false
	}
	want := helpers.NormalizePathForComparison(g.ExecutablePath)
	for i := range procs {
		p := &procs[i]
		if p.System || p.ExecutablePath == "" {
			continue
		}
		if helpers.NormalizePathForComparison(p.ExecutablePath) == want {
			return *p, true
		}
	}
	return procsnap.Process{}, false
}

func deepSearch(patterns []string, snap *Snapshot) (procsnap.Process, bool) {
	if len(snap.Extended) == 0 {
		return procsnap.Process{}, false
	}

	caser := cases.Fold()
	folded := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			folded = append(folded, caser.String(p))
		}
	}
	if len(folded) == 0 {
		return procsnap.Process{}, false
	}

	for i := range snap.Extended {
		p := &snap.Extended[i]
		if p.System {
			continue
		}
		var fields []string
		if i < len(snap.folded) {
			fields = snap.folded[i]
		} else {
			fields = foldFields(caser, p)
		}
		for _, f := range fields {
			for _, pat := range folded {
				if strings.Contains(f, pat) {
					return *p, true
				}
			}
		}
	}
	return procsnap.Process{}, false
}

func foldFields(caser cases.Caser, p *procsnap.Process) []string {
	raw := [...]string{
		p.Name,
		p.WindowTitle,
		p.FileDescription,
		p.ProductName,
		p.CompanyName,
		p.CommandLine,
		p.ExecutablePath,
	}
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if f != "" {
			out = append(out, caser.String(f))
		}
	}
	return out
}

func extendedOnly(procs []procsnap.Process) []procsnap.Process {
	var out []procsnap.Process
	for i := range procs {
		if procs[i].Extended {
			out = append(out, procs[i])
		}
	}
	return out
}
