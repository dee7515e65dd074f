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

// Package epic detects games installed through the Epic Games Launcher by
// reading its per-install manifest files.
package epic

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ID is the scanner identifier.
const ID = "epic"

// manifest is the subset of a launcher .item file the scanner needs.
type manifest struct {
	DisplayName          string `json:"DisplayName"`
	AppName              string `json:"AppName"`
	MainGameAppName      string `json:"MainGameAppName"`
	InstallLocation      string `json:"InstallLocation"`
	LaunchExecutable     string `json:"LaunchExecutable"`
	AppCategories        []any  `json:"AppCategories"`
	BIsIncompleteInstall bool   `json:"bIsIncompleteInstall"`
}

// isDLC reports whether the manifest is an add-on for another game.
func (m *manifest) isDLC() bool {
	return m.MainGameAppName != "" && m.MainGameAppName != m.AppName
}

// Scanner reads Epic launcher manifests.
type Scanner struct {
	fs           afero.Fs
	manifestsDir string
}

// New creates a scanner. If manifestsDir is empty the launcher's default
// location for this OS is used.
func New(fs afero.Fs, manifestsDir string) *Scanner {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if manifestsDir == "" {
		manifestsDir = DefaultManifestsDir()
	}
	return &Scanner{fs: fs, manifestsDir: manifestsDir}
}

// ID implements the scanner interface.
func (*Scanner) ID() string {
	return ID
}

// IsAvailable reports whether the manifests folder exists.
func (s *Scanner) IsAvailable() bool {
	if s.manifestsDir == "" {
		return false
	}
	ok, _ := afero.DirExists(s.fs, s.manifestsDir)
	return ok
}

// WatchPaths returns the manifests folder, rewritten on every install or
// uninstall.
func (s *Scanner) WatchPaths() []string {
	if !s.IsAvailable() {
		return nil
	}
	return []string{s.manifestsDir}
}

// DetectGames returns every completely installed, non-DLC game.
func (s *Scanner) DetectGames(ctx context.Context) ([]games.Descriptor, error) {
	if !s.IsAvailable() {
		return nil, nil
	}

	entries, err := afero.ReadDir(s.fs, s.manifestsDir)
	if err != nil {
		return nil, fmt.Errorf("list epic manifests: %w", err)
	}

	var out []games.Descriptor
	seen := make(map[string]struct{})
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("epic scan: %w", err)
		}
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".item") {
			continue
		}

		path := filepath.Join(s.manifestsDir, e.Name())
		m, err := s.readManifest(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable epic manifest")
			continue
		}
		if m.BIsIncompleteInstall || m.isDLC() || m.AppName == "" || m.InstallLocation == "" {
			continue
		}
		if _, dup := seen[m.AppName]; dup {
			continue
		}
		seen[m.AppName] = struct{}{}

		d := games.Descriptor{
			ID:          m.AppName,
			Name:        m.DisplayName,
			Source:      games.SourceEpic,
			InstallPath: m.InstallLocation,
		}
		if m.LaunchExecutable != "" {
			d.ExecutablePath = joinLaunchPath(m.InstallLocation, m.LaunchExecutable)
		}
		if d.Name == "" {
			d.Name = m.AppName
		}
		out = append(out, d)
	}

	log.Debug().Int("count", len(out)).Msg("epic scan complete")
	return out, nil
}

func (s *Scanner) readManifest(path string) (*manifest, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// joinLaunchPath joins the launch executable onto the install folder using
// the install folder's own separator, since manifests always hold Windows
// paths even when read from another OS.
func joinLaunchPath(installDir, exe string) string {
	sep := "/"
	if strings.Contains(installDir, `\`) {
		sep = `\`
	}
	exe = strings.TrimLeft(strings.NewReplacer("/", sep, `\`, sep).Replace(exe), sep)
	return strings.TrimRight(installDir, `\/`) + sep + exe
}
