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

// Package heroic detects Epic, GOG and sideloaded games installed through
// the Heroic Games Launcher.
package heroic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ID is the scanner identifier.
const ID = "heroic"

// libraryEntry is a game entry in Heroic's library JSON files.
type libraryEntry struct {
	AppName     string `json:"app_name"` //nolint:tagliatelle // External JSON format from Heroic
	Title       string `json:"title"`
	IsInstalled bool   `json:"is_installed"` //nolint:tagliatelle // External JSON format from Heroic
	Install     struct {
		InstallPath string `json:"install_path"` //nolint:tagliatelle // External JSON format from Heroic
		Executable  string `json:"executable"`
	} `json:"install"`
}

// legendaryInstall is a value in legendary's installed.json, keyed by app name.
type legendaryInstall struct {
	AppName     string `json:"app_name"` //nolint:tagliatelle // External JSON format from legendary
	Title       string `json:"title"`
	InstallPath string `json:"install_path"` //nolint:tagliatelle // External JSON format from legendary
	Executable  string `json:"executable"`
	IsDLC       bool   `json:"is_dlc"` //nolint:tagliatelle // External JSON format from legendary
}

type gogInstall struct {
	AppName     string `json:"appName"`
	InstallPath string `json:"install_path"` //nolint:tagliatelle // External JSON format from Heroic
	IsDLC       bool   `json:"is_dlc"`       //nolint:tagliatelle // External JSON format from Heroic
}

// Scanner reads Heroic's store caches and install records.
type Scanner struct {
	fs         afero.Fs
	configDirs []string
}

// New creates a scanner. If configDir is empty the usual native and Flatpak
// config locations are tried.
func New(fs afero.Fs, configDir string) *Scanner {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	dirs := []string{configDir}
	if configDir == "" {
		dirs = DefaultConfigDirs()
	}
	return &Scanner{fs: fs, configDirs: dirs}
}

// ID implements the scanner interface.
func (*Scanner) ID() string {
	return ID
}

// IsAvailable reports whether a Heroic config directory exists.
func (s *Scanner) IsAvailable() bool {
	return s.configDir() != ""
}

// WatchPaths returns the folders Heroic rewrites on install or uninstall.
func (s *Scanner) WatchPaths() []string {
	dir := s.configDir()
	if dir == "" {
		return nil
	}
	var paths []string
	for _, p := range []string{
		filepath.Join(dir, "legendaryConfig", "legendary"),
		filepath.Join(dir, "gog_store"),
		filepath.Join(dir, "sideload_apps"),
	} {
		if ok, _ := afero.DirExists(s.fs, p); ok {
			paths = append(paths, p)
		}
	}
	return paths
}

// DetectGames returns installed Heroic games. Epic titles are reported as
// the heroic source, GOG titles as gog.
func (s *Scanner) DetectGames(ctx context.Context) ([]games.Descriptor, error) {
	dir := s.configDir()
	if dir == "" {
		return nil, nil
	}

	var out []games.Descriptor
	steps := []struct {
		fn   func(string) ([]games.Descriptor, error)
		name string
	}{
		{name: "legendary", fn: s.scanLegendary},
		{name: "gog", fn: s.scanGOG},
		{name: "sideload", fn: s.scanSideloaded},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("heroic scan: %w", err)
		}
		found, err := step.fn(dir)
		if err != nil {
			log.Warn().Err(err).Str("store", step.name).Msg("failed to scan Heroic library")
			continue
		}
		out = append(out, found...)
	}

	log.Debug().Int("count", len(out)).Str("configDir", dir).Msg("heroic scan complete")
	return out, nil
}

func (s *Scanner) configDir() string {
	for _, dir := range s.configDirs {
		if dir == "" {
			continue
		}
		if ok, _ := afero.DirExists(s.fs, dir); ok {
			return dir
		}
	}
	return ""
}

func (s *Scanner) scanLegendary(dir string) ([]games.Descriptor, error) {
	var installed map[string]legendaryInstall
	err := s.readJSON(filepath.Join(dir, "legendaryConfig", "legendary", "installed.json"), &installed)
	if err != nil {
		return nil, err
	}

	titles := s.libraryTitles(filepath.Join(dir, "store_cache", "legendary_library.json"), "library")

	out := make([]games.Descriptor, 0, len(installed))
	for key, inst := range installed {
		appName := inst.AppName
		if appName == "" {
			appName = key
		}
		if inst.IsDLC || inst.InstallPath == "" {
			continue
		}
		d := games.Descriptor{
			ID:          appName,
			Name:        firstNonEmpty(inst.Title, titles[appName], appName),
			Source:      games.SourceHeroic,
			InstallPath: inst.InstallPath,
		}
		if inst.Executable != "" {
			d.ExecutablePath = filepath.Join(inst.InstallPath, inst.Executable)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Scanner) scanGOG(dir string) ([]games.Descriptor, error) {
	var installed struct {
		Installed []gogInstall `json:"installed"`
	}
	err := s.readJSON(filepath.Join(dir, "gog_store", "installed.json"), &installed)
	if err != nil {
		return nil, err
	}

	titles := s.libraryTitles(filepath.Join(dir, "store_cache", "gog_library.json"), "games")

	out := make([]games.Descriptor, 0, len(installed.Installed))
	for _, inst := range installed.Installed {
		if inst.IsDLC || inst.AppName == "" || inst.InstallPath == "" {
			continue
		}
		out = append(out, games.Descriptor{
			ID:          inst.AppName,
			Name:        firstNonEmpty(titles[inst.AppName], inst.AppName),
			Source:      games.SourceGOG,
			InstallPath: inst.InstallPath,
		})
	}
	return out, nil
}

// scanSideloaded returns apps added to Heroic by hand, which only carry an
// executable.
func (s *Scanner) scanSideloaded(dir string) ([]games.Descriptor, error) {
	entries, err := s.readLibrary(filepath.Join(dir, "sideload_apps", "library.json"), "games")
	if err != nil {
		return nil, err
	}

	out := make([]games.Descriptor, 0, len(entries))
	for _, e := range entries {
		if !e.IsInstalled || e.AppName == "" || e.Install.Executable == "" {
			continue
		}
		out = append(out, games.Descriptor{
			ID:             e.AppName,
			Name:           firstNonEmpty(e.Title, e.AppName),
			Source:         games.SourceHeroic,
			ExecutablePath: e.Install.Executable,
		})
	}
	return out, nil
}

// libraryTitles maps app names to titles from a store cache file. A missing
// cache just means titles fall back to app names.
func (s *Scanner) libraryTitles(path, key string) map[string]string {
	entries, err := s.readLibrary(path, key)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("no Heroic store cache")
		return nil
	}
	titles := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.AppName != "" && e.Title != "" {
			titles[e.AppName] = e.Title
		}
	}
	return titles
}

// readLibrary parses a file shaped { "<key>": [...] }.
func (s *Scanner) readLibrary(path, key string) ([]libraryEntry, error) {
	var data map[string][]libraryEntry
	if err := s.readJSON(path, &data); err != nil {
		return nil, err
	}
	entries, ok := data[key]
	if !ok {
		log.Debug().Str("path", path).Msgf("Heroic library file missing expected key: %s", key)
	}
	return entries, nil
}

// readJSON treats a missing file as empty.
func (s *Scanner) readJSON(path string, v any) error {
	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
