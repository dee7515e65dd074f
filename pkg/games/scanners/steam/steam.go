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

// Package steam detects games installed through Steam: every library
// folder's app manifests plus non-Steam shortcuts added by the user.
package steam

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ZaparooProject/zaparoo-desktop/internal/vdfbinary"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/andygrunwald/vdf"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ID is the scanner identifier.
const ID = "steam"

// shortcutIDPrefix keeps shortcut ids apart from numeric Steam app ids.
const shortcutIDPrefix = "shortcut-"

// toolAppIDs are Steam "apps" that are runtimes rather than games.
var toolAppIDs = map[string]struct{}{
	"228980":  {}, // Steamworks Common Redistributables
	"1070560": {}, // Steam Linux Runtime 1.0 (scout)
	"1391110": {}, // Steam Linux Runtime 2.0 (soldier)
	"1628350": {}, // Steam Linux Runtime 3.0 (sniper)
	"1493710": {}, // Proton Experimental
	"2180100": {}, // Proton Hotfix
}

// Scanner reads Steam's library files.
type Scanner struct {
	fs        afero.Fs
	steamDirs []string
}

// New creates a scanner. If steamDir is empty the platform's usual install
// locations are tried.
func New(fs afero.Fs, steamDir string) *Scanner {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	dirs := []string{steamDir}
	if steamDir == "" {
		dirs = DefaultSteamDirs()
	}
	return &Scanner{fs: fs, steamDirs: dirs}
}

// ID implements the scanner interface.
func (*Scanner) ID() string {
	return ID
}

// IsAvailable reports whether a Steam install with a steamapps folder exists.
func (s *Scanner) IsAvailable() bool {
	return s.steamDir() != ""
}

// WatchPaths returns every library's steamapps folder. Steam rewrites app
// manifests there when games are installed or removed.
func (s *Scanner) WatchPaths() []string {
	root := s.steamDir()
	if root == "" {
		return nil
	}
	libs := s.libraryFolders(root)
	paths := make([]string, 0, len(libs))
	for _, lib := range libs {
		paths = append(paths, findSteamAppsDir(s.fs, lib))
	}
	return paths
}

// DetectGames returns every installed Steam app and non-Steam shortcut.
func (s *Scanner) DetectGames(ctx context.Context) ([]games.Descriptor, error) {
	root := s.steamDir()
	if root == "" {
		return nil, nil
	}

	var out []games.Descriptor
	for _, lib := range s.libraryFolders(root) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("steam scan: %w", err)
		}
		found, err := s.scanLibrary(ctx, lib)
		if err != nil {
			log.Warn().Err(err).Str("library", lib).Msg("skipping steam library")
			continue
		}
		out = append(out, found...)
	}

	out = append(out, s.scanShortcuts(root)...)

	log.Debug().Int("count", len(out)).Str("steamDir", root).Msg("steam scan complete")
	return out, nil
}

func (s *Scanner) steamDir() string {
	for _, dir := range s.steamDirs {
		if dir == "" {
			continue
		}
		if ok, _ := afero.DirExists(s.fs, findSteamAppsDir(s.fs, dir)); ok {
			return dir
		}
	}
	return ""
}

// libraryFolders returns the Steam root plus every library listed in
// libraryfolders.vdf, without duplicates.
func (s *Scanner) libraryFolders(root string) []string {
	libs := []string{root}
	seen := map[string]struct{}{strings.ToLower(filepath.Clean(root)): {}}

	m, err := parseTextVDF(s.fs, filepath.Join(findSteamAppsDir(s.fs, root), "libraryfolders.vdf"))
	if err != nil {
		log.Debug().Err(err).Msg("no libraryfolders.vdf, using steam root only")
		return libs
	}

	lfs, ok := m["libraryfolders"].(map[string]any)
	if !ok {
		return libs
	}
	for id, v := range lfs {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		p, ok := entry["path"].(string)
		if !ok || p == "" {
			log.Debug().Str("library", id).Msg("library has no path")
			continue
		}
		key := strings.ToLower(filepath.Clean(p))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		libs = append(libs, p)
	}
	return libs
}

func (s *Scanner) scanLibrary(ctx context.Context, lib string) ([]games.Descriptor, error) {
	appsDir := findSteamAppsDir(s.fs, lib)
	entries, err := afero.ReadDir(s.fs, appsDir)
	if err != nil {
		return nil, fmt.Errorf("list steamapps folder: %w", err)
	}

	var out []games.Descriptor
	for _, e := range entries {
		if ctx.Err() != nil {
			return out, nil
		}
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "appmanifest_") || !strings.HasSuffix(name, ".acf") {
			continue
		}

		info, err := readAppManifest(s.fs, filepath.Join(appsDir, name))
		if err != nil {
			log.Warn().Err(err).Str("manifest", name).Msg("skipping unreadable app manifest")
			continue
		}
		if _, tool := toolAppIDs[info.AppID]; tool || info.InstallDir == "" {
			continue
		}

		out = append(out, games.Descriptor{
			ID:          info.AppID,
			Name:        info.Name,
			Source:      games.SourceSteam,
			InstallPath: filepath.Join(appsDir, "common", info.InstallDir),
		})
	}
	return out, nil
}

// scanShortcuts reads every user's shortcuts.vdf. Shortcuts only carry an
// exact executable: their start dir is often a shared folder like /usr/bin.
func (s *Scanner) scanShortcuts(root string) []games.Descriptor {
	userdata := filepath.Join(root, "userdata")
	users, err := afero.ReadDir(s.fs, userdata)
	if err != nil {
		return nil
	}

	var out []games.Descriptor
	seen := map[uint32]struct{}{}
	for _, u := range users {
		if !u.IsDir() {
			continue
		}
		path := filepath.Join(userdata, u.Name(), "config", "shortcuts.vdf")
		shortcuts, err := readShortcuts(s.fs, path)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Warn().Err(err).Str("path", path).Msg("error reading steam shortcuts")
			}
			continue
		}
		for _, sc := range shortcuts {
			if _, dup := seen[sc.AppID]; dup || sc.AppName == "" || !filepath.IsAbs(sc.Exe) {
				continue
			}
			seen[sc.AppID] = struct{}{}
			out = append(out, games.Descriptor{
				ID:             shortcutIDPrefix + strconv.FormatUint(uint64(sc.AppID), 10),
				Name:           sc.AppName,
				Source:         games.SourceSteam,
				ExecutablePath: sc.Exe,
			})
		}
	}
	return out
}

func readShortcuts(fs afero.Fs, path string) ([]vdfbinary.Shortcut, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // caller checks os.IsNotExist
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing shortcuts.vdf")
		}
	}()
	shortcuts, err := vdfbinary.ParseShortcuts(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return shortcuts, nil
}

// appInfo is the subset of an app manifest the scanner needs.
type appInfo struct {
	AppID      string
	Name       string
	InstallDir string
}

func readAppManifest(fs afero.Fs, path string) (appInfo, error) {
	m, err := parseTextVDF(fs, path)
	if err != nil {
		return appInfo{}, err
	}
	state, ok := m["appstate"].(map[string]any)
	if !ok {
		return appInfo{}, fmt.Errorf("appstate not found in %s", path)
	}
	id, _ := state["appid"].(string)
	if id == "" {
		return appInfo{}, fmt.Errorf("appid not found in %s", path)
	}
	name, _ := state["name"].(string)
	if name == "" {
		name = "Steam Game " + id
	}
	installDir, _ := state["installdir"].(string)
	return appInfo{AppID: id, Name: name, InstallDir: installDir}, nil
}

func parseTextVDF(fs afero.Fs, path string) (map[string]any, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("error closing vdf file")
		}
	}()
	return decodeTextVDF(f, path)
}

func decodeTextVDF(r io.Reader, path string) (map[string]any, error) {
	m, err := vdf.NewParser(r).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return normalizeVDFKeys(m), nil
}

// normalizeVDFKeys recursively lowercases all keys. Valve's VDF format is
// case-insensitive but Go maps are not.
func normalizeVDFKeys(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = normalizeVDFKeys(nested)
		}
		result[strings.ToLower(k)] = v
	}
	return result
}

// findSteamAppsDir handles the mixed case "SteamApps" folder older installs
// use.
func findSteamAppsDir(fs afero.Fs, steamDir string) string {
	for _, candidate := range []string{"steamapps", "SteamApps"} {
		p := filepath.Join(steamDir, candidate)
		if ok, _ := afero.DirExists(fs, p); ok {
			return p
		}
	}
	return filepath.Join(steamDir, "steamapps")
}
