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

// Package lutris detects games installed through Lutris by reading its
// pga.db game database and per-game YAML configs.
package lutris

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers"
	_ "github.com/mattn/go-sqlite3" // sqlite driver for pga.db
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ID is the scanner identifier.
const ID = "lutris"

const dbFile = "pga.db"

const installedGamesQuery = `SELECT id, slug, name, runner, directory, configpath
FROM games
WHERE installed = 1
ORDER BY id`

// Runners whose games are already reported by a dedicated scanner.
var skippedRunners = map[string]struct{}{
	"steam": {},
}

// Runners that start the game through an interpreter, so the game never
// appears as the process executable.
var wrappedRunners = map[string]struct{}{
	"wine":    {},
	"dosbox":  {},
	"scummvm": {},
}

// DBOpener opens pga.db for reading.
type DBOpener func(path string) (*sql.DB, error)

// OpenReadOnly opens a sqlite database without taking write locks so a
// running Lutris is not disturbed.
func OpenReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+filepath.ToSlash(path)+"?mode=ro&_busy_timeout=2000")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return db, nil
}

type gameRow struct {
	slug       string
	name       string
	runner     string
	directory  string
	configPath string
	id         int64
}

type gameConfig struct {
	Game struct {
		Exe        string `yaml:"exe"`
		Prefix     string `yaml:"prefix"`
		WorkingDir string `yaml:"working_dir"`
	} `yaml:"game"`
}

// Scanner reads the Lutris library.
type Scanner struct {
	fs       afero.Fs
	openDB   DBOpener
	dataDirs []string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithDBOpener replaces the sqlite opener, mainly for tests.
func WithDBOpener(fn DBOpener) Option {
	return func(s *Scanner) {
		if fn != nil {
			s.openDB = fn
		}
	}
}

// New creates a scanner. An empty dataDir tries the native and Flatpak data
// directories.
func New(fs afero.Fs, dataDir string, opts ...Option) *Scanner {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	dirs := []string{dataDir}
	if dataDir == "" {
		dirs = DefaultDataDirs()
	}
	s := &Scanner{fs: fs, dataDirs: dirs, openDB: OpenReadOnly}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID implements the scanner interface.
func (*Scanner) ID() string {
	return ID
}

// IsAvailable reports whether a Lutris database exists.
func (s *Scanner) IsAvailable() bool {
	return s.dataDir() != ""
}

// WatchPaths returns the game config folder, rewritten on every install.
func (s *Scanner) WatchPaths() []string {
	dir := s.dataDir()
	if dir == "" {
		return nil
	}
	var paths []string
	for _, p := range s.configDirs(dir) {
		if ok, _ := afero.DirExists(s.fs, p); ok {
			paths = append(paths, p)
		}
	}
	return paths
}

func (s *Scanner) dataDir() string {
	for _, dir := range s.dataDirs {
		if dir == "" {
			continue
		}
		if ok, _ := afero.Exists(s.fs, filepath.Join(dir, dbFile)); ok {
			return dir
		}
	}
	return ""
}

// configDirs lists where game YAML files live. Newer Lutris keeps them in the
// data dir, older releases in the config dir.
func (*Scanner) configDirs(dataDir string) []string {
	dirs := []string{filepath.Join(dataDir, "games")}
	if legacy := legacyConfigDir(dataDir); legacy != "" {
		dirs = append(dirs, legacy)
	}
	return dirs
}

// DetectGames returns installed Lutris games.
func (s *Scanner) DetectGames(ctx context.Context) ([]games.Descriptor, error) {
	dir := s.dataDir()
	if dir == "" {
		return nil, nil
	}

	rows, err := s.queryInstalled(ctx, filepath.Join(dir, dbFile))
	if err != nil {
		return nil, err
	}

	out := make([]games.Descriptor, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		if _, skip := skippedRunners[row.runner]; skip {
			continue
		}
		cfg, err := s.readConfig(dir, row.configPath)
		if err != nil {
			log.Debug().Err(err).Str("slug", row.slug).Msg("no usable lutris game config")
		}
		g, ok := descriptorFor(row, cfg)
		if !ok {
			log.Debug().Str("slug", row.slug).Msg("lutris game has no matching signals, skipping")
			continue
		}
		out = append(out, g)
	}

	log.Debug().Int("count", len(out)).Msg("found lutris games")
	return out, nil
}

func (s *Scanner) queryInstalled(ctx context.Context, path string) ([]gameRow, error) {
	db, err := s.openDB(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("closing lutris database")
		}
	}()

	rows, err := db.QueryContext(ctx, installedGamesQuery)
	if err != nil {
		return nil, fmt.Errorf("query lutris games: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []gameRow
	for rows.Next() {
		var r gameRow
		var slug, name, runner, directory, cfgPath sql.NullString
		if err := rows.Scan(&r.id, &slug, &name, &runner, &directory, &cfgPath); err != nil {
			return nil, fmt.Errorf("scan lutris game: %w", err)
		}
		r.slug = slug.String
		r.name = name.String
		r.runner = runner.String
		r.directory = directory.String
		r.configPath = cfgPath.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lutris games: %w", err)
	}
	return out, nil
}

func (s *Scanner) readConfig(dataDir, configPath string) (*gameConfig, error) {
	if configPath == "" {
		return nil, errors.New("game has no config path")
	}
	for _, dir := range s.configDirs(dataDir) {
		data, err := afero.ReadFile(s.fs, filepath.Join(dir, configPath+".yml"))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", configPath, err)
		}
		var cfg gameConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
		return &cfg, nil
	}
	return nil, fmt.Errorf("%s: %w", configPath, os.ErrNotExist)
}

func descriptorFor(row *gameRow, cfg *gameConfig) (games.Descriptor, bool) {
	id := row.slug
	if id == "" {
		id = strconv.FormatInt(row.id, 10)
	}
	name := row.name
	if name == "" {
		name = id
	}
	g := games.Descriptor{
		ID:     id,
		Name:   name,
		Source: games.SourceLutris,
	}
	if filepath.IsAbs(row.directory) {
		g.InstallPath = filepath.Clean(row.directory)
	}

	exe := ""
	if cfg != nil {
		exe = cfg.Game.Exe
		if exe != "" && !filepath.IsAbs(exe) {
			base := cfg.Game.WorkingDir
			if base == "" {
				base = g.InstallPath
			}
			if base == "" {
				base = cfg.Game.Prefix
			}
			if base != "" {
				exe = filepath.Join(base, exe)
			}
		}
	}

	if _, wrapped := wrappedRunners[row.runner]; wrapped {
		// the runner binary is the process, the game shows up in its arguments
		if exe != "" {
			g.DeepSearchPatterns = []string{strings.ToLower(helpers.BaseName(exe))}
		}
		return g, g.InstallPath != "" || len(g.DeepSearchPatterns) > 0
	}

	if filepath.IsAbs(exe) {
		g.ExecutablePath = filepath.Clean(exe)
	}
	return g, g.InstallPath != "" || g.ExecutablePath != ""
}
