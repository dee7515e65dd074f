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

package systray

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"fyne.io/systray"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/client"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/ipc"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/config"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers"
	"github.com/nixinwang/dialog"
	"github.com/rs/zerolog/log"
	"golang.design/x/clipboard"
)

const (
	appTitle       = "Zaparoo Desktop"
	maxStatusNames = 3
)

func openPath(p string) {
	if err := helpers.Open(p); err != nil {
		log.Error().Err(err).Str("path", p).Msg("failed to open path")
	}
}

// statusText summarises the running games for the tray menu.
func statusText(running []games.Descriptor) string {
	if len(running) == 0 {
		return "No game running"
	}
	names := make([]string, 0, maxStatusNames)
	for i := range running {
		if i == maxStatusNames {
			break
		}
		name := running[i].Name
		if name == "" {
			name = running[i].ID
		}
		names = append(names, name)
	}
	text := "Playing: " + strings.Join(names, ", ")
	if extra := len(running) - maxStatusNames; extra > 0 {
		text += fmt.Sprintf(" (+%d more)", extra)
	}
	return text
}

func aboutText(version string, year int) string {
	return fmt.Sprintf(
		"%s\nVersion v%s\n\n© %d Zaparoo Contributors\nLicense: GPLv3\n\nwww.zaparoo.org",
		appTitle, version, year,
	)
}

// watchStatus keeps the status item in sync with the service's running
// games until ctx is done or the connection drops.
func watchStatus(ctx context.Context, cfg *config.Instance, item *systray.MenuItem) {
	c, err := client.Dial(ctx, client.LocalURL(cfg))
	if err != nil {
		log.Error().Err(err).Msg("tray failed to connect to service")
		item.SetTitle("Service unavailable")
		return
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Debug().Err(err).Msg("error closing tray connection")
		}
	}()

	refresh := make(chan struct{}, 1)
	trigger := func(ipc.Message) {
		select {
		case refresh <- struct{}{}:
		default:
		}
	}
	for _, t := range []string{
		models.NotificationGamesDetected,
		models.NotificationGameStarted,
		models.NotificationGameStopped,
	} {
		sub := c.Bridge().Subscribe(t, trigger)
		defer sub.Unsubscribe()
	}

	running := true
	for {
		resp, err := c.Games(ctx, &models.GamesListParams{Running: &running})
		if err != nil {
			log.Warn().Err(err).Msg("tray failed to fetch running games")
		} else {
			item.SetTitle(statusText(resp.Games))
		}

		select {
		case <-refresh:
		case <-c.Done():
			item.SetTitle("Service unavailable")
			return
		case <-ctx.Done():
			return
		}
	}
}

func onReady(ctx context.Context, cfg *config.Instance, icon []byte) func() {
	return func() {
		systray.SetIcon(icon)
		if runtime.GOOS != "darwin" {
			systray.SetTitle(appTitle)
		}
		systray.SetTooltip(appTitle + " v" + config.AppVersion)

		mStatus := systray.AddMenuItem("Starting...", "")
		mStatus.Disable()
		mRescan := systray.AddMenuItem("Rescan Libraries", "Rescan launcher libraries for games")
		shareURL := client.ShareURL(cfg)
		mAddress := systray.AddMenuItem("Copy API Address", shareURL)
		systray.AddSeparator()

		mEditConfig := systray.AddMenuItem("Edit Config", "Edit config file")
		mOpenLog := systray.AddMenuItem("View Log", "View log file")

		systray.AddSeparator()
		mVersion := systray.AddMenuItem("Version "+config.AppVersion, "")
		mVersion.Disable()
		mAbout := systray.AddMenuItem("About "+appTitle, "")

		systray.AddSeparator()
		mQuit := systray.AddMenuItem("Quit", "Quit and stop the service")

		go watchStatus(ctx, cfg, mStatus)

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-mRescan.ClickedCh:
					go rescan(ctx, cfg)
				case <-mAddress.ClickedCh:
					err := clipboard.Init()
					if err != nil {
						log.Error().Err(err).Msg("failed to initialize clipboard")
						continue
					}
					clipboard.Write(clipboard.FmtText, []byte(shareURL))
				case <-mEditConfig.ClickedCh:
					openPath(cfg.Path())
				case <-mOpenLog.ClickedCh:
					openPath(filepath.Join(helpers.LogDir(), helpers.LogFile))
				case <-mAbout.ClickedCh:
					dialog.Message("%s", aboutText(config.AppVersion, time.Now().Year())).
						Title("About " + appTitle).
						Info()
				case <-mQuit.ClickedCh:
					systray.Quit()
					return
				}
			}
		}()
	}
}

func rescan(ctx context.Context, cfg *config.Instance) {
	resp, err := client.LocalClient(ctx, cfg, models.MethodGamesRescan, nil)
	if err != nil {
		log.Error().Err(err).Msg("tray rescan failed")
		dialog.Message("Rescan failed: %v", err).Title(appTitle).Error()
		return
	}
	var found models.GamesResponse
	if err := resp.Decode(&found); err != nil {
		log.Error().Err(err).Msg("failed to decode rescan response")
		return
	}
	log.Info().Int("games", len(found.Games)).Msg("tray rescan finished")
}

// Run shows the tray icon and blocks until Quit is chosen. It must be
// called from the main goroutine. exit runs after the tray is torn down.
func Run(ctx context.Context, cfg *config.Instance, icon []byte, exit func()) {
	systray.Run(onReady(ctx, cfg, icon), exit)
}

// Quit removes the tray icon, making Run return.
func Quit() {
	systray.Quit()
}
