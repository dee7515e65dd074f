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

package helpers

import (
	"github.com/ZaparooProject/zaparoo-desktop/pkg/config"
)

// NewTestConfig creates a config instance backed by a file in configDir.
// Each mod is applied to the defaults before the file is first written.
func NewTestConfig(configDir string, mods ...func(*config.Values)) (*config.Instance, error) {
	vals := config.BaseDefaults
	for _, mod := range mods {
		mod(&vals)
	}
	cfg, err := config.NewConfig(configDir, vals)
	if err != nil {
		return nil, err //nolint:wrapcheck // test helper
	}
	return cfg, nil
}

// NewTestConfigWithPort creates a test config listening on loopback at
// port. Port 0 picks a free port.
func NewTestConfigWithPort(configDir string, port int) (*config.Instance, error) {
	cfg, err := NewTestConfig(configDir, func(v *config.Values) {
		v.Service.APIListen = ""
	})
	if err != nil {
		return nil, err
	}
	cfg.SetAPIPort(port)
	return cfg, nil
}
