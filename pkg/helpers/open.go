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
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// MaxURLLength is the maximum allowed URL length for browser opening.
const MaxURLLength = 8192

var (
	ErrInvalidTarget = errors.New("target must be an http(s) URL or absolute path")
	ErrTargetTooLong = errors.New("target too long")
)

// ValidateOpenTarget checks a target can be handed to the desktop opener.
// Only http:// and https:// URLs and absolute local paths are accepted.
func ValidateOpenTarget(target string) error {
	if len(target) > MaxURLLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrTargetTooLong, len(target), MaxURLLength)
	}
	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return nil
	}
	if strings.Contains(target, "://") || !(filepath.IsAbs(target) || IsWindowsStylePath(target)) {
		return ErrInvalidTarget
	}
	return nil
}

// OpenCommand returns the desktop opener for goos.
func OpenCommand(goos string) string {
	switch goos {
	case "windows":
		return "explorer"
	case "darwin":
		return "open"
	default:
		return "xdg-open"
	}
}

// Open opens a URL in the default browser or a local file or directory in
// its default application. The opener is started but not waited on.
func Open(target string) error {
	if err := ValidateOpenTarget(target); err != nil {
		return err
	}
	//nolint:gosec // target validated above
	cmd := exec.CommandContext(context.Background(), OpenCommand(runtime.GOOS), target)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
