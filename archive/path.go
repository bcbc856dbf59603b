// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of go-gamearchive.
//
// go-gamearchive is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-gamearchive is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-gamearchive.  If not, see <https://www.gnu.org/licenses/>.

package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Path is an input path that may point inside an archive.
type Path struct {
	ArchivePath  string // Path to the archive file
	InternalPath string // Resource name inside the archive (empty for the whole archive)
}

// ParsePath splits paths like "data/game.pak/maps/e1m1.bsp" at the first
// component ending in one of exts that exists as a regular file.
// It returns nil when path does not refer to an archive.
func ParsePath(path string, exts []string) (*Path, error) {
	normalized := filepath.ToSlash(path)
	lower := strings.ToLower(normalized)

	for _, ext := range exts {
		pattern := strings.ToLower(ext) + "/"
		idx := strings.Index(lower, pattern)
		if idx == -1 {
			continue
		}

		archivePath := filepath.FromSlash(normalized[:idx+len(ext)])
		internalPath := normalized[idx+len(ext)+1:]

		info, err := os.Stat(archivePath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat archive %s: %w", archivePath, err)
		}
		if info.IsDir() {
			continue
		}
		return &Path{ArchivePath: archivePath, InternalPath: internalPath}, nil
	}

	if !HasExtension(path, exts) {
		return nil, nil //nolint:nilnil // not an archive path
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil //nolint:nilnil // not an archive path
		}
		return nil, fmt.Errorf("stat archive %s: %w", path, err)
	}
	return &Path{ArchivePath: path}, nil
}

// HasExtension reports whether name ends with one of exts, ignoring case.
func HasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
