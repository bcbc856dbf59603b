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

package archive_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZaparooProject/go-gamearchive/archive"
)

var pakExts = []string{".pak", ".pbo"}

func createTestPak(t *testing.T, path string) {
	t.Helper()

	if err := os.WriteFile(path, []byte("PACK\x0c\x00\x00\x00\x00\x00\x00\x00"), 0o600); err != nil {
		t.Fatalf("write pak: %v", err)
	}
}

func TestParsePath_ArchiveWithInternalPath(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	pakPath := filepath.Join(tmpDir, "pak0.pak")
	createTestPak(t, pakPath)

	result, err := archive.ParsePath(pakPath+"/maps/e1m1.bsp", pakExts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result.ArchivePath != pakPath {
		t.Errorf("ArchivePath = %q, want %q", result.ArchivePath, pakPath)
	}
	if result.InternalPath != "maps/e1m1.bsp" {
		t.Errorf("InternalPath = %q, want %q", result.InternalPath, "maps/e1m1.bsp")
	}
}

func TestParsePath_CaseInsensitiveExtension(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	pakPath := filepath.Join(tmpDir, "PAK0.PAK")
	createTestPak(t, pakPath)

	result, err := archive.ParsePath(pakPath+"/gfx.wad", pakExts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || result.InternalPath != "gfx.wad" {
		t.Fatalf("result = %+v, want internal path gfx.wad", result)
	}
}

func TestParsePath_ArchiveOnly(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	pakPath := filepath.Join(tmpDir, "pak0.pak")
	createTestPak(t, pakPath)

	result, err := archive.ParsePath(pakPath, pakExts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result.ArchivePath != pakPath {
		t.Errorf("ArchivePath = %q, want %q", result.ArchivePath, pakPath)
	}
	if result.InternalPath != "" {
		t.Errorf("InternalPath = %q, want empty", result.InternalPath)
	}
}

func TestParsePath_NonArchive(t *testing.T) {
	t.Parallel()

	result, err := archive.ParsePath("/some/path/readme.txt", pakExts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result for non-archive path, got %+v", result)
	}
}

func TestParsePath_NonExistentArchive(t *testing.T) {
	t.Parallel()

	result, err := archive.ParsePath("/nonexistent/pak0.pak/maps/e1m1.bsp", pakExts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result for missing archive, got %+v", result)
	}
}

func TestHasExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{name: "pak0.pak", want: true},
		{name: "ADDONS.PBO", want: true},
		{name: "game.zip", want: false},
		{name: "noext", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := archive.HasExtension(tt.name, pakExts); got != tt.want {
				t.Errorf("HasExtension(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
