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

package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-gamearchive/names"
)

// writePak writes a Quake PAK holding files in order and returns its path.
func writePak(t *testing.T, files ...[2]string) string {
	t.Helper()

	out := make([]byte, 12)
	copy(out, "PACK")
	var dir []byte
	for _, f := range files {
		var e [64]byte
		copy(e[:56], f[0])
		binary.LittleEndian.PutUint32(e[56:], uint32(len(out)))  //nolint:gosec // test data
		binary.LittleEndian.PutUint32(e[60:], uint32(len(f[1]))) //nolint:gosec // test data
		dir = append(dir, e[:]...)
		out = append(out, f[1]...)
	}
	binary.LittleEndian.PutUint32(out[4:], uint32(len(out))) //nolint:gosec // test data
	binary.LittleEndian.PutUint32(out[8:], uint32(len(dir))) //nolint:gosec // test data
	out = append(out, dir...)

	path := filepath.Join(t.TempDir(), "pak0.pak")
	require.NoError(t, os.WriteFile(path, out, 0o600))
	return path
}

func samplePak(t *testing.T) string {
	t.Helper()
	return writePak(t,
		[2]string{"maps/e1m1.bsp", "BSP29 level data"},
		[2]string{"progs.dat", "qc"},
	)
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestVersion(t *testing.T) {
	t.Parallel()

	code, out, _ := runCLI(t, "version")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "gamearc version "+appVersion)
}

func TestHelp(t *testing.T) {
	t.Parallel()

	code, out, _ := runCLI(t, "--help")
	require.Equal(t, 0, code)
	for _, cmd := range []string{"formats", "identify", "list", "cat", "extract", "names"} {
		assert.Contains(t, out, cmd)
	}
}

func TestBadArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"bogus"}},
		{"list without file", []string{"list"}},
		{"missing file", []string{"list", filepath.Join(t.TempDir(), "missing.pak")}},
		{"names without output", []string{"names", "list.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, _, errOut := runCLI(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, errOut, "Error: ")
		})
	}
}

func TestFormats(t *testing.T) {
	t.Parallel()

	code, out, _ := runCLI(t, "formats")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "PAK")
	assert.Contains(t, out, "CHD")
	assert.Contains(t, out, ".pak")
}

func TestIdentify(t *testing.T) {
	t.Parallel()

	path := samplePak(t)
	code, out, _ := runCLI(t, "identify", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, path)
	assert.Contains(t, out, "PAK")
}

func TestList(t *testing.T) {
	t.Parallel()

	path := samplePak(t)

	code, out, _ := runCLI(t, "list", "--bytes", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "format: PAK")
	assert.Contains(t, out, "maps/e1m1.bsp")
	assert.Contains(t, out, "progs.dat")
	assert.Contains(t, out, "2 resources, 18")
}

func TestListFormatFlag(t *testing.T) {
	t.Parallel()

	path := samplePak(t)

	code, _, errOut := runCLI(t, "--format", "zip", "list", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "as zip")

	code, _, errOut = runCLI(t, "--format", "nope", "list", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "have chd")

	code, out, _ := runCLI(t, "--format", "pak", "list", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "progs.dat")
}

func TestCat(t *testing.T) {
	t.Parallel()

	path := samplePak(t)

	code, out, _ := runCLI(t, "cat", path, "maps/e1m1.bsp")
	require.Equal(t, 0, code)
	assert.Equal(t, "BSP29 level data", out)

	code, out, _ = runCLI(t, "cat", path+"/progs.dat")
	require.Equal(t, 0, code)
	assert.Equal(t, "qc", out)

	code, _, _ = runCLI(t, "cat", path)
	assert.Equal(t, 1, code)

	code, _, _ = runCLI(t, "cat", path, "missing.txt")
	assert.Equal(t, 1, code)
}

func TestExtract(t *testing.T) {
	t.Parallel()

	path := samplePak(t)
	dir := filepath.Join(t.TempDir(), "out")

	code, out, _ := runCLI(t, "extract", "-o", dir, "--exclude", "*.dat", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "extracted 1 files")
	assert.Contains(t, out, "filtered 1 resources")

	data, err := os.ReadFile(filepath.Join(dir, "maps", "e1m1.bsp"))
	require.NoError(t, err)
	assert.Equal(t, "BSP29 level data", string(data))
	assert.NoFileExists(t, filepath.Join(dir, "progs.dat"))

	code, out, _ = runCLI(t, "extract", "-o", dir, path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "skipped 1 existing files")
}

func TestNames(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	list := filepath.Join(tmp, "files.list")
	require.NoError(t, os.WriteFile(list, []byte("GAMEDATA\\CARS\\CAR.VIV\nREADME.TXT\n"), 0o600))
	table := filepath.Join(tmp, "files.gob.gz")

	code, out, _ := runCLI(t, "names", "-o", table, list)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "wrote 2 names")

	loaded, err := names.LoadFile(table, nil)
	require.NoError(t, err)
	name, ok := loaded.Lookup(names.NFSHash("README.TXT"))
	require.True(t, ok)
	assert.Equal(t, "README.TXT", name)

	code, _, errOut := runCLI(t, "names", "--hash", "md5", "-o", table, list)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown hasher")
}

func TestDefaultOutputDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"/games/pak0.pak", "pak0"},
		{"disc.chd", "disc"},
		{"s3://bucket/roms/game.zip", "game"},
		{".pak", ".pak.out"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, defaultOutputDir(tt.in), tt.in)
	}
}
