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

package sniff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ZaparooProject/go-gamearchive/sniff"
)

func withAt(size, off int, data []byte) []byte {
	out := make([]byte, size)
	copy(out[off:], data)
	return out
}

func TestExtension(t *testing.T) {
	t.Parallel()

	gbLogo := []byte{
		0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B,
		0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
		0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
		0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
		0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC,
		0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
	}
	gb := withAt(0x150, 0x104, gbLogo)
	gbc := withAt(0x150, 0x104, gbLogo)
	gbc[0x143] = 0x80

	tests := []struct {
		name   string
		prefix []byte
		want   string
	}{
		{name: "png", prefix: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR"), want: "png"},
		{name: "jpeg", prefix: []byte{0xFF, 0xD8, 0xFF, 0xE0}, want: "jpg"},
		{name: "gif", prefix: []byte("GIF89a\x01\x00"), want: "gif"},
		{name: "wave", prefix: []byte("RIFF\x24\x00\x00\x00WAVEfmt "), want: "wav"},
		{name: "avi", prefix: []byte("RIFF\x24\x00\x00\x00AVI LIST"), want: "avi"},
		{name: "riff other", prefix: []byte("RIFF\x24\x00\x00\x00WEBPVP8 "), want: ""},
		{name: "ogg", prefix: []byte("OggS\x00\x02"), want: "ogg"},
		{name: "dds", prefix: []byte("DDS |\x00\x00\x00"), want: "dds"},
		{name: "zip", prefix: []byte("PK\x03\x04\x14\x00"), want: "zip"},
		{name: "chd", prefix: []byte("MComprHD\x00\x00\x00\x7c"), want: "chd"},
		{name: "pak", prefix: []byte("PACK\x0c\x00\x00\x00"), want: "pak"},
		{name: "bmp", prefix: []byte("BM\x36\x00\x0c\x00\x00\x00\x00\x00\x36\x00\x00\x00"), want: "bmp"},
		{name: "nes", prefix: []byte("NES\x1a\x02\x01"), want: "nes"},
		{name: "gb", prefix: gb, want: "gb"},
		{name: "gbc", prefix: gbc, want: "gbc"},
		{name: "n64 big endian", prefix: []byte{0x80, 0x37, 0x12, 0x40, 0, 0}, want: "z64"},
		{name: "n64 byte swapped", prefix: []byte{0x37, 0x80, 0x40, 0x12, 0, 0}, want: "v64"},
		{name: "n64 little endian", prefix: []byte{0x40, 0x12, 0x37, 0x80, 0, 0}, want: "n64"},
		{name: "gamecube", prefix: withAt(0x40, 0x1C, []byte{0xC2, 0x33, 0x9F, 0x3D}), want: "gcm"},
		{name: "genesis", prefix: withAt(0x200, 0x100, []byte("SEGA MEGA DRIVE (C)SEGA 1991")), want: "md"},
		{name: "iso", prefix: withAt(0x8010, 0x8001, []byte("CD001")), want: "iso"},
		{name: "xml", prefix: []byte("\xef\xbb\xbf<?xml version=\"1.0\"?>"), want: "xml"},
		{name: "text", prefix: []byte("[General]\r\nName=Test\r\n"), want: "txt"},
		{name: "utf8 text cut mid rune", prefix: []byte("caf\xc3"), want: "txt"},
		{name: "binary", prefix: []byte{0x00, 0x01, 0x02, 0x03}, want: ""},
		{name: "invalid utf8", prefix: []byte("abc\xffdef"), want: ""},
		{name: "empty", prefix: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sniff.Extension(tt.prefix))
		})
	}
}

func TestGuess(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ogg", sniff.Guess([]byte("OggS"), "bin"))
	assert.Equal(t, "bin", sniff.Guess([]byte{0, 1, 2}, "bin"))
}

func FuzzExtension(f *testing.F) {
	f.Add([]byte("PK\x03\x04"))
	f.Add([]byte{})
	f.Add([]byte("RIFF"))

	f.Fuzz(func(t *testing.T, data []byte) {
		first := sniff.Extension(data)
		if again := sniff.Extension(data); again != first {
			t.Fatalf("Extension not deterministic: %q then %q", first, again)
		}
	})
}
