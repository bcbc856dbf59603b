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

// Package sniff guesses a file extension from the first bytes of a
// resource's decoded content.
package sniff

import (
	"bytes"
	"unicode/utf8"
)

// PrefixSize is the number of decoded bytes callers should supply.
const PrefixSize = 0x1000

type signature struct {
	match func(p []byte) bool
	ext   string
}

func at(off int, magic string) func([]byte) bool {
	return func(p []byte) bool {
		return len(p) >= off+len(magic) && string(p[off:off+len(magic)]) == magic
	}
}

func riff(form string) func([]byte) bool {
	return func(p []byte) bool {
		return at(0, "RIFF")(p) && at(8, form)(p)
	}
}

// signatures are tried in order; the first match wins.
var signatures = []signature{
	{ext: "png", match: at(0, "\x89PNG\r\n\x1a\n")},
	{ext: "jpg", match: at(0, "\xff\xd8\xff")},
	{ext: "gif", match: func(p []byte) bool { return at(0, "GIF87a")(p) || at(0, "GIF89a")(p) }},
	{ext: "dds", match: at(0, "DDS ")},
	{ext: "wav", match: riff("WAVE")},
	{ext: "avi", match: riff("AVI ")},
	{ext: "ogg", match: at(0, "OggS")},
	{ext: "flac", match: at(0, "fLaC")},
	{ext: "mp3", match: at(0, "ID3")},
	{ext: "bik", match: at(0, "BIKi")},
	{ext: "zip", match: at(0, "PK\x03\x04")},
	{ext: "7z", match: at(0, "7z\xbc\xaf\x27\x1c")},
	{ext: "rar", match: at(0, "Rar!\x1a\x07")},
	{ext: "gz", match: at(0, "\x1f\x8b\x08")},
	{ext: "xz", match: at(0, "\xfd7zXZ\x00")},
	{ext: "zst", match: at(0, "\x28\xb5\x2f\xfd")},
	{ext: "chd", match: at(0, "MComprHD")},
	{ext: "pak", match: at(0, "PACK")},
	{ext: "pbo", match: at(0, "\x00sreV")},
	{ext: "wad", match: func(p []byte) bool { return at(0, "IWAD")(p) || at(0, "PWAD")(p) }},
	{ext: "nes", match: at(0, "NES\x1a")},
	{ext: "iso", match: at(0x8001, "CD001")},
	{ext: "bmp", match: isBMP},
	{ext: "gbc", match: isGBC},
	{ext: "gb", match: isGB},
	{ext: "gba", match: isGBA},
	{ext: "z64", match: n64Order(0, 1, 2, 3)},
	{ext: "v64", match: n64Order(1, 0, 3, 2)},
	{ext: "n64", match: n64Order(3, 2, 1, 0)},
	{ext: "gcm", match: at(0x1C, "\xc2\x33\x9f\x3d")},
	{ext: "md", match: isGenesis},
	{ext: "xml", match: isXML},
	{ext: "txt", match: isText},
}

// Extension returns the extension, without a dot, that prefix most likely
// belongs to, or "" when nothing matches.
func Extension(prefix []byte) string {
	for _, s := range signatures {
		if s.match(prefix) {
			return s.ext
		}
	}
	return ""
}

// Guess returns Extension(prefix), or fallback when nothing matches.
func Guess(prefix []byte, fallback string) string {
	if ext := Extension(prefix); ext != "" {
		return ext
	}
	return fallback
}

func isBMP(p []byte) bool {
	// "BM", then four reserved zero bytes after the file size.
	return len(p) >= 14 && at(0, "BM")(p) && bytes.Equal(p[6:10], []byte{0, 0, 0, 0})
}

func isXML(p []byte) bool {
	p = bytes.TrimPrefix(p, []byte("\xef\xbb\xbf"))
	return bytes.HasPrefix(bytes.TrimLeft(p, " \t\r\n"), []byte("<?xml"))
}

// isText accepts valid UTF-8 without control characters other than
// whitespace. A rune cut by the end of the prefix is tolerated.
func isText(p []byte) bool {
	if len(p) == 0 {
		return false
	}
	for i := 0; i < len(p); {
		r, size := utf8.DecodeRune(p[i:])
		if r == utf8.RuneError && size <= 1 {
			return len(p)-i < utf8.UTFMax && !utf8.FullRune(p[i:])
		}
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' && r != '\f' {
			return false
		}
		if r == 0x7F {
			return false
		}
		i += size
	}
	return true
}
