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

package sniff

import "bytes"

const (
	gbLogoOffset  = 0x104
	gbCGBFlag     = 0x143
	gbaLogoOffset = 0x04
)

// Nintendo logo bitmap present in every licensed Game Boy cartridge header.
var gbNintendoLogo = []byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B,
	0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
	0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC,
	0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// Compressed Nintendo logo in Game Boy Advance cartridge headers.
var gbaNintendoLogo = []byte{
	0x24, 0xFF, 0xAE, 0x51, 0x69, 0x9A, 0xA2, 0x21, 0x3D, 0x84, 0x82, 0x0A,
	0x84, 0xE4, 0x09, 0xAD, 0x11, 0x24, 0x8B, 0x98, 0xC0, 0x81, 0x7F, 0x21,
	0xA3, 0x52, 0xBE, 0x19, 0x93, 0x09, 0xCE, 0x20, 0x10, 0x46, 0x4A, 0x4A,
	0xF8, 0x27, 0x31, 0xEC, 0x58, 0xC7, 0xE8, 0x33, 0x82, 0xE3, 0xCE, 0xBF,
	0x85, 0xF4, 0xDF, 0x94, 0xCE, 0x4B, 0x09, 0xC1, 0x94, 0x56, 0x8A, 0xC0,
	0x13, 0x72, 0xA7, 0xFC, 0x9F, 0x84, 0x4D, 0x73, 0xA3, 0xCA, 0x9A, 0x61,
	0x58, 0x97, 0xA3, 0x27, 0xFC, 0x03, 0x98, 0x76, 0x23, 0x1D, 0xC7, 0x61,
	0x03, 0x04, 0xAE, 0x56, 0xBF, 0x38, 0x84, 0x00, 0x40, 0xA7, 0x0E, 0xFD,
	0xFF, 0x52, 0xFE, 0x03, 0x6F, 0x95, 0x30, 0xF1, 0x97, 0xFB, 0xC0, 0x85,
	0x60, 0xD6, 0x80, 0x25, 0xA9, 0x63, 0xBE, 0x03, 0x01, 0x4E, 0x38, 0xE2,
	0xF9, 0xA2, 0x34, 0xFF, 0xBB, 0x3E, 0x03, 0x44, 0x78, 0x00, 0x90, 0xCB,
	0x88, 0x11, 0x3A, 0x94, 0x65, 0xC0, 0x7C, 0x63, 0x87, 0xF0, 0x3C, 0xAF,
	0xD6, 0x25, 0xE4, 0x8B, 0x38, 0x0A, 0xAC, 0x72, 0x21, 0xD4, 0xF8, 0x07,
}

// First word of a big-endian N64 ROM.
var n64FirstWord = []byte{0x80, 0x37, 0x12, 0x40}

// Genesis system strings searched for between 0x100 and 0x200.
var genesisMagicWords = [][]byte{
	[]byte("SEGA GENESIS"),
	[]byte("SEGA MEGA DRIVE"),
	[]byte("SEGA 32X"),
	[]byte("SEGA EVERDRIVE"),
	[]byte("SEGA SSF"),
	[]byte("SEGA MEGAWIFI"),
	[]byte("SEGA PICO"),
	[]byte("SEGA TERA68K"),
	[]byte("SEGA TERA286"),
}

func isGB(p []byte) bool {
	end := gbLogoOffset + len(gbNintendoLogo)
	return len(p) >= end && bytes.Equal(p[gbLogoOffset:end], gbNintendoLogo)
}

func isGBC(p []byte) bool {
	return isGB(p) && len(p) > gbCGBFlag && p[gbCGBFlag]&0x80 != 0
}

func isGBA(p []byte) bool {
	end := gbaLogoOffset + len(gbaNintendoLogo)
	return len(p) >= end && bytes.Equal(p[gbaLogoOffset:end], gbaNintendoLogo)
}

// n64Order matches the first word after reordering its bytes by order.
func n64Order(order ...int) func([]byte) bool {
	return func(p []byte) bool {
		if len(p) < 4 {
			return false
		}
		for i, src := range order {
			if p[src] != n64FirstWord[i] {
				return false
			}
		}
		return true
	}
}

func isGenesis(p []byte) bool {
	if len(p) < 0x200 {
		return false
	}
	window := p[0x100:0x200]
	for _, word := range genesisMagicWords {
		if bytes.Contains(window, word) {
			return true
		}
	}
	return false
}
