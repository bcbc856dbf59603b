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

package rar

import (
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-gamearchive/format"
	"github.com/ZaparooProject/go-gamearchive/internal/formattest"
)

// block appends a RAR 1.5 block whose CRC covers everything after the
// CRC field.
func block(out []byte, typ byte, flags uint16, body []byte) []byte {
	h := []byte{typ}
	h = binary.LittleEndian.AppendUint16(h, flags)
	h = binary.LittleEndian.AppendUint16(h, uint16(7+len(body)))
	h = append(h, body...)
	out = binary.LittleEndian.AppendUint16(out, uint16(crc32.ChecksumIEEE(h)))
	return append(out, h...)
}

// storedRAR builds an archive of stored files. Names ending in "/" become
// directory entries.
func storedRAR(files map[string]string, order []string) []byte {
	out := []byte(Magic15)
	out = block(out, 0x73, 0, make([]byte, 6))
	for _, name := range order {
		data := files[name]
		flags := uint16(0x8000)
		if name[len(name)-1] == '/' {
			flags |= 0x00E0
			name = name[:len(name)-1]
		}
		le := binary.LittleEndian
		var body []byte
		body = le.AppendUint32(body, uint32(len(data)))
		body = le.AppendUint32(body, uint32(len(data)))
		body = append(body, 0) // MS-DOS host
		body = le.AppendUint32(body, crc32.ChecksumIEEE([]byte(data)))
		body = le.AppendUint32(body, 0x58A16000) // 2024-05-01 12:00
		body = append(body, 20, 0x30)            // version, store
		body = le.AppendUint16(body, uint16(len(name)))
		body = le.AppendUint32(body, 0x20)
		body = append(body, name...)
		out = block(out, 0x74, flags, body)
		out = append(out, data...)
	}
	return out
}

func TestParse(t *testing.T) {
	t.Parallel()

	data := storedRAR(map[string]string{
		"readme.txt":    "first member",
		"disc/":         "",
		"disc/game.iso": "second member",
	}, []string{"readme.txt", "disc/", "disc/game.iso"})

	a := formattest.Open(t, Format{}, "set.rar", data)
	assert.Equal(t, []string{"readme.txt", "disc/game.iso"}, formattest.Names(a))
	assert.Equal(t, "2", a.Meta["entries"])

	assert.Equal(t, "second member", string(formattest.Read(t, a, "disc/game.iso")))
	assert.Equal(t, "first member", string(formattest.Read(t, a, "readme.txt")))

	r, err := a.Find("readme.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(len("first member")), r.Size)
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	_, err := formattest.Parse(Format{}, "bad.rar", []byte("not a rar archive at all"))
	require.Error(t, err)
	assert.True(t, format.IsMismatch(err))
}

func TestScore(t *testing.T) {
	t.Parallel()

	full := format.PointsExtension + format.PointsMagic
	assert.Equal(t, full, formattest.Score(Format{}, "a.rar", []byte(Magic15)))
	assert.Equal(t, full, formattest.Score(Format{}, "a.rar", []byte(Magic50)))
	assert.Equal(t, format.PointsMagic, formattest.Score(Format{}, "a.r00", []byte(Magic50)))
	assert.Equal(t, format.PointsExtension, formattest.Score(Format{}, "a.rar", []byte("PK")))
}
