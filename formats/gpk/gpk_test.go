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

package gpk

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-gamearchive/codec"
	"github.com/ZaparooProject/go-gamearchive/format"
	"github.com/ZaparooProject/go-gamearchive/internal/formattest"
)

type packed struct {
	name     string
	head     []byte
	body     []byte
	deflated bool

	// rawLen overrides the declared decoded length when non-zero.
	rawLen int
}

func qCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var b bytes.Buffer
	_ = binary.Write(&b, binary.BigEndian, uint32(len(data))) //nolint:gosec // test data
	zw := zlib.NewWriter(&b)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return b.Bytes()
}

func build(t *testing.T, entries ...packed) []byte {
	t.Helper()
	var data, index bytes.Buffer
	data.WriteString("GPK data area\x00\x00\x00")
	for _, e := range entries {
		stored := e.body
		if e.deflated {
			stored = qCompress(t, e.body)
		}
		offset := data.Len()
		data.Write(stored)

		name := utf16.Encode([]rune(e.name))
		_ = binary.Write(&index, binary.LittleEndian, uint16(len(name))) //nolint:gosec // test data
		_ = binary.Write(&index, binary.LittleEndian, name)
		_ = binary.Write(&index, binary.LittleEndian, []uint16{1, 2, 0})
		_ = binary.Write(&index, binary.LittleEndian, []uint32{uint32(offset), uint32(len(stored))}) //nolint:gosec // test data
		if e.deflated {
			index.WriteString("DFLT")
		} else {
			index.WriteString("    ")
		}
		rawLen := len(e.body)
		if e.rawLen != 0 {
			rawLen = e.rawLen
		}
		_ = binary.Write(&index, binary.LittleEndian, uint32(rawLen)) //nolint:gosec // test data
		index.WriteByte(byte(len(e.head)))
		index.Write(e.head)
	}
	_ = binary.Write(&index, binary.LittleEndian, uint16(0))

	enc := qCompress(t, index.Bytes())
	for i := range enc {
		enc[i] ^= Key[i%len(Key)]
	}
	data.Write(enc)
	data.WriteString(IndexMagic)
	_ = binary.Write(&data, binary.LittleEndian, uint32(len(enc))) //nolint:gosec // test data
	data.WriteString(PackMagic)
	return data.Bytes()
}

func TestParse(t *testing.T) {
	t.Parallel()

	voice := bytes.Repeat([]byte("voice sample "), 200)
	data := build(t,
		packed{name: `voice\v001.ogg`, head: []byte("OggS\x00\x02"), body: voice, deflated: true},
		packed{name: "script.txt", body: []byte("hello makoto")},
		packed{name: "empty.bin"},
	)

	a := formattest.Open(t, Format{}, "sysse.gpk", data)
	assert.Equal(t, []string{"voice/v001.ogg", "script.txt", "empty.bin"}, formattest.Names(a))

	got := formattest.Read(t, a, "voice/v001.ogg")
	assert.Equal(t, append([]byte("OggS\x00\x02"), voice...), got)
	assert.Equal(t, "hello makoto", string(formattest.Read(t, a, "script.txt")))
	assert.Empty(t, formattest.Read(t, a, "empty.bin"))

	r, err := a.Find("voice/v001.ogg")
	require.NoError(t, err)
	assert.Equal(t, []codec.Tag{codec.TagNone, codec.TagQZlib}, r.Plan.Codecs())
	assert.EqualValues(t, len(voice)+6, r.Size)
	v, _ := r.Property("version")
	assert.Equal(t, "2.1", v)
}

func TestScore(t *testing.T) {
	t.Parallel()

	data := build(t, packed{name: "a", body: []byte("x")})
	full := format.PointsExtension + format.PointsMagic + 2*format.PointsField
	assert.Equal(t, full, formattest.Score(Format{}, "a.gpk", data))
	assert.Equal(t, format.PointsExtension, formattest.Score(Format{}, "a.gpk", []byte("short")))
	assert.Zero(t, formattest.Score(Format{}, "a.bin", nil))
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	good := build(t, packed{name: "a", body: []byte("x")})

	badKey := append([]byte{}, good...)
	idxStart := len(good) - TrailerSize - int(binary.LittleEndian.Uint32(good[len(good)-TrailerSize+len(IndexMagic):]))
	badKey[idxStart+5] ^= 0xff

	badLen := append([]byte{}, good...)
	binary.LittleEndian.PutUint32(badLen[len(good)-TrailerSize+len(IndexMagic):], uint32(len(good)))

	shrunk := build(t, packed{name: "voice.ogg", body: noise(4096), deflated: true, rawLen: 16})

	for name, data := range map[string][]byte{
		"corrupt index": badKey,
		"inflated size": shrunk,
		"index length":  badLen,
		"no trailer":    good[:len(good)-1],
		"tiny":          []byte("STK"),
	} {
		_, err := formattest.Parse(Format{}, "a.gpk", data)
		require.Error(t, err, name)
		assert.True(t, format.IsMismatch(err), "%s: %v", name, err)
	}
}

func TestQZlibBound(t *testing.T) {
	t.Parallel()

	small := []byte("x")
	assert.LessOrEqual(t, int64(len(qCompress(t, small))), qzlibBound(int64(len(small))))

	random := noise(1 << 16)
	assert.LessOrEqual(t, int64(len(qCompress(t, random))), qzlibBound(int64(len(random))))
}

// noise returns n incompressible bytes from a fixed xorshift sequence.
func noise(n int) []byte {
	out := make([]byte, n)
	seed := uint32(2463534242)
	for i := range out {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		out[i] = byte(seed)
	}
	return out
}
