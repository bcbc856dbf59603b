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

// Package gpk reads GPK archives used by Overflow titles such as School Days.
//
// The index sits before a 32-byte trailer and is XOR obfuscated with a
// fixed 16-byte key over a Qt qCompress stream. Entries marked "DFLT"
// store a raw header in the index and a qCompress body in the archive.
package gpk

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/ZaparooProject/go-gamearchive/archive"
	"github.com/ZaparooProject/go-gamearchive/codec"
	"github.com/ZaparooProject/go-gamearchive/format"
	"github.com/ZaparooProject/go-gamearchive/plan"
	"github.com/ZaparooProject/go-gamearchive/source"
)

// Trailer layout.
const (
	IndexMagic   = "STKFile0PIDX"
	PackMagic    = "STKFile0PACKFILE"
	TrailerSize  = len(IndexMagic) + 4 + len(PackMagic)
	entryHeadLen = 23
)

// Key is the index cipher key.
var Key = []byte{0x82, 0xEE, 0x1D, 0xB3, 0x57, 0xE9, 0x2C, 0xC2, 0x2F, 0x54, 0x7B, 0x10, 0x4C, 0x9A, 0x75, 0x49}

// Format is the GPK descriptor.
type Format struct{}

var _ format.Descriptor = Format{}

// Info implements format.Descriptor.
func (Format) Info() format.Info {
	return format.Info{
		Name:        "GPK",
		Description: "Overflow GPK package",
		Extensions:  []string{".gpk"},
		Platforms:   []string{"School Days", "Summer Days", "Cross Days"},
		Codecs:      []codec.Tag{codec.TagXOR, codec.TagQZlib},
	}
}

// Score implements format.Descriptor.
func (f Format) Score(p *format.Probe) int {
	var ev format.Evidence
	ev.Extension(p, f.Info().Extensions)
	tail := p.Size() - int64(TrailerSize)
	if !ev.Magic(p.HasMagic(tail+int64(len(IndexMagic))+4, PackMagic)) {
		return ev.Score()
	}
	ev.Field(p.HasMagic(tail, IndexMagic))
	if n, ok := p.Uint32LE(tail + int64(len(IndexMagic))); ok {
		ev.Field(p.Limits().CheckLength(int64(n), tail) == nil)
	}
	return ev.Score()
}

// Parse implements format.Descriptor.
func (Format) Parse(c *format.Context) (*format.Result, error) {
	size := c.Size()
	tail := size - int64(TrailerSize)
	if tail < 0 {
		return nil, format.Mismatch("too small for a trailer")
	}
	cur := source.NewCursorAt(c.Source, size, tail)
	sig, err := cur.ReadBytes(len(IndexMagic))
	if err != nil || string(sig) != IndexMagic {
		return nil, format.Mismatch("missing %s", IndexMagic)
	}
	indexLen, err := cur.Uint32LE()
	if err != nil {
		return nil, format.Mismatch("short trailer")
	}
	pack, err := cur.ReadBytes(len(PackMagic))
	if err != nil || string(pack) != PackMagic {
		return nil, format.Mismatch("missing %s", PackMagic)
	}

	limits := c.Limits()
	if err := limits.CheckLength(int64(indexLen), tail); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	index, err := readIndex(c, tail-int64(indexLen), int64(indexLen))
	if err != nil {
		return nil, err
	}

	qzlb, err := c.Codec(codec.TagQZlib)
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}
	utf16 := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

	var resources []*archive.Resource
	r := source.NewCursorAt(source.NewMemory("index", index), int64(len(index)), 0)
	for r.Remaining() > 0 {
		nameLen, err := r.Uint16LE()
		if err != nil || nameLen == 0 {
			break
		}
		raw, err := r.ReadBytes(int(nameLen) * 2)
		if err != nil {
			return nil, format.Mismatch("index entry %d name: %v", len(resources), err)
		}
		nameBytes, err := utf16.Bytes(raw)
		if err != nil {
			return nil, format.Mismatch("index entry %d name: %v", len(resources), err)
		}
		name := strings.ReplaceAll(string(nameBytes), `\`, "/")
		if err := limits.CheckFilename(name); err != nil {
			return nil, fmt.Errorf("index entry %d: %w", len(resources), err)
		}

		e, err := readEntry(r)
		if err != nil {
			return nil, format.Mismatch("index entry %s: %v", name, err)
		}
		if err := limits.CheckRange(int64(e.offset), int64(e.compLen), tail); err != nil {
			return nil, fmt.Errorf("entry %s: %w", name, err)
		}
		if e.deflated && int64(e.compLen) > qzlibBound(int64(e.rawLen)) {
			return nil, format.Mismatch("entry %s: %d stored bytes for %d decoded bytes", name, e.compLen, e.rawLen)
		}
		if err := limits.CheckNumEntries(int64(len(resources) + 1)); err != nil {
			return nil, err //nolint:wrapcheck // bounds error names the check
		}

		var segs []plan.Segment
		if len(e.head) > 0 {
			headID := "gpk-head:" + strconv.Itoa(len(resources))
			c.Files.Adopt(headID, source.NewMemory(headID, e.head))
			segs = append(segs, plan.Segment{Source: headID, Length: int64(len(e.head)), Size: int64(len(e.head))})
		}
		if e.deflated {
			segs = append(segs, plan.Segment{Source: c.ID, Offset: int64(e.offset), Length: int64(e.compLen), Size: int64(e.rawLen), Codec: qzlb})
		} else {
			segs = append(segs, plan.Segment{Source: c.ID, Offset: int64(e.offset), Length: int64(e.compLen), Size: int64(e.compLen)})
		}

		res := archive.NewResource(name, plan.Variable(segs...))
		res.SetProperty("version", fmt.Sprintf("%d.%d", e.version, e.subVersion))
		resources = append(resources, res)
		c.Progress(len(resources), 0)
	}

	return &format.Result{
		Meta:      map[string]string{"index_size": strconv.Itoa(len(index))},
		Resources: resources,
	}, nil
}

type entry struct {
	head       []byte
	subVersion uint16
	version    uint16
	offset     uint32
	compLen    uint32
	rawLen     uint32
	deflated   bool
}

func readEntry(r *source.Cursor) (entry, error) {
	var e entry
	b, err := r.ReadBytes(entryHeadLen)
	if err != nil {
		return e, err //nolint:wrapcheck // wrapped by caller
	}
	e.subVersion = binary.LittleEndian.Uint16(b[0:])
	e.version = binary.LittleEndian.Uint16(b[2:])
	e.offset = binary.LittleEndian.Uint32(b[6:])
	e.compLen = binary.LittleEndian.Uint32(b[10:])
	e.deflated = string(b[14:18]) == "DFLT"
	e.rawLen = binary.LittleEndian.Uint32(b[18:])
	if headLen := int(b[22]); headLen > 0 {
		if e.head, err = r.ReadBytes(headLen); err != nil {
			return e, err //nolint:wrapcheck // wrapped by caller
		}
	}
	return e, nil
}

// readIndex decodes the index: the XOR layer is undone first and its whole
// output is then inflated.
func readIndex(c *format.Context, off, length int64) ([]byte, error) {
	xor, err := codec.NewXOR(Key)
	if err != nil {
		return nil, err //nolint:wrapcheck // constant key
	}
	qzlb, err := c.Codec(codec.TagQZlib)
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}

	p := plan.Chain(plan.Single(c.ID, off, length, length, xor), qzlb, -1)
	rc := p.Open(c.Files)
	defer func() { _ = rc.Close() }()

	index, err := io.ReadAll(rc)
	if err != nil {
		return nil, format.Mismatch("decode index: %v", err)
	}
	return index, nil
}

// qzlibBound is the largest length-prefixed zlib stream an encoder emits
// for n input bytes: zlib's compressBound plus the 4-byte length prefix.
func qzlibBound(n int64) int64 {
	return n + n>>12 + n>>14 + n>>25 + 13 + 4
}
