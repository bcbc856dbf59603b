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

// Package chd reads MAME CHD (Compressed Hunks of Data) images, versions 3
// to 5.
//
// An image decodes to one logical stream exposed as a single resource. Each
// hunk of the stream becomes one plan segment carrying the codec named by
// the hunk map. Hunks stored in a parent image cannot be resolved and fail
// when read.
package chd

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ZaparooProject/go-gamearchive/archive"
	"github.com/ZaparooProject/go-gamearchive/codec"
	"github.com/ZaparooProject/go-gamearchive/format"
	"github.com/ZaparooProject/go-gamearchive/plan"
	"github.com/ZaparooProject/go-gamearchive/source"
	"github.com/ZaparooProject/go-gamearchive/validate"
)

// Format is the CHD descriptor.
type Format struct{}

var _ format.Descriptor = Format{}

// Info implements format.Descriptor.
func (Format) Info() format.Info {
	return format.Info{
		Name:        "CHD",
		Description: "MAME compressed hunks of data disc image",
		Extensions:  []string{".chd"},
		Platforms:   []string{"Arcade", "Sega CD", "Sega Saturn", "Sega Dreamcast", "PlayStation", "PlayStation 2", "PC Engine CD"},
		Codecs: []codec.Tag{
			codec.TagNone, codec.TagDeflate, codec.TagRawLZMA, codec.TagZstd, codec.TagFLAC,
			codec.Tag(CodecCDZlib), codec.Tag(CodecCDLZMA), codec.Tag(CodecCDZstd), codec.Tag(CodecCDFLAC),
		},
	}
}

// Score implements format.Descriptor.
func (Format) Score(p *format.Probe) int {
	var ev format.Evidence
	ev.Extension(p, []string{".chd"})
	if !ev.Magic(p.HasMagic(0, Magic)) {
		return ev.Score()
	}
	if v, ok := p.Uint32BE(12); ok {
		ev.Field(v >= 3 && v <= 5)
	}
	return ev.Score()
}

// Parse implements format.Descriptor.
func (Format) Parse(c *format.Context) (*format.Result, error) {
	h, err := parseHeader(c.Source, c.Size())
	if err != nil {
		return nil, err
	}
	entries, err := readMap(c.Source, h, c.Limits())
	if err != nil {
		return nil, err
	}

	meta := map[string]string{
		"version":       strconv.FormatUint(uint64(h.Version), 10),
		"logical_bytes": strconv.FormatUint(h.LogicalBytes, 10),
		"hunk_bytes":    strconv.FormatUint(uint64(h.HunkBytes), 10),
		"unit_bytes":    strconv.Itoa(h.unitBytes()),
		"sha1":          hex.EncodeToString(h.SHA1[:]),
	}
	if h.RawSHA1 != [20]byte{} {
		meta["raw_sha1"] = hex.EncodeToString(h.RawSHA1[:])
	}
	if h.HasParent() {
		meta["parent_sha1"] = hex.EncodeToString(h.ParentSHA1[:])
	}
	if names := compressorNames(h); names != "" {
		meta["compressors"] = names
	}

	tracks := readTracks(c, h)
	if len(tracks) > 0 {
		meta["tracks"] = strconv.Itoa(len(tracks))
	}

	if len(entries) == 0 {
		return &format.Result{Meta: meta}, nil
	}
	b := &planBuilder{ctx: c, header: h, entries: entries, codecs: hunkCodecs(h)}
	p, err := b.build()
	if err != nil {
		return nil, err
	}

	res := archive.NewResource(imageName(c.Path), p)
	res.SetProperty("hunks", strconv.Itoa(len(entries)))
	for _, t := range tracks {
		res.SetProperty(fmt.Sprintf("track.%02d", t.Number), t.String())
	}
	return &format.Result{Meta: meta, Resources: []*archive.Resource{res}}, nil
}

// readTracks parses the track table. A damaged metadata chain only costs
// the track listing.
func readTracks(c *format.Context, h *Header) []Track {
	if h.MetaOffset == 0 {
		return nil
	}
	entries, err := readMetadata(c.Source, h.MetaOffset)
	if err == nil {
		var tracks []Track
		if tracks, err = parseTracks(entries); err == nil {
			return tracks
		}
	}
	c.Logger.Warn("skipping CHD metadata", "path", c.Path, "error", err)
	return nil
}

// imageName names the logical stream after the input file.
func imageName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if stem == "" || stem == "." {
		stem = "image"
	}
	return stem + ".bin"
}

func compressorNames(h *Header) string {
	var out []string
	for _, tag := range h.Compressors {
		if tag != 0 {
			out = append(out, codec.Tag(tag).String())
		}
	}
	return strings.Join(out, ",")
}

// planBuilder turns hunk map entries into plan segments.
type planBuilder struct {
	ctx     *format.Context
	header  *Header
	codecs  [4]codec.Codec
	entries []hunkEntry
	segs    []plan.Segment
	minis   map[uint64]string
	zero    string
}

func (b *planBuilder) build() (*plan.Plan, error) {
	hunk := int64(b.header.HunkBytes)
	logical := int64(b.header.LogicalBytes) //nolint:gosec // bounded by the hunk count check
	b.segs = make([]plan.Segment, len(b.entries))
	for i, e := range b.entries {
		size := min(hunk, logical-int64(i)*hunk)
		if size <= 0 {
			return nil, fmt.Errorf("hunk %d: %w", i, &validate.BoundsError{Check: "logical size", Value: int64(i) * hunk, Bound: logical})
		}
		seg, err := b.segment(i, e, size)
		if err != nil {
			return nil, fmt.Errorf("hunk %d: %w", i, err)
		}
		b.segs[i] = seg
		if i%1024 == 0 {
			b.ctx.Progress(i, len(b.entries))
		}
	}
	b.ctx.Progress(len(b.entries), len(b.entries))
	return plan.Variable(b.segs...), nil
}

func (b *planBuilder) segment(i int, e hunkEntry, size int64) (plan.Segment, error) {
	c := b.ctx
	switch e.kind {
	case compCodec0, compCodec1, compCodec2, compCodec3:
		cd := b.codecs[e.kind]
		if cd == nil {
			return plan.Segment{}, format.Mismatch("codec slot %d is empty", e.kind)
		}
		if err := c.Limits().CheckRange(int64(e.offset), int64(e.length), c.Size()); err != nil { //nolint:gosec // checked as a range
			return plan.Segment{}, err //nolint:wrapcheck // bounds error names the check
		}
		return plan.Segment{Source: c.ID, Offset: int64(e.offset), Length: int64(e.length), Size: size, Codec: cd}, nil //nolint:gosec // checked above

	case compNone:
		if err := c.Limits().CheckRange(int64(e.offset), size, c.Size()); err != nil { //nolint:gosec // checked as a range
			return plan.Segment{}, err //nolint:wrapcheck // bounds error names the check
		}
		return plan.Segment{Source: c.ID, Offset: int64(e.offset), Length: size, Size: size}, nil //nolint:gosec // checked above

	case compSelf:
		// References always point backwards, so the target is already built.
		if e.offset >= uint64(i) { //nolint:gosec // i is a hunk index
			return plan.Segment{}, &validate.BoundsError{Check: "self reference", Value: int64(e.offset), Bound: int64(i)} //nolint:gosec // reported only
		}
		seg := b.segs[e.offset]
		if seg.Codec == nil {
			seg.Length = min(seg.Length, size)
		}
		seg.Size = size
		return seg, nil

	case compParent:
		return plan.Segment{Source: c.ID, Size: size, Codec: codec.Unsupported("CHD parent hunk")}, nil

	case kindMini:
		id, ok := b.minis[e.offset]
		if !ok {
			id = fmt.Sprintf("chd-mini:%016x", e.offset)
			if b.minis == nil {
				b.minis = make(map[uint64]string)
			}
			b.minis[e.offset] = id
			hunk := int(b.header.HunkBytes)
			value := e.offset
			c.Files.Adopt(id, source.NewLazy(id, int64(hunk), func() ([]byte, error) {
				var word [8]byte
				binary.BigEndian.PutUint64(word[:], value)
				return bytes.Repeat(word[:], (hunk+7)/8)[:hunk], nil
			}))
		}
		return plan.Segment{Source: id, Length: size, Size: size}, nil

	case kindZero:
		if b.zero == "" {
			b.zero = "chd-zero"
			hunk := int(b.header.HunkBytes)
			c.Files.Adopt(b.zero, source.NewLazy(b.zero, int64(hunk), func() ([]byte, error) {
				return make([]byte, hunk), nil
			}))
		}
		return plan.Segment{Source: b.zero, Length: size, Size: size}, nil
	}
	return plan.Segment{}, format.Mismatch("map entry kind %d", e.kind)
}
