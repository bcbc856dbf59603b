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

// Package pbo reads Bohemia Interactive PBO archives.
//
// A PBO starts with a "Vers" record followed by NUL-terminated key/value
// header pairs, then a directory of entry records closed by an all-zero
// record. Entry data follows the directory in directory order. Entries
// marked "Cprs" are LZSS compressed.
package pbo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZaparooProject/go-gamearchive/archive"
	"github.com/ZaparooProject/go-gamearchive/codec"
	"github.com/ZaparooProject/go-gamearchive/format"
	"github.com/ZaparooProject/go-gamearchive/plan"
	"github.com/ZaparooProject/go-gamearchive/source"
)

// Entry mime markers, read little-endian.
const (
	MimeHeader   uint32 = 0x56657273 // "Vers"
	MimeCompress uint32 = 0x43707273 // "Cprs"
	MimeEncoded  uint32 = 0x456e6372 // "Encr"
)

const (
	recordFields = 20
	maxNameLen   = 512
	trailerSize  = 21
)

// Format is the PBO descriptor.
type Format struct{}

var _ format.Descriptor = Format{}

// Info implements format.Descriptor.
func (Format) Info() format.Info {
	return format.Info{
		Name:        "PBO",
		Description: "Bohemia Interactive packed bank of files",
		Extensions:  []string{".pbo", ".xbo", ".ebo"},
		Platforms:   []string{"Operation Flashpoint", "Arma", "DayZ"},
		Codecs:      []codec.Tag{codec.TagLZSS},
	}
}

// Score implements format.Descriptor.
func (f Format) Score(p *format.Probe) int {
	var ev format.Evidence
	ev.Extension(p, f.Info().Extensions)
	first, ok := p.Uint8(0)
	if !ok || first != 0 {
		return ev.Score()
	}
	mime, ok := p.Uint32LE(1)
	if !ev.Magic(ok && mime == MimeHeader) {
		return ev.Score()
	}
	if size, ok := p.Uint32LE(17); ok {
		ev.Field(size == 0)
	}
	return ev.Score()
}

type record struct {
	name         string
	mime         uint32
	originalSize uint32
	timestamp    uint32
	dataSize     uint32
}

func (r record) terminator() bool {
	return r.name == "" && r.mime == 0 && r.originalSize == 0 && r.timestamp == 0 && r.dataSize == 0
}

func (r record) compressed() bool {
	return r.mime == MimeCompress || (r.originalSize != 0 && r.dataSize < r.originalSize)
}

func readRecord(cur *source.Cursor) (record, error) {
	var r record
	name, err := cur.CString(maxNameLen + 1)
	if err != nil {
		return r, err //nolint:wrapcheck // wrapped by caller
	}
	r.name = name
	var fields [5]uint32
	for i := range fields {
		if fields[i], err = cur.Uint32LE(); err != nil {
			return r, err //nolint:wrapcheck // wrapped by caller
		}
	}
	r.mime, r.originalSize, r.timestamp, r.dataSize = fields[0], fields[1], fields[3], fields[4]
	return r, nil
}

// Parse implements format.Descriptor.
func (Format) Parse(c *format.Context) (*format.Result, error) {
	cur := c.Cursor()
	head, err := readRecord(cur)
	if err != nil || head.name != "" || head.mime != MimeHeader {
		return nil, format.Mismatch("missing Vers header record")
	}

	meta := make(map[string]string)
	for {
		key, err := cur.CString(maxNameLen + 1)
		if err != nil {
			return nil, format.Mismatch("header pairs: %v", err)
		}
		if key == "" {
			break
		}
		value, err := cur.CString(maxNameLen + 1)
		if err != nil {
			return nil, format.Mismatch("header value for %q: %v", key, err)
		}
		meta[key] = value
	}

	limits := c.Limits()
	var records []record
	for {
		r, err := readRecord(cur)
		if err != nil {
			return nil, format.Mismatch("directory: %v", err)
		}
		if r.terminator() {
			break
		}
		if err := limits.CheckNumEntries(int64(len(records) + 1)); err != nil {
			return nil, err //nolint:wrapcheck // bounds error names the check
		}
		if err := limits.CheckFilename(r.name); err != nil {
			return nil, fmt.Errorf("entry %d: %w", len(records), err)
		}
		if r.mime == MimeCompress && r.originalSize < r.dataSize {
			return nil, format.Mismatch("%s: decompressed size %d below stored size %d", r.name, r.originalSize, r.dataSize)
		}
		records = append(records, r)
	}

	off := cur.Offset()
	size := c.Size()
	lzss, err := c.Codec(codec.TagLZSS)
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}
	resources := make([]*archive.Resource, 0, len(records))
	for i, r := range records {
		if err := limits.CheckRange(off, int64(r.dataSize), size); err != nil {
			return nil, fmt.Errorf("entry %s: %w", r.name, err)
		}

		var p *plan.Plan
		switch {
		case r.mime == MimeEncoded:
			p = plan.Single(c.ID, off, int64(r.dataSize), int64(r.originalSize), codec.Unsupported("encrypted PBO entry"))
		case r.compressed():
			p = plan.Single(c.ID, off, int64(r.dataSize), int64(r.originalSize), lzss)
		default:
			p = plan.Raw(c.ID, off, int64(r.dataSize))
		}

		res := archive.NewResource(strings.ReplaceAll(r.name, `\`, "/"), p)
		res.SetProperty("timestamp", strconv.FormatUint(uint64(r.timestamp), 10))
		if r.mime != 0 {
			res.SetProperty("mime", fmt.Sprintf("%08x", r.mime))
		}
		resources = append(resources, res)
		off += int64(r.dataSize)
		c.Progress(i+1, len(records))
	}

	if size-off == trailerSize {
		b, err := source.NewCursorAt(c.Source, size, off).ReadBytes(trailerSize)
		if err == nil && b[0] == 0 {
			meta["sha1"] = fmt.Sprintf("%x", b[1:])
		}
	}

	return &format.Result{Meta: meta, Resources: resources}, nil
}
