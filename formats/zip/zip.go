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

// Package zip reads ZIP archives. Members are decoded straight from their
// stored bytes, so a member is a single plan segment at its data offset.
package zip

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/ZaparooProject/go-gamearchive/archive"
	"github.com/ZaparooProject/go-gamearchive/codec"
	"github.com/ZaparooProject/go-gamearchive/format"
	bin "github.com/ZaparooProject/go-gamearchive/internal/binary"
	"github.com/ZaparooProject/go-gamearchive/plan"
)

// Compression methods beyond store and deflate.
const (
	MethodLZMA uint16 = 14
	MethodZstd uint16 = 93
	MethodXZ   uint16 = 95
)

const (
	localMagic = "PK\x03\x04"
	emptyMagic = "PK\x05\x06"
	eocdSize   = 22
)

// Format is the ZIP descriptor.
type Format struct{}

var _ format.Descriptor = Format{}

// Info implements format.Descriptor.
func (Format) Info() format.Info {
	return format.Info{
		Name:        "ZIP",
		Description: "ZIP archive",
		Extensions:  []string{".zip"},
		Codecs:      []codec.Tag{codec.TagNone, codec.TagDeflate, codec.TagZstd, codec.TagRawLZMA, codec.TagXZ},
	}
}

// Score implements format.Descriptor.
func (Format) Score(p *format.Probe) int {
	var ev format.Evidence
	ev.Extension(p, []string{".zip"})
	if !ev.Magic(p.HasMagic(0, localMagic) || p.HasMagic(0, emptyMagic)) {
		return ev.Score()
	}
	// The end record sits before a comment of up to 64KiB.
	if n := min(p.Size(), eocdSize+0xFFFF); n >= eocdSize {
		tail := make([]byte, n)
		if _, err := p.ReadAt(tail, p.Size()-n); err == nil {
			ev.Field(bytes.LastIndex(tail, []byte(emptyMagic)) >= 0)
		}
	}
	return ev.Score()
}

// Parse implements format.Descriptor.
func (Format) Parse(c *format.Context) (*format.Result, error) {
	zr, err := zip.NewReader(c.Source, c.Size())
	if err != nil {
		return nil, format.Mismatch("zip central directory: %v", err)
	}
	limits := c.Limits()
	if err := limits.CheckNumEntries(int64(len(zr.File))); err != nil {
		return nil, err //nolint:wrapcheck // bounds error names the check
	}

	resources := make([]*archive.Resource, 0, len(zr.File))
	for i, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := strings.ReplaceAll(f.Name, `\`, "/")
		if err := limits.CheckFilename(name); err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		p, err := memberPlan(c, f)
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", name, err)
		}

		res := archive.NewResource(name, p)
		res.SetProperty("crc32", fmt.Sprintf("%08X", f.CRC32))
		res.SetProperty("method", strconv.Itoa(int(f.Method)))
		if !f.Modified.IsZero() {
			res.SetProperty("modified", f.Modified.UTC().Format(time.RFC3339))
		}
		if f.Comment != "" {
			res.SetProperty("comment", f.Comment)
		}
		resources = append(resources, res)
		c.Progress(i+1, len(zr.File))
	}

	meta := map[string]string{"entries": strconv.Itoa(len(zr.File))}
	if zr.Comment != "" {
		meta["comment"] = zr.Comment
	}
	return &format.Result{Meta: meta, Resources: resources}, nil
}

// memberPlan locates the stored bytes of f and picks the codec for its
// compression method.
func memberPlan(c *format.Context, f *zip.File) (*plan.Plan, error) {
	off, err := f.DataOffset()
	if err != nil {
		return nil, format.Mismatch("data offset: %v", err)
	}
	comp := int64(f.CompressedSize64)  //nolint:gosec // checked below
	size := int64(f.UncompressedSize64) //nolint:gosec // checked below
	limits := c.Limits()
	if err := limits.CheckRange(off, comp, c.Size()); err != nil {
		return nil, err //nolint:wrapcheck // bounds error names the check
	}
	if err := limits.CheckLengthSane(size); err != nil {
		return nil, err //nolint:wrapcheck // bounds error names the check
	}

	if f.Flags&0x1 != 0 {
		return plan.Single(c.ID, off, comp, size, codec.Unsupported("encrypted zip member")), nil
	}
	switch f.Method {
	case zip.Store:
		if comp != size {
			return nil, format.Mismatch("stored member of %d bytes declares %d", comp, size)
		}
		return plan.Raw(c.ID, off, size), nil
	case zip.Deflate:
		return plan.Single(c.ID, off, comp, size, codec.Deflate{}), nil
	case MethodZstd:
		return plan.Single(c.ID, off, comp, size, codec.Zstd{}), nil
	case MethodXZ:
		return plan.Single(c.ID, off, comp, size, codec.XZ{}), nil
	case MethodLZMA:
		return lzmaPlan(c, off, comp, size)
	}
	return plan.Single(c.ID, off, comp, size, codec.Unsupported(fmt.Sprintf("zip method %d", f.Method))), nil
}

// lzmaPlan skips the member's LZMA header: version (2), properties
// length (2), then the properties byte and dictionary size.
func lzmaPlan(c *format.Context, off, comp, size int64) (*plan.Plan, error) {
	head, err := bin.ReadBytesAt(c.Source, off, 4)
	if err != nil {
		return nil, format.Mismatch("lzma header: %v", err)
	}
	propLen := int64(binary.LittleEndian.Uint16(head[2:]))
	if propLen != 5 || comp < 4+propLen {
		return nil, format.Mismatch("lzma properties of %d bytes", propLen)
	}
	props, err := bin.ReadBytesAt(c.Source, off+4, 5)
	if err != nil {
		return nil, format.Mismatch("lzma properties: %v", err)
	}
	lz := codec.RawLZMA{Props: props[0], DictSize: binary.LittleEndian.Uint32(props[1:])}
	return plan.Single(c.ID, off+4+propLen, comp-4-propLen, size, lz), nil
}
