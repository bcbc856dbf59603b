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

// Package sevenzip reads 7z archives. Folders may be solid and compressed
// with codecs the engine does not implement, so each member is backed by a
// source that decodes it through the 7z reader on first use.
package sevenzip

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bodgit/sevenzip"

	"github.com/ZaparooProject/go-gamearchive/archive"
	"github.com/ZaparooProject/go-gamearchive/codec"
	"github.com/ZaparooProject/go-gamearchive/format"
	"github.com/ZaparooProject/go-gamearchive/plan"
	"github.com/ZaparooProject/go-gamearchive/source"
)

// Magic is the 7z signature.
const Magic = "7z\xBC\xAF\x27\x1C"

// Format is the 7z descriptor.
type Format struct{}

var _ format.Descriptor = Format{}

// Info implements format.Descriptor.
func (Format) Info() format.Info {
	return format.Info{
		Name:        "7z",
		Description: "7-Zip archive",
		Extensions:  []string{".7z"},
		Codecs:      []codec.Tag{codec.TagNone},
	}
}

// Score implements format.Descriptor.
func (Format) Score(p *format.Probe) int {
	var ev format.Evidence
	ev.Extension(p, []string{".7z"})
	if !ev.Magic(p.HasMagic(0, Magic)) {
		return ev.Score()
	}
	if major, ok := p.Uint8(6); ok {
		ev.Field(major == 0)
	}
	return ev.Score()
}

// Parse implements format.Descriptor.
func (Format) Parse(c *format.Context) (*format.Result, error) {
	zr, err := sevenzip.NewReader(c.Source, c.Size())
	if err != nil {
		return nil, format.Mismatch("7z header: %v", err)
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
		size := int64(f.UncompressedSize) //nolint:gosec // checked below
		if err := limits.CheckLengthSane(size); err != nil {
			return nil, fmt.Errorf("member %q: %w", name, err)
		}

		id := fmt.Sprintf("%s#%d", c.ID, i)
		c.Files.Adopt(id, source.NewLazyStream(id, size, func() (io.ReadCloser, error) {
			return f.Open() //nolint:wrapcheck // wrapped by the lazy source
		}))

		res := archive.NewResource(name, plan.Raw(id, 0, size))
		res.SetProperty("crc32", fmt.Sprintf("%08X", f.CRC32))
		if !f.Modified.IsZero() {
			res.SetProperty("modified", f.Modified.UTC().Format(time.RFC3339))
		}
		resources = append(resources, res)
		c.Progress(i+1, len(zr.File))
	}

	return &format.Result{
		Meta:      map[string]string{"entries": strconv.Itoa(len(zr.File))},
		Resources: resources,
	}, nil
}
