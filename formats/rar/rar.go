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

// Package rar reads RAR 1.5 to 5 archives. RAR streams can only be decoded
// front to back, so each member is backed by a source that rescans the
// archive up to that member on first use.
package rar

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nwaples/rardecode/v2"

	"github.com/ZaparooProject/go-gamearchive/archive"
	"github.com/ZaparooProject/go-gamearchive/codec"
	"github.com/ZaparooProject/go-gamearchive/format"
	"github.com/ZaparooProject/go-gamearchive/plan"
	"github.com/ZaparooProject/go-gamearchive/source"
)

// Signatures of the two archive generations.
const (
	Magic15 = "Rar!\x1A\x07\x00"
	Magic50 = "Rar!\x1A\x07\x01\x00"
)

// Format is the RAR descriptor.
type Format struct{}

var _ format.Descriptor = Format{}

// Info implements format.Descriptor.
func (Format) Info() format.Info {
	return format.Info{
		Name:        "RAR",
		Description: "RAR archive",
		Extensions:  []string{".rar"},
		Codecs:      []codec.Tag{codec.TagNone},
	}
}

// Score implements format.Descriptor.
func (Format) Score(p *format.Probe) int {
	var ev format.Evidence
	ev.Extension(p, []string{".rar"})
	ev.Magic(p.HasMagic(0, Magic15) || p.HasMagic(0, Magic50))
	return ev.Score()
}

// Parse implements format.Descriptor.
func (Format) Parse(c *format.Context) (*format.Result, error) {
	rr, err := rardecode.NewReader(io.NewSectionReader(c.Source, 0, c.Size()))
	if err != nil {
		return nil, format.Mismatch("rar header: %v", err)
	}
	limits := c.Limits()

	var resources []*archive.Resource //nolint:prealloc // count unknown until the scan ends
	for i := 0; ; i++ {
		h, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if i == 0 {
				return nil, format.Mismatch("rar header: %v", err)
			}
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		if err := limits.CheckNumEntries(int64(i + 1)); err != nil {
			return nil, err //nolint:wrapcheck // bounds error names the check
		}
		if h.IsDir {
			continue
		}
		name := strings.ReplaceAll(h.Name, `\`, "/")
		if err := limits.CheckFilename(name); err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		if h.UnKnownSize {
			return nil, fmt.Errorf("member %q: unknown unpacked size: %w", name, codec.ErrMalformedInput)
		}
		if err := limits.CheckLengthSane(h.UnPackedSize); err != nil {
			return nil, fmt.Errorf("member %q: %w", name, err)
		}

		id := fmt.Sprintf("%s#%d", c.ID, i)
		c.Files.Adopt(id, source.NewLazyStream(id, h.UnPackedSize, member(c.Source, i)))

		res := archive.NewResource(name, plan.Raw(id, 0, h.UnPackedSize))
		if !h.ModificationTime.IsZero() {
			res.SetProperty("modified", h.ModificationTime.UTC().Format(time.RFC3339))
		}
		if h.Solid {
			res.SetProperty("solid", "true")
		}
		if h.Encrypted {
			res.SetProperty("encrypted", "true")
		}
		resources = append(resources, res)
		c.Progress(len(resources), 0)
	}

	return &format.Result{
		Meta:      map[string]string{"entries": strconv.Itoa(len(resources))},
		Resources: resources,
	}, nil
}

// member returns an opener that scans src to the index-th header.
func member(src source.Source, index int) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		rr, err := rardecode.NewReader(io.NewSectionReader(src, 0, src.Size()))
		if err != nil {
			return nil, fmt.Errorf("reopen rar: %w", err)
		}
		for i := 0; ; i++ {
			if _, err := rr.Next(); err != nil {
				return nil, fmt.Errorf("seek to member %d: %w", index, err)
			}
			if i == index {
				return io.NopCloser(rr), nil
			}
		}
	}
}
