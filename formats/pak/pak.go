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

// Package pak reads Quake PACK archives.
package pak

import (
	"fmt"

	"github.com/ZaparooProject/go-gamearchive/archive"
	"github.com/ZaparooProject/go-gamearchive/format"
	"github.com/ZaparooProject/go-gamearchive/plan"
)

// Layout constants.
const (
	Magic      = "PACK"
	HeaderSize = 12
	EntrySize  = 64
	NameSize   = 56
)

// Format is the PACK descriptor.
type Format struct{}

var _ format.Descriptor = Format{}

// Info implements format.Descriptor.
func (Format) Info() format.Info {
	return format.Info{
		Name:        "PAK",
		Description: "Quake PACK archive",
		Extensions:  []string{".pak"},
		Platforms:   []string{"Quake", "Quake II", "Half-Life"},
	}
}

// Score implements format.Descriptor.
func (f Format) Score(p *format.Probe) int {
	var ev format.Evidence
	ev.Extension(p, f.Info().Extensions)
	if !ev.Magic(p.HasMagic(0, Magic)) {
		return ev.Score()
	}

	dirOff, ok1 := p.Uint32LE(4)
	dirLen, ok2 := p.Uint32LE(8)
	if !ok1 || !ok2 {
		return ev.Score()
	}
	ev.Field(dirLen%EntrySize == 0)
	ev.Field(p.Limits().CheckRange(int64(dirOff), int64(dirLen), p.Size()) == nil)
	return ev.Score()
}

// Parse implements format.Descriptor.
func (Format) Parse(c *format.Context) (*format.Result, error) {
	cur := c.Cursor()
	magic, err := cur.ReadBytes(4)
	if err != nil || string(magic) != Magic {
		return nil, format.Mismatch("missing PACK magic")
	}
	dirOff, err := cur.Uint32LE()
	if err != nil {
		return nil, format.Mismatch("short header")
	}
	dirLen, err := cur.Uint32LE()
	if err != nil {
		return nil, format.Mismatch("short header")
	}

	limits := c.Limits()
	if dirLen%EntrySize != 0 {
		return nil, format.Mismatch("directory length %d is not a multiple of %d", dirLen, EntrySize)
	}
	if err := limits.CheckRange(int64(dirOff), int64(dirLen), c.Size()); err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}
	count := int(dirLen / EntrySize)
	if err := limits.CheckNumEntries(int64(count)); err != nil {
		return nil, err //nolint:wrapcheck // bounds error names the check
	}

	if err := cur.Seek(int64(dirOff)); err != nil {
		return nil, fmt.Errorf("seek directory: %w", err)
	}
	resources := make([]*archive.Resource, 0, count)
	for i := range count {
		name, err := cur.FixedString(NameSize)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		pos, err := cur.Uint32LE()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		size, err := cur.Uint32LE()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		if err := limits.CheckFilename(name); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if err := limits.CheckRange(int64(pos), int64(size), c.Size()); err != nil {
			return nil, fmt.Errorf("entry %s: %w", name, err)
		}
		resources = append(resources, archive.NewResource(name, plan.Raw(c.ID, int64(pos), int64(size))))
		c.Progress(i+1, count)
	}

	return &format.Result{Resources: resources}, nil
}
