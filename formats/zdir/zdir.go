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

// Package zdir reads the ZDIR.BIN/ZZDATA*.DAT pairs of Need for Speed
// Underground and Underground 2.
//
// ZDIR.BIN holds hash-only records. The data lives in sibling ZZDATA
// files that are treated as one logical stream, so a record may span two
// of them. Names come from the "nfs.txt" name table when one is configured.
package zdir

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ZaparooProject/go-gamearchive/archive"
	"github.com/ZaparooProject/go-gamearchive/format"
	"github.com/ZaparooProject/go-gamearchive/names"
	"github.com/ZaparooProject/go-gamearchive/plan"
	"github.com/ZaparooProject/go-gamearchive/validate"
)

// Record sizes of the two directory revisions.
const (
	Record2002 = 12
	Record2003 = 24
)

const (
	// DirName is the directory file name.
	DirName = "ZDIR.BIN"

	// NameTable is the name table consulted for record hashes.
	NameTable = "nfs.txt"

	// UnknownDir holds resources whose hash has no known name.
	UnknownDir = "__UNKNOWN__"

	offsetShift = 11
	maxDataFile = 10
)

// Format is the ZDIR descriptor.
type Format struct{}

var _ format.Descriptor = Format{}

// Info implements format.Descriptor.
func (Format) Info() format.Info {
	return format.Info{
		Name:        "ZDIR",
		Description: "Need for Speed ZDIR/ZZDATA archive",
		Extensions:  []string{".bin"},
		Platforms:   []string{"Need for Speed: Underground", "Need for Speed: Underground 2"},
	}
}

// Score implements format.Descriptor. The directory has no magic, so a
// file not named ZDIR.BIN scores nothing.
func (Format) Score(p *format.Probe) int {
	if !strings.EqualFold(filepath.Base(p.Path()), DirName) {
		return 0
	}
	var ev format.Evidence
	ev.Add(format.PointsExtension)
	recs := recordSizes(p.Size())
	if !ev.Field(len(recs) > 0) {
		return ev.Score()
	}
	for _, rec := range recs {
		size, ok := p.Uint32LE(int64(rec) - 4*sizeField(rec))
		if ok && p.Limits().CheckLengthSane(int64(size)) == nil {
			ev.Field(true)
			break
		}
	}
	return ev.Score()
}

// recordSizes lists the record layouts the directory length allows. Every
// 2003 length is also a 2002 length, so 2003 comes first and Parse falls
// back to 2002 when the 2003 records do not fit the data files.
func recordSizes(n int64) []int {
	var out []int
	if n > 0 && n%Record2003 == 0 {
		out = append(out, Record2003)
	}
	if n > 0 && n%Record2002 == 0 {
		out = append(out, Record2002)
	}
	return out
}

// sizeField returns the distance of the size field from the record end in words.
func sizeField(rec int) int64 {
	if rec == Record2003 {
		return 2
	}
	return 1
}

type record struct {
	hash      uint32
	archiveID uint32
	local     uint32
	total     uint32
	size      uint32
	checksum  uint32
}

func decode(b []byte) record {
	le := binary.LittleEndian
	if len(b) == Record2002 {
		return record{hash: le.Uint32(b), local: le.Uint32(b[4:]), total: le.Uint32(b[4:]), size: le.Uint32(b[8:])}
	}
	return record{
		hash:      le.Uint32(b),
		archiveID: le.Uint32(b[4:]),
		local:     le.Uint32(b[8:]),
		total:     le.Uint32(b[12:]),
		size:      le.Uint32(b[16:]),
		checksum:  le.Uint32(b[20:]),
	}
}

// Parse implements format.Descriptor.
func (Format) Parse(c *format.Context) (*format.Result, error) {
	recs := recordSizes(c.Size())
	if len(recs) == 0 {
		return nil, format.Mismatch("directory length %d is not a record multiple", c.Size())
	}
	limits := c.Limits()
	if err := limits.CheckNumEntries(c.Size() / Record2002); err != nil {
		return nil, err //nolint:wrapcheck // bounds error names the check
	}

	spans, err := dataFiles(c)
	if err != nil {
		return nil, err
	}
	dir, err := c.Cursor().ReadBytes(int(c.Size()))
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	rec := pickLayout(dir, recs, spans)
	count := int64(len(dir) / rec)
	table := c.Names(NameTable, names.NFSHash)

	resources := make([]*archive.Resource, 0, count)
	for i := range count {
		r := decode(dir[i*int64(rec) : (i+1)*int64(rec)])

		p, err := plan.Split(spans, int64(r.total)<<offsetShift, int64(r.size))
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		res := archive.NewResource("", p)
		if name, ok := table.Lookup(uint64(r.hash)); ok {
			res.Name = strings.ReplaceAll(name, `\`, "/")
			if err := limits.CheckFilename(res.Name); err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
		} else {
			res.Name = fmt.Sprintf("%s/%X", UnknownDir, r.local)
			res.Unnamed = true
		}
		res.SetProperty("hash", fmt.Sprintf("%08X", r.hash))
		if rec == Record2003 {
			res.SetProperty("archive_id", strconv.FormatUint(uint64(r.archiveID), 10))
			res.SetProperty("checksum", fmt.Sprintf("%08X", r.checksum))
		}
		resources = append(resources, res)
		c.Progress(len(resources), int(count))
	}

	version := "2002"
	if rec == Record2003 {
		version = "2003"
	}
	return &format.Result{
		Meta: map[string]string{
			"version":    version,
			"data_files": strconv.Itoa(len(spans)),
		},
		Resources: resources,
	}, nil
}

// pickLayout returns the first record size whose records all lie inside
// the data files. When none fits, the first candidate is returned and the
// out of range record is reported while building plans.
func pickLayout(dir []byte, recs []int, spans []plan.SourceSpan) int {
	var total int64
	for _, s := range spans {
		total += s.Size
	}
	for _, rec := range recs {
		if fits(dir, rec, total) {
			return rec
		}
	}
	return recs[0]
}

func fits(dir []byte, rec int, total int64) bool {
	for off := 0; off+rec <= len(dir); off += rec {
		r := decode(dir[off : off+rec])
		if validate.CheckRange(int64(r.total)<<offsetShift, int64(r.size), total) != nil {
			return false
		}
	}
	return true
}

// dataFiles resolves ZZDATA.DAT, or failing that the numbered
// ZZDATA0.DAT, ZZDATA1.DAT and so on up to the first gap.
func dataFiles(c *format.Context) ([]plan.SourceSpan, error) {
	if src, err := c.Sibling("ZZDATA.DAT"); err == nil {
		return []plan.SourceSpan{{ID: "ZZDATA.DAT", Size: src.Size()}}, nil
	}
	var spans []plan.SourceSpan
	for i := range maxDataFile {
		id := fmt.Sprintf("ZZDATA%d.DAT", i)
		src, err := c.Sibling(id)
		if err != nil {
			break
		}
		spans = append(spans, plan.SourceSpan{ID: id, Size: src.Size()})
	}
	if len(spans) == 0 {
		return nil, format.Mismatch("no ZZDATA data file next to %s", c.Path)
	}
	return spans, nil
}
