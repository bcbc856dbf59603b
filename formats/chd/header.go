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

package chd

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ZaparooProject/go-gamearchive/format"
	bin "github.com/ZaparooProject/go-gamearchive/internal/binary"
)

// Magic is the CHD signature.
const Magic = "MComprHD"

// Header sizes for different CHD versions
const (
	headerSizeV3 = 120
	headerSizeV4 = 108
	headerSizeV5 = 124
)

// defaultUnitBytes is a CD frame with subchannel data.
const defaultUnitBytes = 2448

// Header is a CHD file header. V3 and V4 fields that V5 dropped are kept
// alongside the V5 layout.
type Header struct {
	Compressors  [4]uint32 // V5 compression codec tags
	LogicalBytes uint64
	MapOffset    uint64
	MetaOffset   uint64
	HeaderSize   uint32
	Version      uint32
	HunkBytes    uint32
	UnitBytes    uint32
	RawSHA1      [20]byte
	SHA1         [20]byte
	ParentSHA1   [20]byte

	// V3/V4 specific fields
	Flags       uint32
	Compression uint32
	TotalHunks  uint32
}

// parseHeader reads the header at the start of r. Anything that is not a
// CHD header of a known version is a mismatch.
func parseHeader(r io.ReaderAt, size int64) (*Header, error) {
	head, err := bin.ReadBytesAt(r, 0, 16)
	if err != nil || string(head[:8]) != Magic {
		return nil, format.Mismatch("missing %s signature", Magic)
	}

	h := &Header{
		HeaderSize: binary.BigEndian.Uint32(head[8:12]),
		Version:    binary.BigEndian.Uint32(head[12:16]),
	}
	want := map[uint32]uint32{3: headerSizeV3, 4: headerSizeV4, 5: headerSizeV5}[h.Version]
	if want == 0 {
		return nil, format.Mismatch("unsupported CHD version %d", h.Version)
	}
	if h.HeaderSize < want || int64(h.HeaderSize) > size {
		return nil, format.Mismatch("CHD v%d header size %d", h.Version, h.HeaderSize)
	}
	buf, err := bin.ReadBytesAt(r, 0, int(want))
	if err != nil {
		return nil, format.Mismatch("read header: %v", err)
	}

	switch h.Version {
	case 5:
		parseHeaderV5(h, buf)
	case 4:
		parseHeaderV4(h, buf)
	default:
		parseHeaderV3(h, buf)
	}
	if h.HunkBytes == 0 {
		return nil, format.Mismatch("zero hunk size")
	}
	return h, nil
}

// parseHeaderV5 decodes a V5 header.
//
//	0x10 compressors[4], 0x20 logical bytes, 0x28 map offset,
//	0x30 meta offset, 0x38 hunk bytes, 0x3C unit bytes,
//	0x40 raw SHA1, 0x54 SHA1, 0x68 parent SHA1
func parseHeaderV5(h *Header, buf []byte) {
	be := binary.BigEndian
	for i := range h.Compressors {
		h.Compressors[i] = be.Uint32(buf[0x10+4*i:])
	}
	h.LogicalBytes = be.Uint64(buf[0x20:])
	h.MapOffset = be.Uint64(buf[0x28:])
	h.MetaOffset = be.Uint64(buf[0x30:])
	h.HunkBytes = be.Uint32(buf[0x38:])
	h.UnitBytes = be.Uint32(buf[0x3C:])
	copy(h.RawSHA1[:], buf[0x40:0x54])
	copy(h.SHA1[:], buf[0x54:0x68])
	copy(h.ParentSHA1[:], buf[0x68:0x7C])
}

// parseHeaderV4 decodes a V4 header. The map follows the header.
//
//	0x10 flags, 0x14 compression, 0x18 total hunks, 0x1C logical bytes,
//	0x24 meta offset, 0x2C hunk bytes, 0x30 SHA1, 0x44 parent SHA1,
//	0x58 raw SHA1
func parseHeaderV4(h *Header, buf []byte) {
	be := binary.BigEndian
	h.Flags = be.Uint32(buf[0x10:])
	h.Compression = be.Uint32(buf[0x14:])
	h.TotalHunks = be.Uint32(buf[0x18:])
	h.LogicalBytes = be.Uint64(buf[0x1C:])
	h.MetaOffset = be.Uint64(buf[0x24:])
	h.HunkBytes = be.Uint32(buf[0x2C:])
	copy(h.SHA1[:], buf[0x30:0x44])
	copy(h.ParentSHA1[:], buf[0x44:0x58])
	copy(h.RawSHA1[:], buf[0x58:0x6C])
	h.UnitBytes = defaultUnitBytes
	h.MapOffset = uint64(h.HeaderSize)
}

// parseHeaderV3 decodes a V3 header. MD5 sums at 0x2C and 0x3C are skipped.
//
//	0x10 flags, 0x14 compression, 0x18 total hunks, 0x1C logical bytes,
//	0x24 meta offset, 0x4C hunk bytes, 0x50 SHA1, 0x64 parent SHA1
func parseHeaderV3(h *Header, buf []byte) {
	be := binary.BigEndian
	h.Flags = be.Uint32(buf[0x10:])
	h.Compression = be.Uint32(buf[0x14:])
	h.TotalHunks = be.Uint32(buf[0x18:])
	h.LogicalBytes = be.Uint64(buf[0x1C:])
	h.MetaOffset = be.Uint64(buf[0x24:])
	h.HunkBytes = be.Uint32(buf[0x4C:])
	copy(h.SHA1[:], buf[0x50:0x64])
	copy(h.ParentSHA1[:], buf[0x64:0x78])
	h.UnitBytes = defaultUnitBytes
	h.MapOffset = uint64(h.HeaderSize)
}

// NumHunks returns the total number of hunks in the CHD file.
func (h *Header) NumHunks() uint64 {
	if h.TotalHunks > 0 {
		return uint64(h.TotalHunks)
	}
	if h.HunkBytes == 0 {
		return 0
	}
	return (h.LogicalBytes + uint64(h.HunkBytes) - 1) / uint64(h.HunkBytes)
}

// HasParent reports whether the header names a parent image.
func (h *Header) HasParent() bool {
	return h.ParentSHA1 != [20]byte{}
}

// unitBytes returns the unit size, defaulting to a CD frame.
func (h *Header) unitBytes() int {
	if h.UnitBytes == 0 {
		return defaultUnitBytes
	}
	return int(h.UnitBytes)
}

func (h *Header) String() string {
	return fmt.Sprintf("CHD v%d, %d bytes in %d-byte hunks", h.Version, h.LogicalBytes, h.HunkBytes)
}
