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

	"github.com/ZaparooProject/go-gamearchive/format"
	bin "github.com/ZaparooProject/go-gamearchive/internal/binary"
	"github.com/ZaparooProject/go-gamearchive/validate"
)

// Allocation limits for hostile headers.
const (
	// MaxCompMapLen is the maximum compressed map size.
	MaxCompMapLen = 100 * 1024 * 1024

	// MaxNumHunks is the maximum number of hunks (about 200GB of CD data).
	MaxNumHunks = 10_000_000
)

// V5 map entry types. Types 7 to 13 only occur inside the compressed map
// and decode to one of the others.
const (
	compCodec0   = 0
	compCodec1   = 1
	compCodec2   = 2
	compCodec3   = 3
	compNone     = 4
	compSelf     = 5
	compParent   = 6
	compRLESmall = 7
	compRLELarge = 8
	compSelf0    = 9
	compSelf1    = 10
	compParSelf  = 11
	compPar0     = 12
	compPar1     = 13
)

// Entry kinds that only V3/V4 and uncompressed V5 maps produce.
const (
	kindMini = 14 + iota
	kindZero
)

// V3/V4 map entry types, from the low nibble of the flags byte.
const (
	v4Compressed   = 1
	v4Uncompressed = 2
	v4Mini         = 3
	v4SelfHunk     = 4
	v4ParentHunk   = 5
)

// hunkEntry locates one hunk. For self and parent references offset holds
// the referenced hunk or unit; for mini hunks it holds the repeated value.
type hunkEntry struct {
	offset uint64
	length uint32
	kind   uint8
}

// readMap decodes the hunk map of any supported version.
func readMap(src readerAtSized, h *Header, limits validate.Limits) ([]hunkEntry, error) {
	n := h.NumHunks()
	if n > MaxNumHunks {
		return nil, fmt.Errorf("hunk map: %w", &validate.BoundsError{Check: "hunks", Value: int64(n), Bound: MaxNumHunks}) //nolint:gosec // bounded above
	}
	switch {
	case h.Version < 5:
		return readMapV4(src, h, int(n), limits)
	case h.Compressors[0] == 0:
		return readMapV5Raw(src, h, int(n), limits)
	default:
		return readMapV5(src, h, int(n), limits)
	}
}

type readerAtSized interface {
	ReadAt(p []byte, off int64) (int, error)
	Size() int64
}

// readMapV4 decodes 16-byte V3/V4 entries:
//
//	0 offset (8), 8 CRC32 (4), 12 length (2), 14 length high byte, 15 flags
func readMapV4(src readerAtSized, h *Header, n int, limits validate.Limits) ([]hunkEntry, error) {
	const entrySize = 16
	if err := limits.CheckRange(int64(h.MapOffset), int64(n)*entrySize, src.Size()); err != nil { //nolint:gosec // checked as a range
		return nil, fmt.Errorf("hunk map: %w", err)
	}
	raw, err := bin.ReadBytesAt(src, int64(h.MapOffset), n*entrySize) //nolint:gosec // checked above
	if err != nil {
		return nil, format.Mismatch("read hunk map: %v", err)
	}

	entries := make([]hunkEntry, n)
	for i := range entries {
		e := raw[i*entrySize:]
		offset := binary.BigEndian.Uint64(e)
		length := uint32(binary.BigEndian.Uint16(e[12:])) | uint32(e[14])<<16
		switch e[15] & 0x0F {
		case v4Compressed:
			entries[i] = hunkEntry{kind: compCodec0, offset: offset, length: length}
		case v4Uncompressed:
			entries[i] = hunkEntry{kind: compNone, offset: offset, length: h.HunkBytes}
		case v4Mini:
			entries[i] = hunkEntry{kind: kindMini, offset: offset}
		case v4SelfHunk:
			entries[i] = hunkEntry{kind: compSelf, offset: offset}
		case v4ParentHunk:
			entries[i] = hunkEntry{kind: compParent, offset: offset}
		default:
			return nil, format.Mismatch("hunk %d: map entry type %d", i, e[15]&0x0F)
		}
	}
	return entries, nil
}

// readMapV5Raw decodes the map of an uncompressed V5 image: one 32-bit
// hunk-sized block number per hunk, zero for a hunk that was never written.
func readMapV5Raw(src readerAtSized, h *Header, n int, limits validate.Limits) ([]hunkEntry, error) {
	if err := limits.CheckRange(int64(h.MapOffset), int64(n)*4, src.Size()); err != nil { //nolint:gosec // checked as a range
		return nil, fmt.Errorf("hunk map: %w", err)
	}
	raw, err := bin.ReadBytesAt(src, int64(h.MapOffset), n*4) //nolint:gosec // checked above
	if err != nil {
		return nil, format.Mismatch("read hunk map: %v", err)
	}
	entries := make([]hunkEntry, n)
	for i := range entries {
		block := uint64(binary.BigEndian.Uint32(raw[i*4:]))
		if block == 0 {
			entries[i] = hunkEntry{kind: kindZero}
			continue
		}
		entries[i] = hunkEntry{kind: compNone, offset: block * uint64(h.HunkBytes), length: h.HunkBytes}
	}
	return entries, nil
}

// readMapV5 decodes a compressed V5 map. The 16-byte map header is
//
//	0 compressed length (4), 4 first block offset (6), 10 CRC16 (2),
//	12 length bits, 13 self-reference bits, 14 parent-reference bits
//
// followed by a Huffman coded stream of entry types and then the
// per-entry lengths and references.
func readMapV5(src readerAtSized, h *Header, n int, limits validate.Limits) ([]hunkEntry, error) {
	mapHeader, err := bin.ReadBytesAt(src, int64(h.MapOffset), 16) //nolint:gosec // checked by the read
	if err != nil {
		return nil, format.Mismatch("read map header: %v", err)
	}
	compMapLen := binary.BigEndian.Uint32(mapHeader[0:4])
	if compMapLen > MaxCompMapLen {
		return nil, fmt.Errorf("hunk map: %w", &validate.BoundsError{Check: "map length", Value: int64(compMapLen), Bound: MaxCompMapLen})
	}
	if err := limits.CheckRange(int64(h.MapOffset)+16, int64(compMapLen), src.Size()); err != nil { //nolint:gosec // checked as a range
		return nil, fmt.Errorf("hunk map: %w", err)
	}
	var firstOffs uint64
	for _, b := range mapHeader[4:10] {
		firstOffs = firstOffs<<8 | uint64(b)
	}
	lengthBits := int(mapHeader[12])
	selfBits := int(mapHeader[13])
	parentBits := int(mapHeader[14])
	if lengthBits > 32 || selfBits > 32 || parentBits > 32 {
		return nil, format.Mismatch("map field widths %d/%d/%d", lengthBits, selfBits, parentBits)
	}

	compMap, err := bin.ReadBytesAt(src, int64(h.MapOffset)+16, int(compMapLen)) //nolint:gosec // checked above
	if err != nil {
		return nil, format.Mismatch("read compressed map: %v", err)
	}

	br := newBitReader(compMap)
	decoder := newHuffmanDecoder(16, 8)
	decoder.importTreeRLE(br)

	// Entry types, with run-length repeats of the previous type.
	types := make([]uint8, n)
	var last uint8
	for i, rep := 0, 0; i < n; i++ {
		if rep > 0 {
			types[i] = last
			rep--
			continue
		}
		switch val := decoder.decode(br); val {
		case compRLESmall:
			types[i] = last
			rep = 2 + int(decoder.decode(br))
		case compRLELarge:
			types[i] = last
			rep = 2 + 16 + int(decoder.decode(br))<<4
			rep += int(decoder.decode(br))
		default:
			types[i] = val
			last = val
		}
	}

	entries := make([]hunkEntry, n)
	curOffset := firstOffs
	var lastSelf uint32
	var lastParent uint64
	unitsPerHunk := uint64(h.HunkBytes) / uint64(h.unitBytes())
	for i := range entries {
		e := hunkEntry{kind: types[i]}
		switch e.kind {
		case compCodec0, compCodec1, compCodec2, compCodec3:
			e.length = br.read(lengthBits)
			e.offset = curOffset
			curOffset += uint64(e.length)
			br.read(16) // CRC16
		case compNone:
			e.length = h.HunkBytes
			e.offset = curOffset
			curOffset += uint64(e.length)
			br.read(16) // CRC16
		case compSelf:
			lastSelf = br.read(selfBits)
			e.offset = uint64(lastSelf)
		case compParent:
			lastParent = uint64(br.read(parentBits))
			e.offset = lastParent
		case compSelf0:
			e.kind, e.offset = compSelf, uint64(lastSelf)
		case compSelf1:
			lastSelf++
			e.kind, e.offset = compSelf, uint64(lastSelf)
		case compParSelf:
			lastParent = uint64(i) * unitsPerHunk //nolint:gosec // i is a hunk index
			e.kind, e.offset = compParent, lastParent
		case compPar0:
			e.kind, e.offset = compParent, lastParent
		case compPar1:
			lastParent += unitsPerHunk
			e.kind, e.offset = compParent, lastParent
		default:
			return nil, format.Mismatch("hunk %d: map entry type %d", i, e.kind)
		}
		entries[i] = e
	}
	return entries, nil
}

// bitReader reads MSB-first bit fields. Reads past the end yield zeros.
type bitReader struct {
	data   []byte
	offset int  // bit offset
	bits   uint // accumulated bits
	avail  int  // bits available in accumulator
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

func (br *bitReader) read(count int) uint32 {
	if count == 0 {
		return 0
	}
	for br.avail < count {
		br.bits <<= 8
		if byteOff := br.offset / 8; byteOff < len(br.data) {
			br.bits |= uint(br.data[byteOff])
			br.offset += 8
		}
		br.avail += 8
	}
	br.avail -= count
	return uint32((br.bits >> br.avail) & (1<<count - 1)) //nolint:gosec // count <= 32
}

// huffmanDecoder decodes the canonical Huffman codes of the V5 map.
type huffmanDecoder struct {
	lookup   []uint32
	nodeBits []uint8
	numCodes int
	maxBits  int
}

func newHuffmanDecoder(numCodes, maxBits int) *huffmanDecoder {
	return &huffmanDecoder{
		numCodes: numCodes,
		maxBits:  maxBits,
		nodeBits: make([]uint8, numCodes),
		lookup:   make([]uint32, 1<<maxBits),
	}
}

// importTreeRLE reads the code lengths. A length of 1 escapes either a
// literal 1 or a value followed by a repeat count.
func (hd *huffmanDecoder) importTreeRLE(br *bitReader) {
	numBits := 3
	switch {
	case hd.maxBits >= 16:
		numBits = 5
	case hd.maxBits >= 8:
		numBits = 4
	}

	for cur := 0; cur < hd.numCodes; {
		bits := br.read(numBits)
		if bits != 1 {
			hd.nodeBits[cur] = uint8(bits) //nolint:gosec // numBits wide
			cur++
			continue
		}
		bits = br.read(numBits)
		if bits == 1 {
			hd.nodeBits[cur] = 1
			cur++
			continue
		}
		rep := int(br.read(numBits)) + 3
		for ; rep > 0 && cur < hd.numCodes; rep-- {
			hd.nodeBits[cur] = uint8(bits) //nolint:gosec // numBits wide
			cur++
		}
	}
	hd.buildLookup()
}

// buildLookup assigns canonical codes from the longest length down and
// fills the direct lookup table. Lengths above maxBits are ignored.
func (hd *huffmanDecoder) buildLookup() {
	var histo [33]uint32
	for _, b := range hd.nodeBits {
		histo[b]++
	}
	var start uint32
	for length := 32; length > 0; length-- {
		next := (start + histo[length]) >> 1
		histo[length] = start
		start = next
	}

	for sym, b := range hd.nodeBits {
		bits := int(b)
		if bits == 0 || bits > hd.maxBits {
			continue
		}
		code := histo[bits]
		histo[bits]++
		value := uint32(sym<<5 | bits) //nolint:gosec // sym < numCodes
		shift := hd.maxBits - bits
		lo := int(code) << shift
		hi := int(code+1) << shift
		for j := lo; j < hi && j < len(hd.lookup); j++ {
			hd.lookup[j] = value
		}
	}
}

// decode reads one symbol, returning unused peeked bits to the reader.
func (hd *huffmanDecoder) decode(br *bitReader) uint8 {
	entry := hd.lookup[br.read(hd.maxBits)]
	if bits := int(entry & 0x1f); bits < hd.maxBits {
		br.avail += hd.maxBits - bits
	}
	return uint8(entry >> 5) //nolint:gosec // symbol < numCodes
}
