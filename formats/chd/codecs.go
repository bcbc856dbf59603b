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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/mewkiz/flac"
	"github.com/ulikunitz/xz/lzma"

	"github.com/ZaparooProject/go-gamearchive/codec"
)

// CHD codec tags (4-byte big-endian ASCII).
const (
	CodecZlib   uint32 = 0x7a6c6962 // "zlib", raw deflate despite the name
	CodecLZMA   uint32 = 0x6c7a6d61 // "lzma"
	CodecHuff   uint32 = 0x68756666 // "huff"
	CodecFLAC   uint32 = 0x666c6163 // "flac"
	CodecZstd   uint32 = 0x7a737464 // "zstd"
	CodecCDZlib uint32 = 0x63647a6c // "cdzl"
	CodecCDLZMA uint32 = 0x63646c7a // "cdlz"
	CodecCDFLAC uint32 = 0x6364666c // "cdfl"
	CodecCDZstd uint32 = 0x63647a73 // "cdzs"
)

// V3/V4 compression types.
const (
	v4CompressionNone  = 0
	v4CompressionZlib  = 1
	v4CompressionZlibP = 2
)

// CD frame layout.
const (
	cdSectorSize = 2352
	cdSubSize    = 96
	cdFrameSize  = cdSectorSize + cdSubSize
	lzmaProps    = 0x5D // lc=3, lp=0, pb=2
)

var errDecompress = errors.New("hunk decompression failed")

// cdSyncHeader is the standard CD-ROM sync header.
var cdSyncHeader = [12]byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}

// hunkCodecs returns the codec for each compressor slot. Slots the engine
// cannot decode get a codec that fails at extraction time.
func hunkCodecs(h *Header) [4]codec.Codec {
	var out [4]codec.Codec
	if h.Version < 5 {
		switch h.Compression {
		case v4CompressionNone:
		case v4CompressionZlib, v4CompressionZlibP:
			out[0] = codec.Deflate{}
		default:
			out[0] = codec.Unsupported(fmt.Sprintf("CHD v%d compression type %d", h.Version, h.Compression))
		}
		return out
	}
	for i, tag := range h.Compressors {
		if tag != 0 {
			out[i] = newHunkCodec(tag, int(h.HunkBytes), h.unitBytes())
		}
	}
	return out
}

// newHunkCodec maps a CHD compressor tag onto an engine codec. Whole-hunk
// codecs that need the full hunk even for the short final hunk are wrapped
// with codec.Block.
func newHunkCodec(tag uint32, hunkBytes, unitBytes int) codec.Codec {
	frames := hunkBytes / max(unitBytes, 1)
	switch tag {
	case CodecZlib:
		return codec.Deflate{}
	case CodecZstd:
		return codec.Zstd{}
	case CodecLZMA:
		return codec.RawLZMA{Props: lzmaProps, DictSize: codec.LZMADictSize(int64(hunkBytes))}
	case CodecFLAC:
		return codec.FLAC{Order: binary.BigEndian}
	case CodecCDZlib:
		return wholeHunk(codec.Tag(tag), hunkBytes, cdDecoder{frames: frames, base: inflate, sub: inflate}.decode)
	case CodecCDLZMA:
		base := func(dst, src []byte) (int, error) { return unlzma(dst, src, frames*cdSectorSize) }
		return wholeHunk(codec.Tag(tag), hunkBytes, cdDecoder{frames: frames, base: base, sub: inflate}.decode)
	case CodecCDZstd:
		return wholeHunk(codec.Tag(tag), hunkBytes, cdDecoder{frames: frames, base: unzstd, sub: unzstd}.decode)
	case CodecCDFLAC:
		return wholeHunk(codec.Tag(tag), hunkBytes, func(dst, src []byte) (int, error) { return decodeCDFLAC(dst, src, frames) })
	default:
		return codec.Unsupported(fmt.Sprintf("CHD codec %q", codec.Tag(tag)))
	}
}

// wholeHunk decodes into a hunk-sized buffer and hands back the part the
// segment declared.
func wholeHunk(tag codec.Tag, hunkBytes int, fn codec.BlockFunc) codec.Codec {
	return codec.Block(tag, func(dst, src []byte) (int, error) {
		full := make([]byte, hunkBytes)
		n, err := fn(full, src)
		if err != nil {
			return 0, err
		}
		return copy(dst, full[:n]), nil
	})
}

func inflate(dst, src []byte) (int, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer func() { _ = r.Close() }()
	n, err := io.ReadFull(r, dst)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("%w: deflate: %w", errDecompress, err)
	}
	return n, nil
}

func unzstd(dst, src []byte) (int, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return 0, fmt.Errorf("%w: zstd init: %w", errDecompress, err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(src, make([]byte, 0, len(dst)))
	if err != nil {
		return 0, fmt.Errorf("%w: zstd: %w", errDecompress, err)
	}
	if len(out) > len(dst) {
		return 0, fmt.Errorf("%w: zstd: %d bytes for a %d-byte buffer", errDecompress, len(out), len(dst))
	}
	return copy(dst, out), nil
}

// unlzma decodes a headerless LZMA stream whose dictionary size follows
// from reduceSize.
func unlzma(dst, src []byte, reduceSize int) (int, error) {
	header := make([]byte, 13)
	header[0] = lzmaProps
	binary.LittleEndian.PutUint32(header[1:5], codec.LZMADictSize(int64(reduceSize)))
	binary.LittleEndian.PutUint64(header[5:13], uint64(len(dst)))

	r, err := lzma.NewReader(io.MultiReader(bytes.NewReader(header), bytes.NewReader(src)))
	if err != nil {
		return 0, fmt.Errorf("%w: lzma init: %w", errDecompress, err)
	}
	n, err := io.ReadFull(r, dst)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("%w: lzma: %w", errDecompress, err)
	}
	return n, nil
}

// cdDecoder handles the CD codecs that share one layout:
//
//	ECC bitmap ((frames+7)/8 bytes), base length (2 bytes, 3 when the
//	hunk is 64KiB or more), base data, subchannel data
//
// Sectors flagged in the bitmap had their sync header stripped.
type cdDecoder struct {
	base   codec.BlockFunc
	sub    codec.BlockFunc
	frames int
}

func (d cdDecoder) decode(dst, src []byte) (int, error) {
	compLenBytes := 2
	if len(dst) >= 65536 {
		compLenBytes = 3
	}
	eccBytes := (d.frames + 7) / 8
	headerBytes := eccBytes + compLenBytes
	if len(src) < headerBytes {
		return 0, fmt.Errorf("%w: CD hunk of %d bytes has no header", errDecompress, len(src))
	}
	ecc := src[:eccBytes]

	var baseLen int
	for _, b := range src[eccBytes:headerBytes] {
		baseLen = baseLen<<8 | int(b)
	}
	if headerBytes+baseLen > len(src) {
		return 0, fmt.Errorf("%w: CD base length %d", errDecompress, baseLen)
	}

	sectors := make([]byte, d.frames*cdSectorSize)
	if _, err := d.base(sectors, src[headerBytes:headerBytes+baseLen]); err != nil {
		return 0, err
	}
	sub := make([]byte, d.frames*cdSubSize)
	if rest := src[headerBytes+baseLen:]; len(rest) > 0 {
		// Damaged subchannel data leaves zeros.
		_, _ = d.sub(sub, rest)
	}

	for i := range d.frames {
		if ecc[i/8]&(1<<(i%8)) != 0 {
			copy(sectors[i*cdSectorSize:], cdSyncHeader[:])
		}
	}
	return interleave(dst, sectors, sub, d.frames), nil
}

// interleave writes each sector followed by its subchannel data.
func interleave(dst, sectors, sub []byte, frames int) int {
	off := 0
	for i := range frames {
		off += copy(dst[off:], sectors[i*cdSectorSize:(i+1)*cdSectorSize])
		off += copy(dst[off:], sub[i*cdSubSize:(i+1)*cdSubSize])
	}
	return off
}

// decodeCDFLAC decodes CD audio stored as headerless FLAC frames followed
// by deflated subchannel data. A stream header is synthesized for the
// decoder.
func decodeCDFLAC(dst, src []byte, frames int) (int, error) {
	if len(src) == 0 {
		return 0, fmt.Errorf("%w: cdfl: empty hunk", errDecompress)
	}
	total := frames * cdSectorSize
	cr := &countingReader{header: flacHeader(44100, 2, cdFLACBlockSize(total)), data: src}
	stream, err := flac.New(cr)
	if err != nil {
		return 0, fmt.Errorf("%w: cdfl: %w", errDecompress, err)
	}
	defer func() { _ = stream.Close() }()

	// CD audio is stored big-endian in CHD images.
	sectors := make([]byte, 0, total)
	for len(sectors) < total {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%w: cdfl frame: %w", errDecompress, err)
		}
		channels := min(len(f.Subframes), 2)
		for i := 0; channels > 0 && i < int(f.Subframes[0].NSamples); i++ {
			for ch := range channels {
				s := f.Subframes[ch].Samples[i]
				sectors = append(sectors, byte(s>>8), byte(s))
			}
		}
	}
	sectors = append(sectors, make([]byte, max(0, total-len(sectors)))...)[:total]

	sub := make([]byte, frames*cdSubSize)
	if cr.consumed < len(src) {
		_, _ = inflate(sub, src[cr.consumed:])
	}
	return interleave(dst, sectors, sub, frames), nil
}

// countingReader serves a synthetic header and then data, counting how
// much of data the decoder consumed.
type countingReader struct {
	header   []byte
	data     []byte
	consumed int
}

func (cr *countingReader) Read(buf []byte) (int, error) {
	n := 0
	if len(cr.header) > 0 {
		n = copy(buf, cr.header)
		cr.header = cr.header[n:]
		buf = buf[n:]
	}
	if len(buf) > 0 && cr.consumed < len(cr.data) {
		m := copy(buf, cr.data[cr.consumed:])
		cr.consumed += m
		n += m
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// flacHeader builds a "fLaC" marker and STREAMINFO block for 16-bit audio.
func flacHeader(sampleRate uint32, channels uint8, blockSize uint16) []byte {
	h := []byte{
		'f', 'L', 'a', 'C',
		0x80, 0x00, 0x00, 0x22, // last block, STREAMINFO, 34 bytes
	}
	info := make([]byte, 34)
	binary.BigEndian.PutUint16(info[0:], blockSize)
	binary.BigEndian.PutUint16(info[2:], blockSize)
	// sample rate (20 bits), channels-1 (3 bits), bits per sample-1 (5 bits)
	v := sampleRate<<12 | uint32(channels-1)<<9 | 15<<4
	binary.BigEndian.PutUint32(info[10:], v)
	return append(h, info...)
}

// cdFLACBlockSize halves a quarter of the hunk until it fits a sector.
func cdFLACBlockSize(totalBytes int) uint16 {
	bs := totalBytes / 4
	for bs > cdSectorSize {
		bs /= 2
	}
	return uint16(bs) //nolint:gosec // at most cdSectorSize
}
