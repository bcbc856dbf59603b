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

package codec

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

func init() {
	Register(TagLZMA, func() Codec { return LZMA{} })
	Register(TagXZ, func() Codec { return XZ{} })
	Register(TagRawLZMA, func() Codec { return RawLZMA{Props: DefaultLZMAProps} })
}

// DefaultLZMAProps is the properties byte for lc=3, lp=0, pb=2.
const DefaultLZMAProps = 0x5D

// LZMA decodes streams carrying the classic 13-byte LZMA header.
type LZMA struct{}

// Tag implements Codec.
func (LZMA) Tag() Tag { return TagLZMA }

// Open implements Codec.
func (LZMA) Open(src io.Reader, _, decompLen int64) (io.ReadCloser, error) {
	return newSession(TagLZMA, src, decompLen, func(in io.Reader) (io.Reader, func() error, error) {
		lr, err := lzma.NewReader(in)
		if err != nil {
			return nil, nil, err //nolint:wrapcheck // classified by newSession
		}
		return lr, nil, nil
	})
}

// RawLZMA decodes a headerless LZMA stream. The header the library expects
// is synthesized from the stored properties and the declared output length.
type RawLZMA struct {
	// Props is the lc/lp/pb properties byte.
	Props byte

	// DictSize is the dictionary size. Zero derives it from the output length.
	DictSize uint32
}

// Tag implements Codec.
func (RawLZMA) Tag() Tag { return TagRawLZMA }

// Open implements Codec.
func (c RawLZMA) Open(src io.Reader, _, decompLen int64) (io.ReadCloser, error) {
	dict := c.DictSize
	if dict == 0 {
		dict = LZMADictSize(decompLen)
	}

	header := make([]byte, 13)
	header[0] = c.Props
	binary.LittleEndian.PutUint32(header[1:5], dict)
	size := uint64(decompLen)
	if decompLen < 0 {
		size = ^uint64(0)
	}
	binary.LittleEndian.PutUint64(header[5:13], size)

	return newSession(TagRawLZMA, src, decompLen, func(in io.Reader) (io.Reader, func() error, error) {
		lr, err := lzma.NewReader(io.MultiReader(bytes.NewReader(header), in))
		if err != nil {
			return nil, nil, err //nolint:wrapcheck // classified by newSession
		}
		return lr, nil, nil
	})
}

// LZMADictSize returns the smallest 2<<i or 3<<i not below n, the
// normalization encoders apply when the input size is known.
func LZMADictSize(n int64) uint32 {
	if n <= 0 {
		return 1 << 26
	}
	for i := uint32(11); i <= 30; i++ {
		if n <= int64(2)<<i {
			return 2 << i
		}
		if n <= int64(3)<<i {
			return 3 << i
		}
	}
	return 1 << 26
}

// XZ decodes xz containers.
type XZ struct{}

// Tag implements Codec.
func (XZ) Tag() Tag { return TagXZ }

// Open implements Codec.
func (XZ) Open(src io.Reader, _, decompLen int64) (io.ReadCloser, error) {
	return newSession(TagXZ, src, decompLen, func(in io.Reader) (io.Reader, func() error, error) {
		xr, err := xz.NewReader(in)
		if err != nil {
			return nil, nil, err //nolint:wrapcheck // classified by newSession
		}
		return xr, nil, nil
	})
}
