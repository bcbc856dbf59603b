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
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

func init() {
	Register(TagDeflate, func() Codec { return Deflate{} })
	Register(TagZlib, func() Codec { return Zlib{} })
	Register(TagGzip, func() Codec { return Gzip{} })
	Register(TagQZlib, func() Codec { return QZlib{} })
}

// Deflate decodes raw DEFLATE streams.
type Deflate struct{}

// Tag implements Codec.
func (Deflate) Tag() Tag { return TagDeflate }

// Open implements Codec.
func (Deflate) Open(src io.Reader, _, decompLen int64) (io.ReadCloser, error) {
	return newSession(TagDeflate, src, decompLen, func(in io.Reader) (io.Reader, func() error, error) {
		fr := flate.NewReader(in)
		return fr, fr.Close, nil
	})
}

// Zlib decodes zlib-wrapped DEFLATE streams.
type Zlib struct{}

// Tag implements Codec.
func (Zlib) Tag() Tag { return TagZlib }

// Open implements Codec.
func (Zlib) Open(src io.Reader, _, decompLen int64) (io.ReadCloser, error) {
	return newSession(TagZlib, src, decompLen, openZlib)
}

func openZlib(in io.Reader) (io.Reader, func() error, error) {
	zr, err := zlib.NewReader(in)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // classified by newSession
	}
	return zr, zr.Close, nil
}

// Gzip decodes gzip members.
type Gzip struct{}

// Tag implements Codec.
func (Gzip) Tag() Tag { return TagGzip }

// Open implements Codec.
func (Gzip) Open(src io.Reader, _, decompLen int64) (io.ReadCloser, error) {
	return newSession(TagGzip, src, decompLen, func(in io.Reader) (io.Reader, func() error, error) {
		gr, err := gzip.NewReader(in)
		if err != nil {
			return nil, nil, err //nolint:wrapcheck // classified by newSession
		}
		return gr, gr.Close, nil
	})
}

// QZlib decodes zlib data preceded by its decompressed length as a 4-byte
// big-endian integer, the layout produced by Qt's qCompress.
type QZlib struct{}

// Tag implements Codec.
func (QZlib) Tag() Tag { return TagQZlib }

// Open implements Codec. A length prefix that disagrees with a known
// decompLen is rejected as malformed.
func (QZlib) Open(src io.Reader, compLen, decompLen int64) (io.ReadCloser, error) {
	if compLen >= 0 && compLen < 4 {
		return nil, fmt.Errorf("%w: qzlb: %d-byte input has no length prefix", ErrMalformedInput, compLen)
	}

	in := &input{r: src}
	var prefix [4]byte
	if _, err := io.ReadFull(in, prefix[:]); err != nil {
		return nil, classify(TagQZlib, in, err)
	}
	declared := int64(binary.BigEndian.Uint32(prefix[:]))
	if decompLen >= 0 && declared != decompLen {
		return nil, fmt.Errorf("%w: qzlb: prefix declares %d bytes, expected %d", ErrMalformedInput, declared, decompLen)
	}
	if declared == 0 {
		return newSession(TagQZlib, in, 0, func(r io.Reader) (io.Reader, func() error, error) {
			return r, nil, nil
		})
	}
	return newSession(TagQZlib, in, declared, openZlib)
}
