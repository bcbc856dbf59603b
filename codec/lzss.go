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
	"fmt"
	"io"

	"github.com/woozymasta/lzss"
)

func init() {
	Register(TagLZSS, func() Codec { return LZSS{} })
}

// LZSS decodes the LZSS variant used by PBO archives. The format carries no
// end marker, so the decompressed length must be known.
type LZSS struct{}

// Tag implements Codec.
func (LZSS) Tag() Tag { return TagLZSS }

// Open implements Codec.
func (LZSS) Open(src io.Reader, _, decompLen int64) (io.ReadCloser, error) {
	if decompLen < 0 {
		return nil, fmt.Errorf("%w: lzss: decompressed length required", ErrMalformedInput)
	}
	outLen := int(decompLen)
	if int64(outLen) != decompLen {
		return nil, fmt.Errorf("%w: lzss: length %d overflows int", ErrMalformedInput, decompLen)
	}

	return newSession(TagLZSS, src, decompLen, func(in io.Reader) (io.Reader, func() error, error) {
		pr, pw := io.Pipe()
		go func() {
			_, err := lzss.DecompressToWriter(pw, in, outLen, nil)
			_ = pw.CloseWithError(err)
		}()
		return pr, pr.Close, nil
	})
}
