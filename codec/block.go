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
	"fmt"
	"io"
)

// BlockFunc decompresses src into dst, which is sized to the declared output
// length, and returns the number of bytes written.
type BlockFunc func(dst, src []byte) (int, error)

// block adapts a whole-buffer decompressor to the streaming Codec contract.
type block struct {
	fn  BlockFunc
	tag Tag
}

// Block returns a codec that reads the full compressed range into memory
// and decodes it in one call to fn. The decompressed length must be known.
func Block(tag Tag, fn BlockFunc) Codec {
	return block{tag: tag, fn: fn}
}

func (b block) Tag() Tag { return b.tag }

func (b block) Open(src io.Reader, compLen, decompLen int64) (io.ReadCloser, error) {
	if decompLen < 0 {
		return nil, fmt.Errorf("%w: %s: decompressed length required", ErrMalformedInput, b.tag)
	}
	in, err := readInput(b.tag, src, compLen)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, decompLen)
	n, err := b.fn(dst, in)
	if err != nil {
		return nil, classify(b.tag, nil, err)
	}
	return newSession(b.tag, bytes.NewReader(dst[:n]), decompLen, func(r io.Reader) (io.Reader, func() error, error) {
		return r, nil, nil
	})
}
