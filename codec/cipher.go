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
)

// XOR is a stream cipher that XORs each byte with a key byte chosen by its
// position within the segment.
type XOR struct {
	key func(pos int64) byte
}

// NewXOR returns a cipher that repeats key over the stream.
func NewXOR(key []byte) (*XOR, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: xor: empty key", ErrMalformedInput)
	}
	k := append([]byte(nil), key...)
	n := int64(len(k))
	return &XOR{key: func(pos int64) byte { return k[pos%n] }}, nil
}

// NewPositionalXOR returns a cipher whose key byte is derived from the position.
func NewPositionalXOR(key func(pos int64) byte) *XOR {
	return &XOR{key: key}
}

// Tag implements Codec.
func (*XOR) Tag() Tag { return TagXOR }

// Open implements Codec.
func (x *XOR) Open(src io.Reader, _, decompLen int64) (io.ReadCloser, error) {
	return newSession(TagXOR, src, decompLen, func(in io.Reader) (io.Reader, func() error, error) {
		return &transformReader{r: in, fn: func(pos int64, b byte) byte { return b ^ x.key(pos) }}, nil, nil
	})
}

// RollingSubtract decodes bytes by subtracting a position-derived key and the
// previously decoded byte: out[i] = in[i] - (Key + Step*i) - out[i-1].
type RollingSubtract struct {
	Key  byte
	Step byte
}

// NewRollingSubtract returns the cipher with the given seed key and per-byte step.
func NewRollingSubtract(key, step byte) *RollingSubtract {
	return &RollingSubtract{Key: key, Step: step}
}

// Tag implements Codec.
func (*RollingSubtract) Tag() Tag { return TagRollingSubtract }

// Open implements Codec. The previous-byte state starts at zero for every session.
func (c *RollingSubtract) Open(src io.Reader, _, decompLen int64) (io.ReadCloser, error) {
	return newSession(TagRollingSubtract, src, decompLen, func(in io.Reader) (io.Reader, func() error, error) {
		var prev byte
		return &transformReader{r: in, fn: func(pos int64, b byte) byte {
			out := b - (c.Key + c.Step*byte(pos)) - prev
			prev = out
			return out
		}}, nil, nil
	})
}

// EncodeRollingSubtract is the inverse of RollingSubtract, used to build test
// fixtures and by writers.
func EncodeRollingSubtract(key, step byte, plain []byte) []byte {
	out := make([]byte, len(plain))
	var prev byte
	for i, b := range plain {
		out[i] = b + (key + step*byte(i)) + prev
		prev = b
	}
	return out
}

// transformReader applies fn to every byte with its stream position.
type transformReader struct {
	r   io.Reader
	fn  func(pos int64, b byte) byte
	pos int64
}

func (t *transformReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	for i := range n {
		p[i] = t.fn(t.pos, p[i])
		t.pos++
	}
	return n, err //nolint:wrapcheck // io.Reader contract
}
