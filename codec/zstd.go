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
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

func init() {
	Register(TagZstd, func() Codec { return Zstd{} })
}

// zstdPool holds idle decoders between sessions.
var zstdPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil
		}
		return dec
	},
}

// getZstdDecoder returns a decoder reading from r and the function that
// releases it. Decoders return to the pool when released.
func getZstdDecoder(r io.Reader) (*zstd.Decoder, func() error, error) {
	dec, ok := zstdPool.Get().(*zstd.Decoder)
	if !ok || dec == nil {
		fresh, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, err //nolint:wrapcheck // classified by newSession
		}
		return fresh, func() error { fresh.Close(); return nil }, nil
	}
	if err := dec.Reset(r); err != nil {
		dec.Close()
		return nil, nil, err //nolint:wrapcheck // classified by newSession
	}
	return dec, func() error {
		_ = dec.Reset(nil)
		zstdPool.Put(dec)
		return nil
	}, nil
}

// Zstd decodes Zstandard frames.
type Zstd struct{}

// Tag implements Codec.
func (Zstd) Tag() Tag { return TagZstd }

// Open implements Codec.
func (Zstd) Open(src io.Reader, _, decompLen int64) (io.ReadCloser, error) {
	return newSession(TagZstd, src, decompLen, func(in io.Reader) (io.Reader, func() error, error) {
		dec, release, err := getZstdDecoder(in)
		if err != nil {
			return nil, nil, err
		}
		return dec, release, nil
	})
}
