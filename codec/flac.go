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
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
)

func init() {
	Register(TagFLAC, func() Codec { return FLAC{Order: binary.LittleEndian} })
}

// FLAC decodes a FLAC stream to interleaved 16-bit PCM samples.
// At most two channels are emitted.
type FLAC struct {
	// Order selects the sample byte order. Nil means little-endian.
	Order binary.ByteOrder
}

// Tag implements Codec.
func (FLAC) Tag() Tag { return TagFLAC }

// Open implements Codec.
func (c FLAC) Open(src io.Reader, _, decompLen int64) (io.ReadCloser, error) {
	order := c.Order
	if order == nil {
		order = binary.LittleEndian
	}
	return newSession(TagFLAC, src, decompLen, func(in io.Reader) (io.Reader, func() error, error) {
		stream, err := flac.New(in)
		if err != nil {
			return nil, nil, err //nolint:wrapcheck // classified by newSession
		}
		return &pcmReader{stream: stream, order: order}, stream.Close, nil
	})
}

// pcmReader decodes one FLAC frame at a time into a sample buffer.
type pcmReader struct {
	stream *flac.Stream
	order  binary.ByteOrder
	buf    []byte
}

func (p *pcmReader) Read(dst []byte) (int, error) {
	for len(p.buf) == 0 {
		f, err := p.stream.ParseNext()
		if err != nil {
			return 0, err //nolint:wrapcheck // classified by session
		}
		p.buf = appendSamples(p.buf[:0], f, p.order)
	}
	n := copy(dst, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

// appendSamples interleaves the samples of f as 16-bit values.
func appendSamples(out []byte, f *frame.Frame, order binary.ByteOrder) []byte {
	if len(f.Subframes) == 0 {
		return out
	}
	channels := min(len(f.Subframes), 2)
	var sample [2]byte
	for i := range f.Subframes[0].NSamples {
		for ch := range channels {
			order.PutUint16(sample[:], uint16(int16(f.Subframes[ch].Samples[i]))) //nolint:gosec // 16-bit PCM
			out = append(out, sample[:]...)
		}
	}
	return out
}
