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
	"errors"
	"fmt"
	"io"
)

// input wraps the compressed reader and remembers failures of the
// underlying source so they are not mistaken for codec errors.
type input struct {
	r   io.Reader
	err error
	n   int64
}

func (in *input) Read(p []byte) (int, error) {
	n, err := in.r.Read(p)
	in.n += int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		in.err = err
	}
	return n, err //nolint:wrapcheck // io.Reader contract
}

// session frames a decoder's output to the declared decompressed length.
type session struct {
	dec      io.Reader
	in       *input
	closeFn  func() error
	err      error
	tag      Tag
	want     int64
	produced int64
}

// newSession wires the decoder built by open over src into a framed stream.
// closeFn may be nil.
func newSession(tag Tag, src io.Reader, decompLen int64, open func(io.Reader) (io.Reader, func() error, error)) (io.ReadCloser, error) {
	in := &input{r: src}
	dec, closeFn, err := open(in)
	if err != nil {
		return nil, classify(tag, in, err)
	}
	return &session{tag: tag, dec: dec, in: in, closeFn: closeFn, want: decompLen}, nil
}

func (s *session) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.want >= 0 {
		remain := s.want - s.produced
		if remain == 0 {
			s.err = io.EOF
			return 0, io.EOF
		}
		if int64(len(p)) > remain {
			p = p[:remain]
		}
	}

	n, err := s.dec.Read(p)
	s.produced += int64(n)

	switch {
	case err == nil:
	case err == io.EOF: //nolint:errorlint // decoders signal end with bare io.EOF
		if s.want >= 0 && s.produced < s.want {
			s.err = fmt.Errorf("%w: %s produced %d of %d bytes", ErrTruncatedStream, s.tag, s.produced, s.want)
		} else {
			s.err = io.EOF
		}
	default:
		s.err = classify(s.tag, s.in, err)
	}

	if s.err == nil && s.want >= 0 && s.produced == s.want {
		s.err = io.EOF
	}
	if n > 0 {
		return n, nil
	}
	if s.err == nil {
		return 0, nil
	}
	return 0, s.err
}

func (s *session) Close() error {
	if s.closeFn == nil {
		return nil
	}
	fn := s.closeFn
	s.closeFn = nil
	return fn()
}

// classify maps a decoder failure onto the package error taxonomy.
func classify(tag Tag, in *input, err error) error {
	switch {
	case in != nil && in.err != nil:
		return fmt.Errorf("%s: read input: %w", tag, in.err)
	case errors.Is(err, ErrTruncatedStream), errors.Is(err, ErrMalformedInput), errors.Is(err, ErrUnsupportedCodec):
		return err
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return fmt.Errorf("%w: %s: %w", ErrTruncatedStream, tag, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrMalformedInput, tag, err)
	}
}

// readInput drains exactly compLen bytes of compressed input.
func readInput(tag Tag, src io.Reader, compLen int64) ([]byte, error) {
	if compLen < 0 {
		in := &input{r: src}
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, classify(tag, in, err)
		}
		return data, nil
	}
	in := &input{r: src}
	data := make([]byte, compLen)
	if _, err := io.ReadFull(in, data); err != nil {
		return nil, classify(tag, in, err)
	}
	return data, nil
}
