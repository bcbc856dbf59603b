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

func init() {
	Register(TagNone, func() Codec { return Store{} })
}

// Store copies stored bytes through unchanged.
type Store struct{}

// Tag implements Codec.
func (Store) Tag() Tag { return TagNone }

// Open implements Codec.
func (Store) Open(src io.Reader, _, decompLen int64) (io.ReadCloser, error) {
	return newSession(TagNone, src, decompLen, func(in io.Reader) (io.Reader, func() error, error) {
		return in, nil, nil
	})
}

// unsupported fails every Open with ErrUnsupportedCodec.
type unsupported struct {
	reason string
}

// Unsupported returns a codec standing in for data the engine cannot decode.
// Parsing succeeds; extraction of the affected segment fails.
func Unsupported(reason string) Codec {
	return unsupported{reason: reason}
}

func (unsupported) Tag() Tag { return TagUnsupported }

func (u unsupported) Open(io.Reader, int64, int64) (io.ReadCloser, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, u.reason)
}
