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

import "errors"

// Errors reported by decode sessions.
var (
	// ErrMalformedInput indicates the compressed data violates its codec's framing.
	ErrMalformedInput = errors.New("malformed codec input")

	// ErrTruncatedStream indicates the input ended before the declared output length.
	ErrTruncatedStream = errors.New("truncated stream")

	// ErrUnsupportedCodec indicates a codec tag with no registered implementation.
	ErrUnsupportedCodec = errors.New("unsupported codec")
)
