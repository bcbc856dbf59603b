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

// Package source provides random-access byte sources over files, memory and
// lazily materialized buffers, plus resolution of multi-file archive sets.
package source

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrClosedSource is returned by reads against a source that has been closed.
var ErrClosedSource = errors.New("source closed")

// ErrNegativeOffset is returned for reads before the start of a source.
var ErrNegativeOffset = errors.New("negative offset")

// Source is a random-access byte source with a known length.
// Implementations are safe for concurrent ReadAt calls.
type Source interface {
	io.ReaderAt
	io.Closer

	// Size returns the total length in bytes.
	Size() int64

	// Name identifies the source in errors and logs.
	Name() string
}

// guarded adapts an io.ReaderAt into a Source that refuses reads after Close.
type guarded struct {
	r      io.ReaderAt
	closer io.Closer
	name   string
	size   int64
	mu     sync.RWMutex
	closed bool
}

// Guard wraps r as a Source of the given size. closer may be nil.
// Reads past size are cut short with io.EOF and reads after Close fail
// with ErrClosedSource.
func Guard(name string, r io.ReaderAt, size int64, closer io.Closer) Source {
	return &guarded{name: name, r: r, size: size, closer: closer}
}

func (g *guarded) ReadAt(p []byte, off int64) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return 0, fmt.Errorf("read %s: %w", g.name, ErrClosedSource)
	}
	if off < 0 {
		return 0, fmt.Errorf("read %s at %d: %w", g.name, off, ErrNegativeOffset)
	}
	if off >= g.size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	short := false
	if remain := g.size - off; int64(len(p)) > remain {
		p = p[:remain]
		short = true
	}
	n, err := g.r.ReadAt(p, off)
	if err == nil && short {
		err = io.EOF
	}
	return n, err //nolint:wrapcheck // io.EOF must reach callers unwrapped
}

func (g *guarded) Size() int64  { return g.size }
func (g *guarded) Name() string { return g.name }

func (g *guarded) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true
	if g.closer != nil {
		if err := g.closer.Close(); err != nil {
			return fmt.Errorf("close %s: %w", g.name, err)
		}
	}
	return nil
}
