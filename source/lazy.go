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

package source

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// Lazy is a Source whose bytes are produced by fill on first access.
// It backs in-memory intermediate buffers such as the output of one codec
// stage feeding the next.
type Lazy struct {
	fill   func() ([]byte, error)
	err    error
	name   string
	data   []byte
	size   int64
	once   sync.Once
	mu     sync.RWMutex
	done   atomic.Bool
	closed bool
}

// NewLazy returns a Lazy source. A negative size means the length is only
// known once fill has run.
func NewLazy(name string, size int64, fill func() ([]byte, error)) *Lazy {
	return &Lazy{name: name, size: size, fill: fill}
}

// NewLazyStream returns a Lazy source filled by reading the stream open
// returns. The stream must produce exactly size bytes.
func NewLazyStream(name string, size int64, open func() (io.ReadCloser, error)) *Lazy {
	return NewLazy(name, size, func() ([]byte, error) {
		rc, err := open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = rc.Close() }()
		data, err := io.ReadAll(io.LimitReader(rc, size+1))
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped by load
		}
		if int64(len(data)) != size {
			return nil, fmt.Errorf("stream of %d bytes, want %d: %w", len(data), size, io.ErrUnexpectedEOF)
		}
		return data, nil
	})
}

func (l *Lazy) load() error {
	l.once.Do(func() {
		defer l.done.Store(true)
		data, err := l.fill()
		if err != nil {
			l.err = fmt.Errorf("materialize %s: %w", l.name, err)
			return
		}
		l.data = data
		l.fill = nil
	})
	return l.err
}

// ReadAt implements io.ReaderAt.
func (l *Lazy) ReadAt(p []byte, off int64) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return 0, fmt.Errorf("read %s: %w", l.name, ErrClosedSource)
	}
	if off < 0 {
		return 0, fmt.Errorf("read %s at %d: %w", l.name, off, ErrNegativeOffset)
	}
	if err := l.load(); err != nil {
		return 0, err
	}
	if off >= int64(len(l.data)) {
		return 0, io.EOF
	}
	n := copy(p, l.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the declared size, materializing the buffer if it was unknown.
func (l *Lazy) Size() int64 {
	if l.size >= 0 {
		return l.size
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed || l.load() != nil {
		return 0
	}
	return int64(len(l.data))
}

// Name implements Source.
func (l *Lazy) Name() string { return l.name }

// Materialized reports whether fill has already run.
func (l *Lazy) Materialized() bool {
	return l.done.Load()
}

// Close releases the buffer.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.data = nil
	return nil
}
