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

	"github.com/ZaparooProject/go-gamearchive/internal/binary"
)

// Cursor reads sequentially through an io.ReaderAt.
// It tracks its own offset so several cursors can share one Source.
type Cursor struct {
	r    io.ReaderAt
	off  int64
	size int64
}

// NewCursor returns a cursor positioned at the start of src.
func NewCursor(src Source) *Cursor {
	return &Cursor{r: src, size: src.Size()}
}

// NewCursorAt returns a cursor over r of the given size, positioned at off.
func NewCursorAt(r io.ReaderAt, size, off int64) *Cursor {
	return &Cursor{r: r, size: size, off: off}
}

// Seek moves the cursor to an absolute offset.
func (c *Cursor) Seek(off int64) error {
	if off < 0 {
		return fmt.Errorf("seek to %d: %w", off, ErrNegativeOffset)
	}
	c.off = off
	return nil
}

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n int64) error {
	return c.Seek(c.off + n)
}

// Offset returns the current absolute offset.
func (c *Cursor) Offset() int64 { return c.off }

// Size returns the length of the underlying data.
func (c *Cursor) Size() int64 { return c.size }

// Remaining returns the number of bytes between the cursor and the end.
func (c *Cursor) Remaining() int64 {
	return max(c.size-c.off, 0)
}

// Read implements io.Reader.
func (c *Cursor) Read(p []byte) (int, error) {
	if c.off >= c.size {
		return 0, io.EOF
	}
	if remain := c.size - c.off; int64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := c.r.ReadAt(p, c.off)
	c.off += int64(n)
	if err == io.EOF && n > 0 { //nolint:errorlint // io.EOF is never wrapped by ReaderAt
		err = nil
	}
	return n, err //nolint:wrapcheck // io.Reader contract
}

// ReadBytes reads exactly n bytes.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("read %d bytes: negative length", n)
	}
	buf, err := binary.ReadBytesAt(c.r, c.off, n)
	if err != nil {
		return nil, fmt.Errorf("read %d bytes at %d: %w", n, c.off, err)
	}
	c.off += int64(n)
	return buf, nil
}

// Uint8 reads one byte.
func (c *Cursor) Uint8() (uint8, error) {
	v, err := binary.ReadUint8At(c.r, c.off)
	return v, c.advance(1, err)
}

// Uint16LE reads a little-endian uint16.
func (c *Cursor) Uint16LE() (uint16, error) {
	v, err := binary.ReadUint16LEAt(c.r, c.off)
	return v, c.advance(2, err)
}

// Uint16BE reads a big-endian uint16.
func (c *Cursor) Uint16BE() (uint16, error) {
	v, err := binary.ReadUint16BEAt(c.r, c.off)
	return v, c.advance(2, err)
}

// Uint32LE reads a little-endian uint32.
func (c *Cursor) Uint32LE() (uint32, error) {
	v, err := binary.ReadUint32LEAt(c.r, c.off)
	return v, c.advance(4, err)
}

// Uint32BE reads a big-endian uint32.
func (c *Cursor) Uint32BE() (uint32, error) {
	v, err := binary.ReadUint32BEAt(c.r, c.off)
	return v, c.advance(4, err)
}

// Uint64LE reads a little-endian uint64.
func (c *Cursor) Uint64LE() (uint64, error) {
	v, err := binary.ReadUint64LEAt(c.r, c.off)
	return v, c.advance(8, err)
}

// Uint64BE reads a big-endian uint64.
func (c *Cursor) Uint64BE() (uint64, error) {
	v, err := binary.ReadUint64BEAt(c.r, c.off)
	return v, c.advance(8, err)
}

// CString reads a NUL-terminated string of at most limit bytes including the terminator.
func (c *Cursor) CString(limit int) (string, error) {
	s, n, err := binary.ReadCStringAt(c.r, c.off, limit)
	if err != nil {
		return "", fmt.Errorf("read string at %d: %w", c.off, err)
	}
	c.off += int64(n)
	return s, nil
}

// FixedString reads an n-byte field and trims NUL padding and spaces.
func (c *Cursor) FixedString(n int) (string, error) {
	buf, err := c.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return binary.CleanString(buf), nil
}

func (c *Cursor) advance(n int64, err error) error {
	if err != nil {
		return fmt.Errorf("read at %d: %w", c.off, err)
	}
	c.off += n
	return nil
}
