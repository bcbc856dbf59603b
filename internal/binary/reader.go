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

// Package binary provides fixed-width integer and string reads over io.ReaderAt.
package binary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
)

// ReadAt reads exactly len(buf) bytes from r at offset.
// A short read is reported as io.ErrUnexpectedEOF.
func ReadAt(r io.ReaderAt, offset int64, buf []byte) error {
	n, err := r.ReadAt(buf, offset)
	if n == len(buf) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ReadBytesAt reads n bytes from r at offset.
func ReadBytesAt(r io.ReaderAt, offset int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := ReadAt(r, offset, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadUint8At reads a single byte from r at offset.
func ReadUint8At(r io.ReaderAt, offset int64) (uint8, error) {
	var buf [1]byte
	if err := ReadAt(r, offset, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16LEAt reads a little-endian uint16 from r at offset.
func ReadUint16LEAt(r io.ReaderAt, offset int64) (uint16, error) {
	var buf [2]byte
	if err := ReadAt(r, offset, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// ReadUint16BEAt reads a big-endian uint16 from r at offset.
func ReadUint16BEAt(r io.ReaderAt, offset int64) (uint16, error) {
	var buf [2]byte
	if err := ReadAt(r, offset, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// ReadUint32LEAt reads a little-endian uint32 from r at offset.
func ReadUint32LEAt(r io.ReaderAt, offset int64) (uint32, error) {
	var buf [4]byte
	if err := ReadAt(r, offset, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadUint32BEAt reads a big-endian uint32 from r at offset.
func ReadUint32BEAt(r io.ReaderAt, offset int64) (uint32, error) {
	var buf [4]byte
	if err := ReadAt(r, offset, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadUint64LEAt reads a little-endian uint64 from r at offset.
func ReadUint64LEAt(r io.ReaderAt, offset int64) (uint64, error) {
	var buf [8]byte
	if err := ReadAt(r, offset, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// ReadUint64BEAt reads a big-endian uint64 from r at offset.
func ReadUint64BEAt(r io.ReaderAt, offset int64) (uint64, error) {
	var buf [8]byte
	if err := ReadAt(r, offset, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// ReadStringAt reads a string of n bytes from r at offset, trimming null bytes and spaces.
func ReadStringAt(r io.ReaderAt, offset int64, n int) (string, error) {
	buf, err := ReadBytesAt(r, offset, n)
	if err != nil {
		return "", err
	}
	return CleanString(buf), nil
}

// ReadCStringAt reads a NUL-terminated string starting at offset.
// At most limit bytes are examined; the returned length includes the terminator.
// A string that reaches limit or the end of r without a terminator is an error.
func ReadCStringAt(r io.ReaderAt, offset int64, limit int) (string, int, error) {
	const chunk = 64
	var out []byte
	buf := make([]byte, chunk)
	for len(out) < limit {
		want := min(chunk, limit-len(out))
		n, err := r.ReadAt(buf[:want], offset+int64(len(out)))
		if idx := bytes.IndexByte(buf[:n], 0); idx >= 0 {
			out = append(out, buf[:idx]...)
			return string(out), len(out) + 1, nil
		}
		out = append(out, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", 0, io.ErrUnexpectedEOF
			}
			return "", 0, err
		}
	}
	return "", 0, ErrStringTooLong
}

// ErrStringTooLong is returned when a NUL-terminated string exceeds its read limit.
var ErrStringTooLong = errors.New("string exceeds limit without terminator")

// CleanString converts bytes to a string, trimming null bytes and whitespace.
func CleanString(b []byte) string {
	if idx := bytes.IndexByte(b, 0); idx >= 0 {
		b = b[:idx]
	}
	return strings.TrimSpace(string(b))
}

// ExtractPrintable extracts only printable ASCII characters (0x20-0x7E) from bytes.
func ExtractPrintable(b []byte) string {
	var result strings.Builder
	for _, c := range b {
		if c >= 0x20 && c <= 0x7E {
			result.WriteByte(c)
		}
	}
	return strings.TrimSpace(result.String())
}

// FindBytesInRange searches for needle in r between start and end offsets.
// Returns the absolute offset or -1 if not found.
func FindBytesInRange(r io.ReaderAt, start, end int64, needle []byte) (int64, error) {
	size := end - start
	if size <= 0 {
		return -1, nil
	}
	buf := make([]byte, size)
	n, err := r.ReadAt(buf, start)
	if err != nil && !errors.Is(err, io.EOF) {
		return -1, err
	}
	idx := bytes.Index(buf[:n], needle)
	if idx == -1 {
		return -1, nil
	}
	return start + int64(idx), nil
}
