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

package binary

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestReadBytesAt(t *testing.T) {
	t.Parallel()

	r := bytes.NewReader([]byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05})

	tests := []struct {
		name    string
		want    []byte
		offset  int64
		length  int
		wantErr bool
	}{
		{name: "read from start", offset: 0, length: 3, want: []byte{0x00, 0x01, 0x02}},
		{name: "read to end", offset: 3, length: 3, want: []byte{0x03, 0x04, 0x05}},
		{name: "read past end", offset: 4, length: 5, wantErr: true},
		{name: "zero length", offset: 6, length: 0, want: []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ReadBytesAt(r, tt.offset, tt.length)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadBytesAt() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, io.ErrUnexpectedEOF) {
					t.Errorf("ReadBytesAt() error = %v, want io.ErrUnexpectedEOF", err)
				}
				return
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("ReadBytesAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadIntegers(t *testing.T) {
	t.Parallel()

	r := bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})

	if v, err := ReadUint8At(r, 7); err != nil || v != 0x08 {
		t.Errorf("ReadUint8At() = 0x%02X, %v", v, err)
	}
	if v, err := ReadUint16LEAt(r, 0); err != nil || v != 0x0201 {
		t.Errorf("ReadUint16LEAt() = 0x%04X, %v", v, err)
	}
	if v, err := ReadUint16BEAt(r, 0); err != nil || v != 0x0102 {
		t.Errorf("ReadUint16BEAt() = 0x%04X, %v", v, err)
	}
	if v, err := ReadUint32LEAt(r, 4); err != nil || v != 0x08070605 {
		t.Errorf("ReadUint32LEAt() = 0x%08X, %v", v, err)
	}
	if v, err := ReadUint32BEAt(r, 4); err != nil || v != 0x05060708 {
		t.Errorf("ReadUint32BEAt() = 0x%08X, %v", v, err)
	}
	if v, err := ReadUint64LEAt(r, 0); err != nil || v != 0x0807060504030201 {
		t.Errorf("ReadUint64LEAt() = 0x%016X, %v", v, err)
	}
	if v, err := ReadUint64BEAt(r, 0); err != nil || v != 0x0102030405060708 {
		t.Errorf("ReadUint64BEAt() = 0x%016X, %v", v, err)
	}
	if _, err := ReadUint64BEAt(r, 1); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadUint64BEAt() past end error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestReadCStringAt(t *testing.T) {
	t.Parallel()

	long := bytes.Repeat([]byte{'a'}, 200)
	tests := []struct {
		name     string
		wantErr  error
		data     []byte
		want     string
		offset   int64
		limit    int
		wantSize int
	}{
		{name: "simple", data: []byte("abc\x00def"), limit: 16, want: "abc", wantSize: 4},
		{name: "offset", data: []byte("abc\x00def\x00"), offset: 4, limit: 16, want: "def", wantSize: 4},
		{name: "empty", data: []byte{0, 1}, limit: 16, want: "", wantSize: 1},
		{name: "crosses chunk", data: append(append([]byte{}, long...), 0), limit: 256, want: string(long), wantSize: 201},
		{name: "unterminated", data: []byte("abc"), limit: 16, wantErr: io.ErrUnexpectedEOF},
		{name: "too long", data: append(append([]byte{}, long...), 0), limit: 100, wantErr: ErrStringTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, n, err := ReadCStringAt(bytes.NewReader(tt.data), tt.offset, tt.limit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadCStringAt() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadCStringAt() error = %v", err)
			}
			if got != tt.want || n != tt.wantSize {
				t.Errorf("ReadCStringAt() = %q, %d; want %q, %d", got, n, tt.want, tt.wantSize)
			}
		})
	}
}

func TestCleanString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input []byte
		want  string
	}{
		{[]byte("HELLO   "), "HELLO"},
		{[]byte("NAME\x00garbage"), "NAME"},
		{[]byte("  padded \x00\x00"), "padded"},
		{[]byte{}, ""},
	}
	for _, tt := range tests {
		if got := CleanString(tt.input); got != tt.want {
			t.Errorf("CleanString(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestExtractPrintable(t *testing.T) {
	t.Parallel()

	if got := ExtractPrintable([]byte{0x01, 'A', 0xFF, 'B', ' ', 'C', 0x7F}); got != "AB C" {
		t.Errorf("ExtractPrintable() = %q, want %q", got, "AB C")
	}
}

func TestFindBytesInRange(t *testing.T) {
	t.Parallel()

	data := []byte("....CD001....CD001")
	r := bytes.NewReader(data)

	tests := []struct {
		name  string
		start int64
		end   int64
		want  int64
	}{
		{name: "first match", start: 0, end: int64(len(data)), want: 4},
		{name: "second match", start: 5, end: int64(len(data)), want: 13},
		{name: "not in range", start: 0, end: 6, want: -1},
		{name: "empty range", start: 10, end: 10, want: -1},
		{name: "end past data", start: 10, end: 100, want: 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := FindBytesInRange(r, tt.start, tt.end, []byte("CD001"))
			if err != nil {
				t.Fatalf("FindBytesInRange() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FindBytesInRange() = %d, want %d", got, tt.want)
			}
		})
	}
}
