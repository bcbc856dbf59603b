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
	"testing"
)

// FuzzReadCStringAt checks that string reads never panic and never overrun their limit.
func FuzzReadCStringAt(f *testing.F) {
	f.Add([]byte("hello\x00world"), int64(0), 16)
	f.Add([]byte("no terminator"), int64(3), 4)
	f.Add([]byte{}, int64(0), 0)
	f.Add([]byte{0}, int64(5), 1)

	f.Fuzz(func(t *testing.T, data []byte, offset int64, limit int) {
		if offset < 0 || limit < 0 || limit > 1<<16 {
			return
		}
		s, n, err := ReadCStringAt(bytes.NewReader(data), offset, limit)
		if err != nil {
			return
		}
		if n != len(s)+1 {
			t.Errorf("ReadCStringAt() size = %d for %d-byte string", n, len(s))
		}
		if n > limit {
			t.Errorf("ReadCStringAt() consumed %d bytes past limit %d", n, limit)
		}
		if bytes.IndexByte([]byte(s), 0) >= 0 {
			t.Error("ReadCStringAt() returned string containing NUL")
		}
	})
}

// FuzzFindBytesInRange checks that a reported match is really present.
func FuzzFindBytesInRange(f *testing.F) {
	f.Add([]byte("hello world"), []byte("world"), int64(0), int64(11))
	f.Add([]byte("aaa"), []byte("a"), int64(1), int64(2))
	f.Add([]byte{}, []byte("x"), int64(0), int64(0))

	f.Fuzz(func(t *testing.T, haystack, needle []byte, start, end int64) {
		if start < 0 || end > int64(len(haystack))+64 || end-start > 1<<16 {
			return
		}
		idx, err := FindBytesInRange(bytes.NewReader(haystack), start, end, needle)
		if err != nil || idx < 0 {
			return
		}
		if idx < start || idx+int64(len(needle)) > int64(len(haystack)) {
			t.Fatalf("FindBytesInRange() = %d out of range", idx)
		}
		if !bytes.Equal(haystack[idx:idx+int64(len(needle))], needle) {
			t.Errorf("FindBytesInRange() = %d but needle not found there", idx)
		}
	})
}
