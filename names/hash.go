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

// Package names recovers resource names from hash-only directories using
// externally maintained name lists.
package names

import (
	"fmt"
	"hash/crc32"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Hasher maps a name to the hash stored in an archive directory.
type Hasher func(name string) uint64

// NFSHash is the 32-bit multiply-by-33 hash used by ZDIR directories,
// seeded with 0xFFFFFFFF.
func NFSHash(name string) uint64 {
	h := uint32(0xFFFFFFFF)
	for i := range len(name) {
		h = 33*h + uint32(name[i])
	}
	return uint64(h)
}

// FNV1a64 is the 64-bit FNV-1a hash.
func FNV1a64(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

// XXHash64 is the 64-bit xxHash with seed zero.
func XXHash64(name string) uint64 {
	return xxhash.Sum64String(name)
}

// CRC32 is the IEEE CRC-32 of the name.
func CRC32(name string) uint64 {
	return uint64(crc32.ChecksumIEEE([]byte(name)))
}

var hashers = map[string]Hasher{
	"nfs":      NFSHash,
	"fnv1a64":  FNV1a64,
	"xxhash64": XXHash64,
	"crc32":    CRC32,
}

// HasherByName returns a built-in hasher: nfs, fnv1a64, xxhash64 or crc32.
func HasherByName(name string) (Hasher, error) {
	h, ok := hashers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown hasher %q (have %s)", name, strings.Join(HasherNames(), ", "))
	}
	return h, nil
}

// HasherNames returns the built-in hasher names in sorted order.
func HasherNames() []string {
	out := make([]string, 0, len(hashers))
	for name := range hashers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
