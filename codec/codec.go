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

// Package codec provides pluggable decoders that turn a compressed byte range
// into a stream of exactly the declared decompressed length.
package codec

import (
	"fmt"
	"io"
	"slices"
	"sync"
)

// Tag identifies a codec as a four-character code packed big-endian into a uint32.
type Tag uint32

// MakeTag packs up to four ASCII characters into a Tag. Shorter names are space padded.
func MakeTag(s string) Tag {
	var b [4]byte
	for i := range b {
		b[i] = ' '
		if i < len(s) {
			b[i] = s[i]
		}
	}
	return Tag(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

// String returns the ASCII form of the tag.
func (t Tag) String() string {
	if t == TagNone {
		return "none"
	}
	b := []byte{byte(t >> 24), byte(t >> 16), byte(t >> 8), byte(t)}
	for len(b) > 0 && b[len(b)-1] == ' ' {
		b = b[:len(b)-1]
	}
	return string(b)
}

// Codec tags for the built-in codecs.
const (
	// TagNone stores data uncompressed.
	TagNone Tag = 0x00000000

	// TagDeflate is raw DEFLATE (RFC 1951) ("defl").
	TagDeflate Tag = 0x6465666c

	// TagZlib is zlib-wrapped DEFLATE (RFC 1950) ("zlib").
	TagZlib Tag = 0x7a6c6962

	// TagGzip is gzip (RFC 1952) ("gzip").
	TagGzip Tag = 0x677a6970

	// TagQZlib is zlib preceded by a 4-byte big-endian decompressed length ("qzlb").
	TagQZlib Tag = 0x717a6c62

	// TagZstd is Zstandard ("zstd").
	TagZstd Tag = 0x7a737464

	// TagLZMA is LZMA with the classic 13-byte header ("lzma").
	TagLZMA Tag = 0x6c7a6d61

	// TagRawLZMA is a headerless LZMA stream with out-of-band properties ("rlzm").
	TagRawLZMA Tag = 0x726c7a6d

	// TagXZ is the xz container ("xz  ").
	TagXZ Tag = 0x787a2020

	// TagLZSS is the LZSS variant used by Bohemia PBO archives ("lzss").
	TagLZSS Tag = 0x6c7a7373

	// TagFLAC decodes a FLAC stream to interleaved 16-bit PCM ("flac").
	TagFLAC Tag = 0x666c6163

	// TagXOR is a repeating or position-derived XOR cipher ("xor ").
	TagXOR Tag = 0x786f7220

	// TagRollingSubtract is the position and previous-byte keyed subtract cipher ("rsub").
	TagRollingSubtract Tag = 0x72737562

	// TagUnsupported marks data whose codec cannot be decoded ("unsp").
	TagUnsupported Tag = 0x756e7370
)

// Codec decodes one compressed byte range per Open call.
type Codec interface {
	// Tag returns the codec identifier.
	Tag() Tag

	// Open starts a decode session over src, which yields the compLen
	// compressed bytes of one segment. The returned stream produces exactly
	// decompLen bytes, or streams until the codec ends when decompLen is
	// negative. Every Open starts from fresh state.
	Open(src io.Reader, compLen, decompLen int64) (io.ReadCloser, error)
}

// Factory constructs a codec instance.
type Factory func() Codec

// Registry maps tags to codec factories. It is safe for concurrent use.
type Registry struct {
	factories map[Tag]Factory
	mu        sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Tag]Factory)}
}

// Register adds or replaces the factory for tag.
func (r *Registry) Register(tag Tag, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[tag] = factory
}

// Get returns a codec instance for tag.
func (r *Registry) Get(tag Tag) (Codec, error) {
	r.mu.RLock()
	factory, ok := r.factories[tag]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: 0x%08x (%s)", ErrUnsupportedCodec, uint32(tag), tag)
	}
	return factory(), nil
}

// Has reports whether tag is registered.
func (r *Registry) Has(tag Tag) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[tag]
	return ok
}

// Tags returns the registered tags in ascending order.
func (r *Registry) Tags() []Tag {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]Tag, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := NewRegistry()
	for tag, f := range r.factories {
		c.factories[tag] = f
	}
	return c
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry holding the built-in codecs.
func Default() *Registry { return defaultRegistry }

// Register registers a codec factory in the default registry.
func Register(tag Tag, factory Factory) {
	defaultRegistry.Register(tag, factory)
}

// Get returns a codec from the default registry.
func Get(tag Tag) (Codec, error) {
	return defaultRegistry.Get(tag)
}
