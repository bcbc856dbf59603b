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

package format

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/ZaparooProject/go-gamearchive/internal/binary"
	"github.com/ZaparooProject/go-gamearchive/source"
	"github.com/ZaparooProject/go-gamearchive/validate"
)

// Evidence weights.
const (
	PointsExtension = 25
	PointsMagic     = 50
	PointsField     = 5
)

// headSize is the number of leading bytes a probe caches.
const headSize = 64 * 1024

// Probe gives descriptors read-only, panic-free access to an input while
// scoring. Failed reads report ok=false instead of an error.
type Probe struct {
	src    source.Source
	head   []byte
	path   string
	ext    string
	limits validate.Limits
	once   sync.Once
}

// NewProbe returns a probe over src. path is used for its extension.
func NewProbe(src source.Source, path string, limits validate.Limits) *Probe {
	return &Probe{
		src:    src,
		path:   path,
		ext:    strings.ToLower(filepath.Ext(path)),
		limits: limits,
	}
}

// Path returns the input path.
func (p *Probe) Path() string { return p.path }

// Ext returns the lower-case extension with the leading dot.
func (p *Probe) Ext() string { return p.ext }

// Size returns the input length.
func (p *Probe) Size() int64 { return p.src.Size() }

// Limits returns the validation limits.
func (p *Probe) Limits() validate.Limits { return p.limits }

// HasExt reports whether the input extension is one of exts.
func (p *Probe) HasExt(exts ...string) bool {
	for _, e := range exts {
		if strings.EqualFold(e, p.ext) {
			return true
		}
	}
	return false
}

func (p *Probe) loadHead() {
	p.once.Do(func() {
		n := min(p.src.Size(), headSize)
		if n <= 0 {
			return
		}
		buf := make([]byte, n)
		if err := binary.ReadAt(p.src, 0, buf); err == nil {
			p.head = buf
		}
	})
}

// Peek returns n bytes at off, or nil when they cannot be read.
func (p *Probe) Peek(off int64, n int) []byte {
	if off < 0 || n < 0 || off > p.src.Size() || int64(n) > p.src.Size()-off {
		return nil
	}
	p.loadHead()
	if off+int64(n) <= int64(len(p.head)) {
		out := make([]byte, n)
		copy(out, p.head[off:])
		return out
	}
	buf, err := binary.ReadBytesAt(p.src, off, n)
	if err != nil {
		return nil
	}
	return buf
}

// HasMagic reports whether the bytes at off equal magic.
func (p *Probe) HasMagic(off int64, magic string) bool {
	b := p.Peek(off, len(magic))
	return b != nil && string(b) == magic
}

// Uint8 reads a byte at off.
func (p *Probe) Uint8(off int64) (uint8, bool) {
	b := p.Peek(off, 1)
	if b == nil {
		return 0, false
	}
	return b[0], true
}

// Uint16LE reads a little-endian uint16 at off.
func (p *Probe) Uint16LE(off int64) (uint16, bool) {
	v, err := binary.ReadUint16LEAt(p, off)
	return v, err == nil
}

// Uint16BE reads a big-endian uint16 at off.
func (p *Probe) Uint16BE(off int64) (uint16, bool) {
	v, err := binary.ReadUint16BEAt(p, off)
	return v, err == nil
}

// Uint32LE reads a little-endian uint32 at off.
func (p *Probe) Uint32LE(off int64) (uint32, bool) {
	v, err := binary.ReadUint32LEAt(p, off)
	return v, err == nil
}

// Uint32BE reads a big-endian uint32 at off.
func (p *Probe) Uint32BE(off int64) (uint32, bool) {
	v, err := binary.ReadUint32BEAt(p, off)
	return v, err == nil
}

// Uint64LE reads a little-endian uint64 at off.
func (p *Probe) Uint64LE(off int64) (uint64, bool) {
	v, err := binary.ReadUint64LEAt(p, off)
	return v, err == nil
}

// ReadAt implements io.ReaderAt over the cached head and the source.
func (p *Probe) ReadAt(buf []byte, off int64) (int, error) {
	p.loadHead()
	if off >= 0 && off+int64(len(buf)) <= int64(len(p.head)) {
		return copy(buf, p.head[off:]), nil
	}
	return p.src.ReadAt(buf, off) //nolint:wrapcheck // io.ReaderAt contract
}

// Evidence accumulates weighted points while scoring.
type Evidence struct {
	points int
}

// Add adds n points.
func (e *Evidence) Add(n int) { e.points += n }

// Extension adds PointsExtension when p has one of exts.
func (e *Evidence) Extension(p *Probe, exts []string) bool {
	if p.HasExt(exts...) {
		e.points += PointsExtension
		return true
	}
	return false
}

// Magic adds PointsMagic when ok.
func (e *Evidence) Magic(ok bool) bool {
	if ok {
		e.points += PointsMagic
	}
	return ok
}

// Field adds PointsField when ok.
func (e *Evidence) Field(ok bool) bool {
	if ok {
		e.points += PointsField
	}
	return ok
}

// Score returns the accumulated points.
func (e *Evidence) Score() int { return e.points }
