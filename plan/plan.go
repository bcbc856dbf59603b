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

// Package plan describes where a resource's bytes live and how to decode
// them, as an ordered list of segments that are decoded strictly in order.
package plan

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ZaparooProject/go-gamearchive/codec"
	"github.com/ZaparooProject/go-gamearchive/source"
	"github.com/ZaparooProject/go-gamearchive/validate"
)

// ErrEmptyPlan is returned when a plan has no segments.
var ErrEmptyPlan = errors.New("plan has no segments")

// Segment is one contiguous byte range of a source plus the codec that decodes it.
type Segment struct {
	// Codec decodes the range. Nil means stored.
	Codec codec.Codec

	// inner is set on chained segments, which read the decoded output of
	// another plan instead of a source.
	inner *Plan

	// Source identifies the byte source through the resolver.
	Source string

	// Offset is the start of the range in the source.
	Offset int64

	// Length is the number of stored bytes.
	Length int64

	// Size is the decoded length, or -1 when unknown.
	Size int64
}

// Tag returns the segment codec tag.
func (s Segment) Tag() codec.Tag {
	if s.Codec == nil {
		return codec.TagNone
	}
	return s.Codec.Tag()
}

// Chained reports whether the segment reads another plan's output.
func (s Segment) Chained() bool { return s.inner != nil }

func (s Segment) codec() codec.Codec {
	if s.Codec == nil {
		return codec.Store{}
	}
	return s.Codec
}

// Plan is an ordered sequence of segments whose decoded output is the
// concatenation of each segment's decoded bytes.
type Plan struct {
	Segments []Segment
}

// Single returns a one-segment plan decoded by c.
func Single(id string, offset, length, size int64, c codec.Codec) *Plan {
	return &Plan{Segments: []Segment{{Source: id, Offset: offset, Length: length, Size: size, Codec: c}}}
}

// Raw returns a one-segment plan copying length stored bytes.
func Raw(id string, offset, length int64) *Plan {
	return Single(id, offset, length, length, nil)
}

// Variable returns a plan from explicit segments, each with its own codec.
func Variable(segments ...Segment) *Plan {
	return &Plan{Segments: slices.Clone(segments)}
}

// Block locates one stored block of a fixed-block plan.
type Block struct {
	Offset int64
	Length int64
}

// FixedBlocks returns a plan of blocks that share codec c and decode to
// blockSize bytes each, except the last which holds the remainder of total.
// The block count must match total and blockSize.
func FixedBlocks(id string, blocks []Block, blockSize, total int64, c codec.Codec) (*Plan, error) {
	if blockSize <= 0 || total < 0 {
		return nil, fmt.Errorf("%w: block size %d, total %d", codec.ErrMalformedInput, blockSize, total)
	}
	want := (total + blockSize - 1) / blockSize
	if int64(len(blocks)) != want {
		return nil, fmt.Errorf("%w: %d blocks declared, %d needed for %d bytes",
			codec.ErrMalformedInput, len(blocks), want, total)
	}

	p := &Plan{Segments: make([]Segment, len(blocks))}
	remain := total
	for i, b := range blocks {
		size := min(blockSize, remain)
		remain -= size
		p.Segments[i] = Segment{Source: id, Offset: b.Offset, Length: b.Length, Size: size, Codec: c}
	}
	return p, nil
}

// SourceSpan is one physical file of a multi-file archive.
type SourceSpan struct {
	ID   string
	Size int64
}

// Split maps the logical range [offset, offset+length) of the concatenated
// spans onto stored segments, one per span the range touches.
func Split(spans []SourceSpan, offset, length int64) (*Plan, error) {
	var total int64
	for _, s := range spans {
		total += s.Size
	}
	if err := validate.CheckRange(offset, length, total); err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	p := &Plan{}
	var base int64
	for _, s := range spans {
		end := base + s.Size
		if length == 0 && offset >= base && offset <= end {
			p.Segments = append(p.Segments, Segment{Source: s.ID, Offset: offset - base})
			return p, nil
		}
		if offset < end && offset+length > base {
			lo := max(offset, base)
			hi := min(offset+length, end)
			p.Segments = append(p.Segments, Segment{Source: s.ID, Offset: lo - base, Length: hi - lo, Size: hi - lo})
		}
		base = end
	}
	if len(p.Segments) == 0 {
		return nil, fmt.Errorf("split: %w", ErrEmptyPlan)
	}
	return p, nil
}

// Chain returns a plan that decodes the full output of inner with outer.
// The inner output is materialized in memory when the chained plan is read.
func Chain(inner *Plan, outer codec.Codec, outerSize int64) *Plan {
	return &Plan{Segments: []Segment{{
		Source: "chain",
		Length: inner.Size(),
		Size:   outerSize,
		Codec:  outer,
		inner:  inner,
	}}}
}

// Size returns the decoded length, or -1 when any segment's size is unknown.
func (p *Plan) Size() int64 {
	var n int64
	for _, s := range p.Segments {
		if s.Size < 0 {
			return -1
		}
		n += s.Size
	}
	return n
}

// RawSize returns the number of stored bytes the plan reads.
func (p *Plan) RawSize() int64 {
	var n int64
	for _, s := range p.Segments {
		if s.inner != nil {
			n += s.inner.RawSize()
			continue
		}
		n += s.Length
	}
	return n
}

// Codecs returns the distinct codec tags in first-use order, including
// those of chained inner plans.
func (p *Plan) Codecs() []codec.Tag {
	var tags []codec.Tag
	add := func(t codec.Tag) {
		if !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}
	for _, s := range p.Segments {
		if s.inner != nil {
			for _, t := range s.inner.Codecs() {
				add(t)
			}
		}
		add(s.Tag())
	}
	return tags
}

// Sources returns the distinct source ids the plan reads, in first-use order.
func (p *Plan) Sources() []string {
	var ids []string
	for _, s := range p.Segments {
		if s.inner != nil {
			for _, id := range s.inner.Sources() {
				if !slices.Contains(ids, id) {
					ids = append(ids, id)
				}
			}
			continue
		}
		if !slices.Contains(ids, s.Source) {
			ids = append(ids, s.Source)
		}
	}
	return ids
}

// Clone returns a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	c := &Plan{Segments: slices.Clone(p.Segments)}
	for i := range c.Segments {
		if c.Segments[i].inner != nil {
			c.Segments[i].inner = c.Segments[i].inner.Clone()
		}
	}
	return c
}

// Check verifies every stored segment lies inside its source and carries
// a plausible length.
func (p *Plan) Check(r source.Resolver, limits validate.Limits) error {
	if len(p.Segments) == 0 {
		return ErrEmptyPlan
	}
	for i, s := range p.Segments {
		if s.Size < -1 {
			return fmt.Errorf("segment %d: %w", i, &validate.BoundsError{Check: "size", Value: s.Size})
		}
		if s.inner != nil {
			if err := s.inner.Check(r, limits); err != nil {
				return fmt.Errorf("segment %d: %w", i, err)
			}
			continue
		}
		if err := limits.CheckLengthSane(s.Length); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		src, err := r.Resolve(s.Source)
		if err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		if err := limits.CheckRange(s.Offset, s.Length, src.Size()); err != nil {
			return fmt.Errorf("segment %d in %s: %w", i, s.Source, err)
		}
	}
	return nil
}
