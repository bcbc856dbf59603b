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

package plan

import (
	"errors"
	"fmt"
	"io"

	"github.com/ZaparooProject/go-gamearchive/source"
)

// ExtractError reports where decoding of a resource stopped.
type ExtractError struct {
	Err error

	// Resource is the resource name, filled in by the archive layer.
	Resource string

	// Segment is the index of the failing segment.
	Segment int

	// Offset is the logical output offset reached before the failure.
	Offset int64
}

func (e *ExtractError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("extract %s: segment %d at offset %d: %v", e.Resource, e.Segment, e.Offset, e.Err)
	}
	return fmt.Sprintf("extract: segment %d at offset %d: %v", e.Segment, e.Offset, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// reader decodes a plan's segments one after another. Each segment's
// source is resolved only when the segment is reached.
type reader struct {
	cur      io.ReadCloser
	err      error
	resolver source.Resolver
	plan     *Plan
	idx      int
	offset   int64
}

// Open returns a stream of the plan's decoded bytes.
func (p *Plan) Open(r source.Resolver) io.ReadCloser {
	return &reader{plan: p, resolver: r}
}

func (r *reader) Read(p []byte) (int, error) {
	for r.err == nil {
		if r.cur == nil {
			if r.idx >= len(r.plan.Segments) {
				r.err = io.EOF
				break
			}
			rc, err := r.openSegment(r.plan.Segments[r.idx])
			if err != nil {
				r.fail(err)
				break
			}
			r.cur = rc
		}

		n, err := r.cur.Read(p)
		r.offset += int64(n)
		switch {
		case errors.Is(err, io.EOF):
			_ = r.cur.Close()
			r.cur = nil
			r.idx++
		case err != nil:
			r.fail(err)
		}
		if n > 0 {
			return n, nil
		}
		if len(p) == 0 {
			return 0, nil
		}
	}
	return 0, r.err
}

func (r *reader) fail(err error) {
	var ee *ExtractError
	if errors.As(err, &ee) && ee.Resource == "" {
		// Failure inside a chained plan; report the outer position.
		err = ee.Err
	}
	r.err = &ExtractError{Segment: r.idx, Offset: r.offset, Err: err}
}

func (r *reader) openSegment(s Segment) (io.ReadCloser, error) {
	if s.inner != nil {
		inner, resolver := s.inner, r.resolver
		buf := source.NewLazy(s.Source, s.Length, func() ([]byte, error) {
			rc := inner.Open(resolver)
			defer func() { _ = rc.Close() }()
			return io.ReadAll(rc)
		})
		if s.Length < 0 {
			if _, err := buf.ReadAt(nil, 0); err != nil && !errors.Is(err, io.EOF) {
				return nil, err //nolint:wrapcheck // wrapped by fail
			}
		}
		size := buf.Size()
		rc, err := s.codec().Open(io.NewSectionReader(buf, 0, size), size, s.Size)
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped by fail
		}
		return chained{ReadCloser: rc, buf: buf}, nil
	}

	src, err := r.resolver.Resolve(s.Source)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by fail
	}
	rc, err := s.codec().Open(io.NewSectionReader(src, s.Offset, s.Length), s.Length, s.Size)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by fail
	}
	return rc, nil
}

// chained releases the intermediate buffer with the outer session.
type chained struct {
	io.ReadCloser
	buf *source.Lazy
}

func (c chained) Close() error {
	err := c.ReadCloser.Close()
	_ = c.buf.Close()
	return err //nolint:wrapcheck // codec close
}

func (r *reader) Close() error {
	if r.cur != nil {
		err := r.cur.Close()
		r.cur = nil
		if r.err == nil {
			r.err = source.ErrClosedSource
		}
		return err //nolint:wrapcheck // codec close
	}
	if r.err == nil {
		r.err = source.ErrClosedSource
	}
	return nil
}

// ExtractTo decodes the whole plan into w and returns the number of bytes
// written. On failure the bytes already written stay in w and the error is
// an *ExtractError.
func (p *Plan) ExtractTo(w io.Writer, r source.Resolver) (int64, error) {
	rc := p.Open(r)
	defer func() { _ = rc.Close() }()

	n, err := io.Copy(w, rc)
	if err == nil {
		return n, nil
	}
	var ee *ExtractError
	if errors.As(err, &ee) {
		return n, ee
	}
	return n, &ExtractError{Segment: -1, Offset: n, Err: err}
}
