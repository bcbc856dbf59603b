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

package plan_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-gamearchive/codec"
	"github.com/ZaparooProject/go-gamearchive/plan"
	"github.com/ZaparooProject/go-gamearchive/source"
	"github.com/ZaparooProject/go-gamearchive/validate"
)

// counting adds the number of sessions opened so far to every byte, so its
// output depends on the order in which segments are decoded.
type counting struct {
	sessions int
}

func (*counting) Tag() codec.Tag { return codec.MakeTag("cnt") }

func (c *counting) Open(src io.Reader, _, decompLen int64) (io.ReadCloser, error) {
	c.sessions++
	delta := byte(c.sessions)
	data, err := io.ReadAll(io.LimitReader(src, decompLen))
	if err != nil {
		return nil, err
	}
	for i := range data {
		data[i] += delta
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func pattern(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i*7 + i/251)
	}
	return out
}

func extract(t *testing.T, p *plan.Plan, r source.Resolver) []byte {
	t.Helper()
	var buf bytes.Buffer
	n, err := p.ExtractTo(&buf, r)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	return append([]byte{}, buf.Bytes()...)
}

func TestRawRoundTrip(t *testing.T) {
	t.Parallel()

	data := pattern(1000)
	res := source.Static{"a": source.NewMemory("a", data)}

	p := plan.Raw("a", 100, 300)
	assert.Equal(t, int64(300), p.Size())
	assert.Equal(t, int64(300), p.RawSize())
	require.NoError(t, p.Check(res, validate.Default()))

	assert.Equal(t, data[100:400], extract(t, p, res))
	assert.Equal(t, data[100:400], extract(t, p, res), "re-extraction reproduces the bytes")
}

func TestFixedBlocksRoundTrip(t *testing.T) {
	t.Parallel()

	data := pattern(10_000)
	const blockSize = 4096

	var blocks []plan.Block
	for off := int64(0); off < int64(len(data)); off += blockSize {
		blocks = append(blocks, plan.Block{Offset: off, Length: min(blockSize, int64(len(data))-off)})
	}
	p, err := plan.FixedBlocks("img", blocks, blockSize, int64(len(data)), nil)
	require.NoError(t, err)
	require.Len(t, p.Segments, 3)
	assert.Equal(t, int64(10_000-2*blockSize), p.Segments[2].Size, "final block is shorter")

	res := source.Static{"img": source.NewMemory("img", data)}
	assert.Equal(t, data, extract(t, p, res))
}

func TestFixedBlocksRejectsBadCount(t *testing.T) {
	t.Parallel()

	_, err := plan.FixedBlocks("img", make([]plan.Block, 2), 4096, 10_000, nil)
	require.ErrorIs(t, err, codec.ErrMalformedInput)

	_, err = plan.FixedBlocks("img", nil, 0, 10, nil)
	require.ErrorIs(t, err, codec.ErrMalformedInput)

	p, err := plan.FixedBlocks("img", nil, 4096, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Size())
}

func TestVariableRoundTrip(t *testing.T) {
	t.Parallel()

	data := pattern(600)
	res := source.Static{"x": source.NewMemory("x", data)}

	// Segments out of physical order still decode in declared order.
	p := plan.Variable(
		plan.Segment{Source: "x", Offset: 400, Length: 200, Size: 200},
		plan.Segment{Source: "x", Offset: 0, Length: 400, Size: 400, Codec: codec.Store{}},
	)
	got := extract(t, p, res)
	assert.Equal(t, append(bytes.Clone(data[400:]), data[:400]...), got)
}

func TestSegmentOrdering(t *testing.T) {
	t.Parallel()

	data := []byte("aaaabbbbcccc")
	res := source.Static{"s": source.NewMemory("s", data)}

	build := func(c codec.Codec, order ...int) *plan.Plan {
		segs := make([]plan.Segment, 0, len(order))
		for _, i := range order {
			segs = append(segs, plan.Segment{Source: "s", Offset: int64(i * 4), Length: 4, Size: 4, Codec: c})
		}
		return plan.Variable(segs...)
	}

	// Manual sequential decoding.
	manual := &counting{}
	var want []byte
	for i := range 3 {
		rc, err := manual.Open(bytes.NewReader(data[i*4:i*4+4]), 4, 4)
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		want = append(want, b...)
	}

	got := extract(t, build(&counting{}, 0, 1, 2), res)
	assert.Equal(t, want, got)

	// Decoding the same segments in another order yields different bytes.
	reordered := extract(t, build(&counting{}, 2, 1, 0), res)
	swapped := append(append(bytes.Clone(reordered[8:12]), reordered[4:8]...), reordered[0:4]...)
	assert.NotEqual(t, want, swapped)
}

func TestSpanning(t *testing.T) {
	t.Parallel()

	first := pattern(37)
	second := bytes.Repeat([]byte{0xEE, 0x11}, 5000)
	all := append(bytes.Clone(first), second...)

	res := source.Static{
		"DATA0": source.NewMemory("DATA0", first),
		"DATA1": source.NewMemory("DATA1", second),
	}
	spans := []plan.SourceSpan{{ID: "DATA0", Size: int64(len(first))}, {ID: "DATA1", Size: int64(len(second))}}

	tests := []struct {
		name     string
		offset   int64
		length   int64
		segments int
	}{
		{name: "starts at byte zero", offset: 0, length: 100, segments: 2},
		{name: "ends at source boundary", offset: 10, length: 27, segments: 1},
		{name: "starts at source boundary", offset: 37, length: 50, segments: 1},
		{name: "one byte past boundary", offset: 10, length: 28, segments: 2},
		{name: "split mid resource", offset: 30, length: 9000, segments: 2},
		{name: "whole set", offset: 0, length: int64(len(all)), segments: 2},
		{name: "empty at boundary", offset: 37, length: 0, segments: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := plan.Split(spans, tt.offset, tt.length)
			require.NoError(t, err)
			assert.Len(t, p.Segments, tt.segments)
			assert.Equal(t, tt.length, p.Size())
			require.NoError(t, p.Check(res, validate.Default()))

			got := extract(t, p, res)
			assert.Equal(t, all[tt.offset:tt.offset+tt.length], got)
		})
	}

	_, err := plan.Split(spans, 10, int64(len(all)))
	require.ErrorIs(t, err, validate.ErrOutOfBounds)
}

func TestSpanningResolvesLazily(t *testing.T) {
	t.Parallel()

	res := &countingResolver{Static: source.Static{
		"a": source.NewMemory("a", []byte("0123")),
		"b": source.NewMemory("b", []byte("4567")),
	}}
	p, err := plan.Split([]plan.SourceSpan{{ID: "a", Size: 4}, {ID: "b", Size: 4}}, 2, 4)
	require.NoError(t, err)

	rc := p.Open(res)
	defer func() { _ = rc.Close() }()

	buf := make([]byte, 2)
	_, err = io.ReadFull(rc, buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.seen)

	_, err = io.ReadFull(rc, buf)
	require.NoError(t, err)
	assert.Equal(t, "45", string(buf))
	assert.Equal(t, []string{"a", "b"}, res.seen)
}

type countingResolver struct {
	source.Static
	seen []string
}

func (r *countingResolver) Resolve(id string) (source.Source, error) {
	r.seen = append(r.seen, id)
	return r.Static.Resolve(id)
}

func TestZeroLengthEntries(t *testing.T) {
	t.Parallel()

	// Three entries of lengths 10, 0 and 4096 packed back to back.
	data := pattern(10 + 4096)
	res := source.Static{"pak": source.NewMemory("pak", data)}

	lengths := []int64{10, 0, 4096}
	var off int64
	for _, n := range lengths {
		p := plan.Raw("pak", off, n)
		got := extract(t, p, res)
		assert.Len(t, got, int(n))
		assert.Equal(t, data[off:off+n], got)
		off += n
	}
}

func TestChain(t *testing.T) {
	t.Parallel()

	plain := bytes.Repeat([]byte("chained index entry;"), 50)
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	_, err := zw.Write(plain)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	key := []byte{0x5A, 0xA5, 0x3C}
	obf := bytes.Clone(z.Bytes())
	for i := range obf {
		obf[i] ^= key[i%len(key)]
	}
	stored := append([]byte("junkheader"), obf...)
	res := source.Static{"gpk": source.NewMemory("gpk", stored)}

	xor, err := codec.NewXOR(key)
	require.NoError(t, err)
	inner := plan.Single("gpk", 10, int64(len(obf)), int64(len(obf)), xor)
	p := plan.Chain(inner, codec.Zlib{}, int64(len(plain)))

	assert.Equal(t, int64(len(plain)), p.Size())
	assert.Equal(t, int64(len(obf)), p.RawSize())
	assert.Equal(t, []codec.Tag{codec.TagXOR, codec.TagZlib}, p.Codecs())
	assert.Equal(t, []string{"gpk"}, p.Sources())
	require.NoError(t, p.Check(res, validate.Default()))

	assert.Equal(t, plain, extract(t, p, res))

	unknown := plan.Chain(plan.Single("gpk", 10, int64(len(obf)), -1, xor), codec.Zlib{}, int64(len(plain)))
	assert.Equal(t, plain, extract(t, unknown, res))
}

func TestExtractErrorReportsOffset(t *testing.T) {
	t.Parallel()

	data := pattern(100)
	res := source.Static{"a": source.NewMemory("a", data)}

	// Second segment claims more decoded bytes than it stores.
	p := plan.Variable(
		plan.Segment{Source: "a", Offset: 0, Length: 40, Size: 40},
		plan.Segment{Source: "a", Offset: 40, Length: 20, Size: 30},
	)

	var buf bytes.Buffer
	n, err := p.ExtractTo(&buf, res)
	require.ErrorIs(t, err, codec.ErrTruncatedStream)

	var ee *plan.ExtractError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 1, ee.Segment)
	assert.Equal(t, int64(60), ee.Offset)
	assert.Equal(t, int64(60), n)
	assert.Equal(t, data[:60], buf.Bytes(), "flushed bytes stay in the sink")
}

func TestExtractFromClosedSource(t *testing.T) {
	t.Parallel()

	src := source.NewMemory("a", pattern(64))
	res := source.Static{"a": src}
	p := plan.Raw("a", 0, 64)

	require.NoError(t, src.Close())
	_, err := p.ExtractTo(io.Discard, res)
	require.ErrorIs(t, err, source.ErrClosedSource)
}

func TestUnsupportedSegment(t *testing.T) {
	t.Parallel()

	res := source.Static{"a": source.NewMemory("a", pattern(8))}
	p := plan.Variable(
		plan.Segment{Source: "a", Length: 4, Size: 4},
		plan.Segment{Source: "a", Offset: 4, Length: 4, Size: 4, Codec: codec.Unsupported("parent reference")},
	)

	_, err := p.ExtractTo(io.Discard, res)
	require.ErrorIs(t, err, codec.ErrUnsupportedCodec)
}

func TestCheck(t *testing.T) {
	t.Parallel()

	res := source.Static{"a": source.NewMemory("a", pattern(10))}

	require.ErrorIs(t, plan.Raw("a", 5, 6).Check(res, validate.Default()), validate.ErrOutOfBounds)
	require.ErrorIs(t, plan.Raw("a", -1, 2).Check(res, validate.Default()), validate.ErrOutOfBounds)
	require.ErrorIs(t, (&plan.Plan{}).Check(res, validate.Default()), plan.ErrEmptyPlan)
	require.Error(t, plan.Raw("missing", 0, 1).Check(res, validate.Default()))
	require.NoError(t, plan.Raw("a", 10, 0).Check(res, validate.Default()))
}

func TestSizeUnknown(t *testing.T) {
	t.Parallel()

	p := plan.Variable(
		plan.Segment{Source: "a", Length: 4, Size: 4},
		plan.Segment{Source: "a", Length: 4, Size: -1},
	)
	assert.Equal(t, int64(-1), p.Size())
	assert.Equal(t, int64(8), p.RawSize())
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	p := plan.Raw("a", 0, 4)
	c := p.Clone()
	c.Segments[0].Offset = 2
	assert.Equal(t, int64(0), p.Segments[0].Offset)
}

func TestReadAfterClose(t *testing.T) {
	t.Parallel()

	res := source.Static{"a": source.NewMemory("a", pattern(8))}
	rc := plan.Raw("a", 0, 8).Open(res)
	require.NoError(t, rc.Close())

	_, err := rc.Read(make([]byte, 4))
	require.True(t, errors.Is(err, source.ErrClosedSource))
}
