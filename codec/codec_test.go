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

package codec_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
	"github.com/woozymasta/lzss"

	"github.com/ZaparooProject/go-gamearchive/codec"
)

var sample = bytes.Repeat([]byte("The quick brown fox jumps over the lazy dog. "), 200)

func deflateBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zlibBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func qzlibBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	out := binary.BigEndian.AppendUint32(nil, uint32(len(data))) //nolint:gosec // test data is small
	return append(out, zlibBytes(t, data)...)
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(data, nil)
}

func lzmaBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := lzma.WriterConfig{Size: int64(len(data))}.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func xzBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func lzssBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	out, err := lzss.Compress(data, lzss.DefaultCompressOptions())
	require.NoError(t, err)
	return out
}

func decode(c codec.Codec, comp []byte, decompLen int64) ([]byte, error) {
	rc, err := c.Open(bytes.NewReader(comp), int64(len(comp)), decompLen)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		tag   codec.Tag
		build func(*testing.T, []byte) []byte
	}{
		{name: "store", tag: codec.TagNone, build: func(_ *testing.T, d []byte) []byte { return d }},
		{name: "deflate", tag: codec.TagDeflate, build: deflateBytes},
		{name: "zlib", tag: codec.TagZlib, build: zlibBytes},
		{name: "gzip", tag: codec.TagGzip, build: gzipBytes},
		{name: "qzlib", tag: codec.TagQZlib, build: qzlibBytes},
		{name: "zstd", tag: codec.TagZstd, build: zstdBytes},
		{name: "lzma", tag: codec.TagLZMA, build: lzmaBytes},
		{name: "xz", tag: codec.TagXZ, build: xzBytes},
		{name: "lzss", tag: codec.TagLZSS, build: lzssBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := codec.Get(tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.tag, c.Tag())

			comp := tt.build(t, sample)
			got, err := decode(c, comp, int64(len(sample)))
			require.NoError(t, err)
			assert.Equal(t, sample, got)

			// A second session over the same codec starts from fresh state.
			again, err := decode(c, comp, int64(len(sample)))
			require.NoError(t, err)
			assert.Equal(t, sample, again)
		})
	}
}

func TestUnknownLengthStreamsToEnd(t *testing.T) {
	t.Parallel()

	for _, tag := range []codec.Tag{codec.TagDeflate, codec.TagZlib, codec.TagZstd} {
		c, err := codec.Get(tag)
		require.NoError(t, err)

		var comp []byte
		switch tag {
		case codec.TagDeflate:
			comp = deflateBytes(t, sample)
		case codec.TagZlib:
			comp = zlibBytes(t, sample)
		default:
			comp = zstdBytes(t, sample)
		}
		got, err := decode(c, comp, -1)
		require.NoError(t, err, tag.String())
		assert.Equal(t, sample, got, tag.String())
	}
}

func TestTruncatedStream(t *testing.T) {
	t.Parallel()

	t.Run("declared length beyond output", func(t *testing.T) {
		t.Parallel()
		comp := zlibBytes(t, sample)
		_, err := decode(codec.Zlib{}, comp, int64(len(sample))+10)
		require.ErrorIs(t, err, codec.ErrTruncatedStream)
	})

	t.Run("input cut short", func(t *testing.T) {
		t.Parallel()
		comp := deflateBytes(t, sample)
		_, err := decode(codec.Deflate{}, comp[:len(comp)/2], int64(len(sample)))
		require.ErrorIs(t, err, codec.ErrTruncatedStream)
	})

	t.Run("store shorter than declared", func(t *testing.T) {
		t.Parallel()
		_, err := decode(codec.Store{}, []byte("abc"), 4)
		require.ErrorIs(t, err, codec.ErrTruncatedStream)
	})
}

func TestSurplusOutputIsCut(t *testing.T) {
	t.Parallel()

	got, err := decode(codec.Zlib{}, zlibBytes(t, sample), 10)
	require.NoError(t, err)
	assert.Equal(t, sample[:10], got)
}

func TestMalformedInput(t *testing.T) {
	t.Parallel()

	garbage := bytes.Repeat([]byte{0xFF, 0x00, 0x13}, 64)

	_, err := decode(codec.Zlib{}, garbage, 100)
	require.ErrorIs(t, err, codec.ErrMalformedInput)

	_, err = decode(codec.Zstd{}, garbage, 100)
	require.ErrorIs(t, err, codec.ErrMalformedInput)

	prefixed := qzlibBytes(t, sample)
	_, err = decode(codec.QZlib{}, prefixed, int64(len(sample))-1)
	require.ErrorIs(t, err, codec.ErrMalformedInput, "length prefix mismatch")

	_, err = decode(codec.QZlib{}, []byte{0, 0}, -1)
	require.ErrorIs(t, err, codec.ErrMalformedInput, "missing length prefix")

	_, err = decode(codec.LZSS{}, lzssBytes(t, sample), -1)
	require.ErrorIs(t, err, codec.ErrMalformedInput, "lzss needs a length")
}

func TestInputErrorsPassThrough(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk on fire")
	src := io.MultiReader(bytes.NewReader(zlibBytes(t, sample)[:8]), &failingReader{err: boom})

	rc, err := codec.Zlib{}.Open(src, -1, int64(len(sample)))
	if err == nil {
		_, err = io.ReadAll(rc)
	}
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, codec.ErrMalformedInput)
}

type failingReader struct{ err error }

func (f *failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestRawLZMA(t *testing.T) {
	t.Parallel()

	full := lzmaBytes(t, sample)
	raw := full[13:]

	got, err := decode(codec.RawLZMA{Props: codec.DefaultLZMAProps}, raw, int64(len(sample)))
	require.NoError(t, err)
	assert.Equal(t, sample, got)
}

func TestLZMADictSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(4096), codec.LZMADictSize(100))
	assert.Equal(t, uint32(6144), codec.LZMADictSize(5000))
	assert.Equal(t, uint32(1<<26), codec.LZMADictSize(-1))
}

func TestXOR(t *testing.T) {
	t.Parallel()

	key := []byte{0x10, 0x20, 0x30}
	plain := []byte("secret payload")
	enc := make([]byte, len(plain))
	for i, b := range plain {
		enc[i] = b ^ key[i%len(key)]
	}

	x, err := codec.NewXOR(key)
	require.NoError(t, err)
	got, err := decode(x, enc, int64(len(enc)))
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	_, err = codec.NewXOR(nil)
	require.ErrorIs(t, err, codec.ErrMalformedInput)

	pos := codec.NewPositionalXOR(func(p int64) byte { return byte(p * 7) })
	enc2 := make([]byte, len(plain))
	for i, b := range plain {
		enc2[i] = b ^ byte(i*7)
	}
	got, err = decode(pos, enc2, int64(len(enc2)))
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestRollingSubtractResetsPerSession(t *testing.T) {
	t.Parallel()

	plain := []byte("rolling cipher state must reset")
	enc := codec.EncodeRollingSubtract(0x5A, 3, plain)
	c := codec.NewRollingSubtract(0x5A, 3)

	for range 3 {
		got, err := decode(c, enc, int64(len(enc)))
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestBlock(t *testing.T) {
	t.Parallel()

	double := codec.Block(codec.MakeTag("dbl"), func(dst, src []byte) (int, error) {
		n := 0
		for _, b := range src {
			if n+2 > len(dst) {
				return n, errors.New("overflow")
			}
			dst[n], dst[n+1] = b, b
			n += 2
		}
		return n, nil
	})

	got, err := decode(double, []byte("abc"), 6)
	require.NoError(t, err)
	assert.Equal(t, []byte("aabbcc"), got)

	_, err = decode(double, []byte("abc"), 8)
	require.ErrorIs(t, err, codec.ErrTruncatedStream)

	_, err = decode(double, []byte("abcd"), 6)
	require.ErrorIs(t, err, codec.ErrMalformedInput)

	_, err = decode(double, []byte("abc"), -1)
	require.ErrorIs(t, err, codec.ErrMalformedInput)

	rc, err := double.Open(bytes.NewReader([]byte("ab")), 3, 6)
	assert.Nil(t, rc)
	require.ErrorIs(t, err, codec.ErrTruncatedStream, "short compressed input")
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := codec.NewRegistry()
	_, err := r.Get(codec.TagZlib)
	require.ErrorIs(t, err, codec.ErrUnsupportedCodec)

	r.Register(codec.TagZlib, func() codec.Codec { return codec.Zlib{} })
	assert.True(t, r.Has(codec.TagZlib))
	assert.Equal(t, []codec.Tag{codec.TagZlib}, r.Tags())

	clone := r.Clone()
	clone.Register(codec.TagZstd, func() codec.Codec { return codec.Zstd{} })
	assert.False(t, r.Has(codec.TagZstd))
	assert.True(t, clone.Has(codec.TagZstd))

	assert.True(t, codec.Default().Has(codec.TagLZSS))
}

func TestUnsupported(t *testing.T) {
	t.Parallel()

	c := codec.Unsupported("parent hunk reference")
	assert.Equal(t, codec.TagUnsupported, c.Tag())
	_, err := c.Open(bytes.NewReader(nil), 0, 0)
	require.ErrorIs(t, err, codec.ErrUnsupportedCodec)
}

func TestTagString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "zlib", codec.TagZlib.String())
	assert.Equal(t, "xz", codec.TagXZ.String())
	assert.Equal(t, "none", codec.TagNone.String())
	assert.Equal(t, codec.TagXZ, codec.MakeTag("xz"))
	assert.Equal(t, codec.TagQZlib, codec.MakeTag("qzlb"))
}
