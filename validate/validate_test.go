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

package validate_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-gamearchive/validate"
)

func TestCheckOffset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value int64
		bound int64
		ok    bool
	}{
		{name: "zero", value: 0, bound: 0, ok: true},
		{name: "inside", value: 5, bound: 10, ok: true},
		{name: "at bound", value: 10, bound: 10, ok: true},
		{name: "past bound", value: 11, bound: 10, ok: false},
		{name: "negative", value: -1, bound: 10, ok: false},
		{name: "min int", value: math.MinInt64, bound: 10, ok: false},
		{name: "max int", value: math.MaxInt64, bound: 10, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validate.CheckOffset(tt.value, tt.bound)
			assert.Equal(t, tt.ok, err == nil)
			assert.Equal(t, tt.ok, validate.ValidOffset(tt.value, tt.bound))
			if !tt.ok {
				require.ErrorIs(t, err, validate.ErrOutOfBounds)

				var be *validate.BoundsError
				require.ErrorAs(t, err, &be)
				assert.Equal(t, tt.value, be.Value)
				assert.Equal(t, tt.bound, be.Bound)
			}
		})
	}
}

func TestCheckLength(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validate.CheckLength(0, 0))
	assert.NoError(t, validate.CheckLength(4096, 4096))
	require.ErrorIs(t, validate.CheckLength(4097, 4096), validate.ErrOutOfBounds)
	require.ErrorIs(t, validate.CheckLength(-3, 4096), validate.ErrOutOfBounds)

	assert.NoError(t, validate.CheckLengthSane(validate.DefaultMaxLength))
	require.ErrorIs(t, validate.CheckLengthSane(validate.DefaultMaxLength+1), validate.ErrOutOfBounds)
	require.ErrorIs(t, validate.CheckLengthSane(-1), validate.ErrOutOfBounds)

	small := validate.Limits{MaxLength: 100}
	require.ErrorIs(t, small.CheckLengthSane(101), validate.ErrOutOfBounds)
	assert.NoError(t, small.CheckLengthSane(100))
}

func TestCheckRange(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validate.CheckRange(0, 10, 10))
	assert.NoError(t, validate.CheckRange(10, 0, 10))
	require.ErrorIs(t, validate.CheckRange(5, 6, 10), validate.ErrOutOfBounds)
	require.ErrorIs(t, validate.CheckRange(11, 0, 10), validate.ErrOutOfBounds)
}

func TestCheckNumEntries(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validate.CheckNumEntries(0))
	assert.NoError(t, validate.CheckNumEntries(validate.DefaultMaxEntries))
	require.ErrorIs(t, validate.CheckNumEntries(validate.DefaultMaxEntries+1), validate.ErrOutOfBounds)
	require.ErrorIs(t, validate.CheckNumEntries(-1), validate.ErrOutOfBounds)

	tight := validate.Limits{MaxEntries: 3}
	assert.NoError(t, tight.CheckNumEntries(3))
	require.ErrorIs(t, tight.CheckNumEntries(4), validate.ErrOutOfBounds)
}

func TestCheckFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{name: "plain", in: "maps/e1m1.bsp", ok: true},
		{name: "unicode", in: "データ/音楽.ogg", ok: true},
		{name: "empty", in: "", ok: false},
		{name: "overlong", in: strings.Repeat("a", validate.DefaultMaxFilenameLen+1), ok: false},
		{name: "at limit", in: strings.Repeat("a", validate.DefaultMaxFilenameLen), ok: true},
		{name: "control", in: "bad\x01name", ok: false},
		{name: "newline", in: "bad\nname", ok: false},
		{name: "nul", in: "bad\x00", ok: false},
		{name: "invalid utf8", in: "bad\xffname", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validate.CheckFilename(tt.in)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, validate.ErrOutOfBounds)
		})
	}
}

func TestCheckFilenameLength(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validate.CheckFilenameLength(1))
	require.ErrorIs(t, validate.CheckFilenameLength(0), validate.ErrOutOfBounds)

	l := validate.Limits{MaxFilenameLen: 8}
	assert.NoError(t, l.CheckFilenameLength(8))
	require.ErrorIs(t, l.CheckFilenameLength(9), validate.ErrOutOfBounds)
}

func TestBoundsErrorMessage(t *testing.T) {
	t.Parallel()

	err := validate.CheckOffset(20, 10)
	assert.Equal(t, "offset: 20 outside [0, 10]", err.Error())

	err = validate.CheckFilename("a\tb")
	assert.Contains(t, err.Error(), "filename")
	assert.True(t, errors.Is(err, validate.ErrOutOfBounds))
}
