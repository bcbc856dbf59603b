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

// Package validate holds the bounds and sanity predicates used while
// scoring and parsing untrusted archive structures.
//
// Every check is pure: it performs no I/O, never panics, and reports a
// failure as a *BoundsError matching ErrOutOfBounds.
package validate

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// ErrOutOfBounds is matched by every validation failure.
var ErrOutOfBounds = errors.New("value out of bounds")

// Default limits.
const (
	// DefaultMaxEntries is the largest directory entry count considered plausible.
	DefaultMaxEntries = 4_000_000

	// DefaultMaxLength is the largest single length considered plausible (1 TiB).
	DefaultMaxLength = 1 << 40

	// DefaultMaxFilenameLen is the longest accepted entry name in bytes.
	DefaultMaxFilenameLen = 1024
)

// BoundsError describes a failed check.
type BoundsError struct {
	Check string
	Name  string
	Value int64
	Bound int64
}

func (e *BoundsError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %q rejected", e.Check, e.Name)
	}
	return fmt.Sprintf("%s: %d outside [0, %d]", e.Check, e.Value, e.Bound)
}

// Unwrap returns ErrOutOfBounds.
func (e *BoundsError) Unwrap() error { return ErrOutOfBounds }

// Limits configures the sanity ceilings. Zero fields take the defaults.
type Limits struct {
	MaxEntries     int64
	MaxLength      int64
	MaxFilenameLen int
}

// Default returns the default limits.
func Default() Limits {
	return Limits{
		MaxEntries:     DefaultMaxEntries,
		MaxLength:      DefaultMaxLength,
		MaxFilenameLen: DefaultMaxFilenameLen,
	}
}

func (l Limits) applyDefaults() Limits {
	if l.MaxEntries <= 0 {
		l.MaxEntries = DefaultMaxEntries
	}
	if l.MaxLength <= 0 {
		l.MaxLength = DefaultMaxLength
	}
	if l.MaxFilenameLen <= 0 {
		l.MaxFilenameLen = DefaultMaxFilenameLen
	}
	return l
}

// CheckOffset accepts 0 <= v <= bound.
func (l Limits) CheckOffset(v, bound int64) error {
	if v < 0 || v > bound {
		return &BoundsError{Check: "offset", Value: v, Bound: bound}
	}
	return nil
}

// CheckLength accepts 0 <= v <= bound.
func (l Limits) CheckLength(v, bound int64) error {
	if v < 0 || v > bound {
		return &BoundsError{Check: "length", Value: v, Bound: bound}
	}
	return nil
}

// CheckLengthSane accepts non-negative lengths up to MaxLength.
func (l Limits) CheckLengthSane(v int64) error {
	l = l.applyDefaults()
	if v < 0 || v > l.MaxLength {
		return &BoundsError{Check: "length", Value: v, Bound: l.MaxLength}
	}
	return nil
}

// CheckRange accepts a range [off, off+length) that lies inside [0, size].
func (l Limits) CheckRange(off, length, size int64) error {
	if err := l.CheckOffset(off, size); err != nil {
		return err
	}
	return l.CheckLength(length, size-off)
}

// CheckNumEntries accepts 0 <= v <= MaxEntries.
func (l Limits) CheckNumEntries(v int64) error {
	l = l.applyDefaults()
	if v < 0 || v > l.MaxEntries {
		return &BoundsError{Check: "entry count", Value: v, Bound: l.MaxEntries}
	}
	return nil
}

// CheckFilenameLength accepts name lengths in [1, MaxFilenameLen].
func (l Limits) CheckFilenameLength(n int) error {
	l = l.applyDefaults()
	if n < 1 || n > l.MaxFilenameLen {
		return &BoundsError{Check: "filename length", Value: int64(n), Bound: int64(l.MaxFilenameLen)}
	}
	return nil
}

// CheckFilename rejects empty or overlong names and names holding invalid
// UTF-8 or control characters.
func (l Limits) CheckFilename(name string) error {
	if err := l.CheckFilenameLength(len(name)); err != nil {
		return err
	}
	if !utf8.ValidString(name) {
		return &BoundsError{Check: "filename", Name: name}
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return &BoundsError{Check: "filename", Name: name}
		}
	}
	return nil
}

// ValidOffset reports whether CheckOffset passes.
func (l Limits) ValidOffset(v, bound int64) bool { return l.CheckOffset(v, bound) == nil }

// ValidLength reports whether CheckLength passes.
func (l Limits) ValidLength(v, bound int64) bool { return l.CheckLength(v, bound) == nil }

var defaults = Default()

// CheckOffset checks v against bound with the default limits.
func CheckOffset(v, bound int64) error { return defaults.CheckOffset(v, bound) }

// CheckLength checks v against bound with the default limits.
func CheckLength(v, bound int64) error { return defaults.CheckLength(v, bound) }

// CheckLengthSane checks v against the default length ceiling.
func CheckLengthSane(v int64) error { return defaults.CheckLengthSane(v) }

// CheckRange checks a range against size with the default limits.
func CheckRange(off, length, size int64) error { return defaults.CheckRange(off, length, size) }

// CheckNumEntries checks v against the default entry ceiling.
func CheckNumEntries(v int64) error { return defaults.CheckNumEntries(v) }

// CheckFilename checks name with the default limits.
func CheckFilename(name string) error { return defaults.CheckFilename(name) }

// CheckFilenameLength checks n with the default limits.
func CheckFilenameLength(n int) error { return defaults.CheckFilenameLength(n) }

// ValidOffset reports whether CheckOffset passes with the default limits.
func ValidOffset(v, bound int64) bool { return defaults.ValidOffset(v, bound) }

// ValidLength reports whether CheckLength passes with the default limits.
func ValidLength(v, bound int64) bool { return defaults.ValidLength(v, bound) }
