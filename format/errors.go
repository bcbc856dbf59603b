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
	"errors"
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-gamearchive/validate"
)

var (
	// ErrNotThisFormat reports that the input is definitely not the
	// descriptor's format. The matcher moves on to the next candidate.
	ErrNotThisFormat = errors.New("not this format")

	// ErrNoCompatibleFormat is returned once every candidate has failed.
	ErrNoCompatibleFormat = errors.New("no compatible format found")

	// ErrDuplicateFormat is returned when registering a name twice.
	ErrDuplicateFormat = errors.New("format already registered")

	// ErrUnknownFormat is returned when a format name is not registered.
	ErrUnknownFormat = errors.New("unknown format")
)

// Mismatch returns an error wrapping ErrNotThisFormat.
func Mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotThisFormat, fmt.Sprintf(format, args...))
}

// IsMismatch reports whether err sends the matcher to the next candidate.
// Structural bound violations count as mismatches.
func IsMismatch(err error) bool {
	return errors.Is(err, ErrNotThisFormat) || errors.Is(err, validate.ErrOutOfBounds)
}

// NoMatchError is returned when no descriptor could parse the input.
type NoMatchError struct {
	Report *Report
	Path   string
}

func (e *NoMatchError) Error() string {
	var tried []string
	for _, a := range e.Report.Attempts {
		if a.Outcome != OutcomeSkipped {
			tried = append(tried, fmt.Sprintf("%s(%d): %s", a.Format, a.Score, a.Outcome))
		}
	}
	if len(tried) == 0 {
		return fmt.Sprintf("%s: %v", e.Path, ErrNoCompatibleFormat)
	}
	return fmt.Sprintf("%s: %v; tried %s", e.Path, ErrNoCompatibleFormat, strings.Join(tried, ", "))
}

// Unwrap returns ErrNoCompatibleFormat.
func (e *NoMatchError) Unwrap() error { return ErrNoCompatibleFormat }
