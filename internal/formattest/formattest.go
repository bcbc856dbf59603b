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

// Package formattest runs descriptors against synthetic inputs in tests.
package formattest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-gamearchive/archive"
	"github.com/ZaparooProject/go-gamearchive/format"
	"github.com/ZaparooProject/go-gamearchive/source"
	"github.com/ZaparooProject/go-gamearchive/validate"
)

// Matcher returns a matcher holding only d.
func Matcher(d format.Descriptor, env *format.Env) *format.Matcher {
	reg := format.NewRegistry()
	reg.MustRegister(d)
	return format.NewMatcher(reg, env)
}

// Score scores data named path with d.
func Score(d format.Descriptor, path string, data []byte) int {
	return d.Score(format.NewProbe(source.NewMemory(path, data), path, validate.Default()))
}

// Parse parses data with d and returns the archive or the parse error.
func Parse(d format.Descriptor, path string, data []byte) (*archive.Archive, error) {
	return ParseEnv(d, nil, path, data)
}

// ParseEnv is Parse with an explicit environment.
func ParseEnv(d format.Descriptor, env *format.Env, path string, data []byte) (*archive.Archive, error) {
	return Matcher(d, env).OpenAs(source.NewMemory(path, data), path, d.Info().Name) //nolint:wrapcheck // test helper
}

// Open parses data with d and fails the test on error. The archive is
// closed when the test ends.
func Open(t *testing.T, d format.Descriptor, path string, data []byte) *archive.Archive {
	t.Helper()
	a, err := Parse(d, path, data)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// Read returns the decoded bytes of the named resource.
func Read(t *testing.T, a *archive.Archive, name string) []byte {
	t.Helper()
	r, err := a.Find(name)
	require.NoError(t, err)
	b, err := a.ReadResource(r)
	require.NoError(t, err)
	return b
}

// Names returns the resource names in directory order.
func Names(a *archive.Archive) []string {
	rs := a.Resources()
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}
