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
	"log/slog"

	"github.com/ZaparooProject/go-gamearchive/codec"
	"github.com/ZaparooProject/go-gamearchive/names"
	"github.com/ZaparooProject/go-gamearchive/progress"
	"github.com/ZaparooProject/go-gamearchive/source"
	"github.com/ZaparooProject/go-gamearchive/validate"
)

// Context is handed to Parse and rename hooks. Files is scoped to one
// parse attempt: sources opened through it are released if the attempt
// fails and handed to the archive if it succeeds.
type Context struct {
	// Source is the primary input.
	Source source.Source

	// Files resolves the primary input under ID and sibling files by
	// name relative to the input directory.
	Files *source.FileSet

	Env    *Env
	Logger *slog.Logger

	// ID is the resolver id of the primary input.
	ID string

	// Path is the input path.
	Path string

	// Ext is the lower-case input extension with the leading dot.
	Ext string

	format string
}

// Cursor returns a cursor at the start of the primary input.
func (c *Context) Cursor() *source.Cursor {
	return source.NewCursor(c.Source)
}

// Size returns the primary input length.
func (c *Context) Size() int64 { return c.Source.Size() }

// Limits returns the validation limits.
func (c *Context) Limits() validate.Limits { return c.Env.Limits }

// Codec returns the codec registered for tag.
func (c *Context) Codec(tag codec.Tag) (codec.Codec, error) {
	return c.Env.Codecs.Get(tag) //nolint:wrapcheck // already descriptive
}

// Names returns the shared name table stored in file.
func (c *Context) Names(file string, h names.Hasher) *names.Table {
	return c.Env.Names.Get(file, h)
}

// Sibling resolves a file next to the input, opening it on first use.
func (c *Context) Sibling(name string) (source.Source, error) {
	return c.Files.Resolve(name) //nolint:wrapcheck // already descriptive
}

// Progress reports parsed entries.
func (c *Context) Progress(entries, total int) {
	c.Env.Progress.Progress(progress.Event{
		Stage:        progress.StageParsing,
		Name:         c.Path,
		Entries:      entries,
		TotalEntries: total,
	})
}

// Format returns the name of the descriptor being run.
func (c *Context) Format() string { return c.format }
