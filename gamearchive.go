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

// Package gamearchive extracts resources from game archive and disc image
// formats. It identifies an input by scoring every registered format
// descriptor, parses it into an ordered list of resources, and decodes
// each resource lazily through its segment plan.
package gamearchive

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/ZaparooProject/go-gamearchive/archive"
	"github.com/ZaparooProject/go-gamearchive/codec"
	"github.com/ZaparooProject/go-gamearchive/extract"
	"github.com/ZaparooProject/go-gamearchive/format"
	"github.com/ZaparooProject/go-gamearchive/formats/chd"
	"github.com/ZaparooProject/go-gamearchive/formats/gpk"
	"github.com/ZaparooProject/go-gamearchive/formats/iso9660"
	"github.com/ZaparooProject/go-gamearchive/formats/pak"
	"github.com/ZaparooProject/go-gamearchive/formats/pbo"
	"github.com/ZaparooProject/go-gamearchive/formats/rar"
	"github.com/ZaparooProject/go-gamearchive/formats/sevenzip"
	"github.com/ZaparooProject/go-gamearchive/formats/zdir"
	"github.com/ZaparooProject/go-gamearchive/formats/zip"
	"github.com/ZaparooProject/go-gamearchive/names"
	"github.com/ZaparooProject/go-gamearchive/progress"
	"github.com/ZaparooProject/go-gamearchive/source"
	"github.com/ZaparooProject/go-gamearchive/validate"
)

// Archive is an alias for archive.Archive for convenience.
type Archive = archive.Archive

// Resource is an alias for archive.Resource for convenience.
type Resource = archive.Resource

// Report is an alias for format.Report for convenience.
type Report = format.Report

// Re-exported error sentinels.
var (
	ErrNotThisFormat      = format.ErrNotThisFormat
	ErrNoCompatibleFormat = format.ErrNoCompatibleFormat
	ErrUnknownFormat      = format.ErrUnknownFormat
	ErrMalformedInput     = codec.ErrMalformedInput
	ErrTruncatedStream    = codec.ErrTruncatedStream
	ErrUnsupportedCodec   = codec.ErrUnsupportedCodec
	ErrOutOfBounds        = validate.ErrOutOfBounds
	ErrClosedSource       = source.ErrClosedSource
)

// Formats returns a new registry holding every built-in descriptor. Formats
// with strong signatures come first so they win ties.
func Formats() *format.Registry {
	reg := format.NewRegistry()
	reg.MustRegister(
		chd.Format{},
		iso9660.Format{},
		zip.Format{},
		sevenzip.Format{},
		rar.Format{},
		pak.Format{},
		pbo.Format{},
		gpk.Format{},
		zdir.Format{},
	)
	return reg
}

type config struct {
	logger   *slog.Logger
	progress progress.Sink
	registry *format.Registry
	codecs   *codec.Registry
	limits   validate.Limits
	names    *names.Cache
	nameDir  string
	minScore int
}

// Option configures Open, OpenSource, Identify and Extract.
type Option func(*config)

// WithLogger sets the logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithProgress sets the progress sink.
func WithProgress(s progress.Sink) Option {
	return func(c *config) { c.progress = s }
}

// WithNameDir sets the directory holding hash to name lists.
func WithNameDir(dir string) Option {
	return func(c *config) { c.nameDir = dir }
}

// WithNames sets the name table cache, overriding WithNameDir.
func WithNames(c *names.Cache) Option {
	return func(cfg *config) { cfg.names = c }
}

// WithValidator sets the structural limits.
func WithValidator(l validate.Limits) Option {
	return func(c *config) { c.limits = l }
}

// WithRegistry replaces the built-in descriptors.
func WithRegistry(r *format.Registry) Option {
	return func(c *config) { c.registry = r }
}

// WithCodecs replaces the default codec registry.
func WithCodecs(r *codec.Registry) Option {
	return func(c *config) { c.codecs = r }
}

// WithMinScore sets the lowest score a descriptor needs to be tried.
func WithMinScore(n int) Option {
	return func(c *config) { c.minScore = n }
}

func newConfig(opts []Option) *config {
	c := &config{minScore: format.DefaultMinScore}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.registry == nil {
		c.registry = Formats()
	}
	return c
}

// nameCaches holds one cache per name directory so tables load once per
// process however many archives are opened.
var nameCaches sync.Map

func (c *config) nameCache() *names.Cache {
	if c.names != nil {
		return c.names
	}
	dir := c.nameDir
	if dir != "" {
		dir = filepath.Clean(dir)
	}
	if v, ok := nameCaches.Load(dir); ok {
		return v.(*names.Cache) //nolint:forcetypeassert // only caches are stored
	}
	v, _ := nameCaches.LoadOrStore(dir, names.NewCache(dir, c.logger))
	return v.(*names.Cache) //nolint:forcetypeassert // only caches are stored
}

// NewMatcher returns a matcher configured by opts.
func NewMatcher(opts ...Option) *format.Matcher {
	c := newConfig(opts)
	env := &format.Env{
		Codecs:   c.codecs,
		Names:    c.nameCache(),
		Logger:   c.logger,
		Progress: c.progress,
		Limits:   c.limits,
	}
	return format.NewMatcher(c.registry, env, format.WithMinScore(c.minScore))
}

// Open identifies and parses the file at path. The report lists every
// candidate's score and outcome, also on failure.
func Open(path string, opts ...Option) (*Archive, *Report, error) {
	return NewMatcher(opts...).Open(path) //nolint:wrapcheck // matcher errors are typed
}

// OpenSource identifies and parses src. path supplies the extension and
// the directory sibling files are resolved against. The archive owns src on
// success; on failure src is closed.
func OpenSource(src source.Source, path string, opts ...Option) (*Archive, *Report, error) {
	return NewMatcher(opts...).OpenSource(src, path) //nolint:wrapcheck // matcher errors are typed
}

// OpenAs parses the file at path with the named descriptor.
func OpenAs(path, name string, opts ...Option) (*Archive, error) {
	src, err := source.OpenFile(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}
	return NewMatcher(opts...).OpenAs(src, path, name) //nolint:wrapcheck // matcher errors are typed
}

// Identify scores the file at path against every descriptor without
// parsing it.
func Identify(path string, opts ...Option) (*Report, error) {
	src, err := source.OpenFile(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}
	defer func() { _ = src.Close() }()
	return NewMatcher(opts...).Identify(src, path), nil
}

// Extract opens the archive at path and writes every resource under dir.
func Extract(ctx context.Context, path, dir string, xo extract.Options, opts ...Option) (*extract.Summary, error) {
	a, _, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.Close() }()

	c := newConfig(opts)
	if xo.Logger == nil {
		xo.Logger = c.logger
	}
	if xo.Progress == nil {
		xo.Progress = c.progress
	}
	return extract.ToDir(ctx, a, dir, xo) //nolint:wrapcheck // extraction errors are typed
}
