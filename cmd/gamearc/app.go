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

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ZaparooProject/go-gamearchive"
	"github.com/ZaparooProject/go-gamearchive/format"
	"github.com/ZaparooProject/go-gamearchive/source"
	"github.com/ZaparooProject/go-gamearchive/source/s3"
	"github.com/ZaparooProject/go-gamearchive/validate"
)

// gameOptions translates the global flags into library options.
func (a *app) gameOptions() []gamearchive.Option {
	return []gamearchive.Option{
		gamearchive.WithLogger(a.logger),
		gamearchive.WithNameDir(a.opts.NameDir),
		gamearchive.WithValidator(validate.Limits{
			MaxEntries: a.opts.MaxEntries,
			MaxLength:  a.opts.MaxLength,
		}),
	}
}

// openSource opens a local file or an s3://bucket/key object.
func (a *app) openSource(path string) (source.Source, error) {
	if !s3.IsURL(path) {
		src, err := source.OpenFile(path)
		if err != nil {
			return nil, err //nolint:wrapcheck // already descriptive
		}
		return src, nil
	}

	cfg, err := config.LoadDefaultConfig(a.ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.OpenURL(a.ctx, awss3.NewFromConfig(cfg), path) //nolint:wrapcheck // already descriptive
}

// open parses path with the format named by --format, or the best match.
func (a *app) open(path string) (*gamearchive.Archive, error) {
	src, err := a.openSource(path)
	if err != nil {
		return nil, err
	}

	m := gamearchive.NewMatcher(a.gameOptions()...)
	if a.opts.Format != "" {
		arc, err := m.OpenAs(src, path, a.opts.Format)
		if errors.Is(err, gamearchive.ErrUnknownFormat) {
			return nil, fmt.Errorf("%w (have %s)", err, strings.Join(formatNames(), ", "))
		}
		if err != nil {
			return nil, fmt.Errorf("open %s as %s: %w", path, a.opts.Format, err)
		}
		return arc, nil
	}

	arc, report, err := m.OpenSource(src, path)
	if err != nil {
		if report != nil {
			a.logger.Debug("no format matched", slog.String("path", path), slog.String("report", report.String()))
		}
		return nil, err //nolint:wrapcheck // NoMatchError names the path
	}
	a.logger.Debug("opened archive",
		slog.String("path", path),
		slog.String("format", arc.Format),
		slog.Int("resources", arc.Len()))
	return arc, nil
}

// defaultOutputDir is the input's base name without its extension.
func defaultOutputDir(path string) string {
	if s3.IsURL(path) {
		path = path[strings.LastIndex(path, "/")+1:]
	}
	base := filepath.Base(path)
	if stem := strings.TrimSuffix(base, filepath.Ext(base)); stem != "" {
		return stem
	}
	return base + ".out"
}

// formatNames lists the registered format names, for help text.
func formatNames() []string {
	ds := gamearchive.Formats().Descriptors()
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, strings.ToLower(d.Info().Name))
	}
	return out
}

// describe renders a descriptor's extensions and platforms.
func describe(info format.Info) string {
	parts := []string{strings.Join(info.Extensions, " ")}
	if len(info.Platforms) > 0 {
		parts = append(parts, "("+strings.Join(info.Platforms, ", ")+")")
	}
	return strings.Join(parts, " ")
}
