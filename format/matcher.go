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
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ZaparooProject/go-gamearchive/archive"
	"github.com/ZaparooProject/go-gamearchive/progress"
	"github.com/ZaparooProject/go-gamearchive/sniff"
	"github.com/ZaparooProject/go-gamearchive/source"
)

// DefaultMinScore is the lowest score the matcher will attempt to parse.
const DefaultMinScore = 1

// Candidate is a scored descriptor.
type Candidate struct {
	Descriptor Descriptor
	Score      int
}

// Matcher picks the descriptor that parses an input.
//
// Descriptors are ranked by score, highest first. Equal scores keep
// registration order, so the first registered descriptor wins a tie.
type Matcher struct {
	registry *Registry
	env      *Env
	minScore int
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithMinScore sets the lowest score that is attempted.
func WithMinScore(n int) MatcherOption {
	return func(m *Matcher) { m.minScore = n }
}

// NewMatcher returns a matcher over the descriptors in reg.
func NewMatcher(reg *Registry, env *Env, opts ...MatcherOption) *Matcher {
	m := &Matcher{registry: reg, env: env.withDefaults(), minScore: DefaultMinScore}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Env returns the matcher environment.
func (m *Matcher) Env() *Env { return m.env }

// Rank scores every descriptor against p.
func (m *Matcher) Rank(p *Probe) []Candidate {
	descs := m.registry.Descriptors()
	out := make([]Candidate, 0, len(descs))
	for i, d := range descs {
		score := m.score(d, p)
		m.env.Logger.Debug("scored format",
			slog.String("format", d.Info().Name),
			slog.Int("score", score))
		m.env.Progress.Progress(progress.Event{
			Stage:        progress.StageScoring,
			Name:         p.Path(),
			Entries:      i + 1,
			TotalEntries: len(descs),
		})
		out = append(out, Candidate{Descriptor: d, Score: score})
	}
	slices.SortStableFunc(out, func(a, b Candidate) int { return b.Score - a.Score })
	return out
}

func (m *Matcher) score(d Descriptor, p *Probe) (score int) {
	defer func() {
		if r := recover(); r != nil {
			m.env.Logger.Debug("format probe panicked",
				slog.String("format", d.Info().Name),
				slog.Any("panic", r))
			score = 0
		}
	}()
	return max(d.Score(p), 0)
}

// Identify ranks the descriptors for src without parsing.
func (m *Matcher) Identify(src source.Source, path string) *Report {
	report := &Report{Path: path}
	for _, c := range m.Rank(NewProbe(src, path, m.env.Limits)) {
		outcome := OutcomeUntried
		if c.Score < m.minScore {
			outcome = OutcomeSkipped
		}
		report.Attempts = append(report.Attempts, Attempt{Format: c.Descriptor.Info().Name, Score: c.Score, Outcome: outcome})
	}
	return report
}

// Open opens the file at path and parses it with the best matching
// descriptor.
func (m *Matcher) Open(path string) (*archive.Archive, *Report, error) {
	src, err := source.OpenFile(path)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // already descriptive
	}
	return m.OpenSource(src, path)
}

// OpenSource parses src, trying candidates in rank order. The archive
// takes ownership of src on success; on failure src is closed.
func (m *Matcher) OpenSource(src source.Source, path string) (*archive.Archive, *Report, error) {
	report := &Report{Path: path}
	ranked := m.Rank(NewProbe(src, path, m.env.Limits))

	for i, c := range ranked {
		attempt := Attempt{Format: c.Descriptor.Info().Name, Score: c.Score}
		if c.Score < m.minScore {
			report.Attempts = append(report.Attempts, attempt)
			continue
		}

		a, err := m.attempt(c.Descriptor, src, path)
		attempt.Err = err
		switch {
		case err == nil:
			attempt.Outcome = OutcomeMatch
		case IsMismatch(err):
			attempt.Outcome = OutcomeNotThisFormat
		default:
			attempt.Outcome = OutcomeFailed
		}
		m.env.Logger.Debug("parse attempt",
			slog.String("format", attempt.Format),
			slog.Int("score", attempt.Score),
			slog.String("outcome", attempt.Outcome.String()),
			slog.Any("error", err))
		report.Attempts = append(report.Attempts, attempt)

		if err == nil {
			for _, rest := range ranked[i+1:] {
				outcome := OutcomeUntried
				if rest.Score < m.minScore {
					outcome = OutcomeSkipped
				}
				report.Attempts = append(report.Attempts, Attempt{Format: rest.Descriptor.Info().Name, Score: rest.Score, Outcome: outcome})
			}
			report.Winner = attempt.Format
			return a, report, nil
		}
	}

	_ = src.Close()
	return nil, report, &NoMatchError{Path: path, Report: report}
}

// OpenAs parses src with the named descriptor, skipping scoring.
func (m *Matcher) OpenAs(src source.Source, path, name string) (*archive.Archive, error) {
	d, err := m.registry.Lookup(name)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	a, err := m.attempt(d, src, path)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return a, nil
}

// attempt runs one parse with a fresh file set. The primary source is
// shared with the set until the parse succeeds, then owned by it.
func (m *Matcher) attempt(d Descriptor, src source.Source, inputPath string) (*archive.Archive, error) {
	info := d.Info()
	id := primaryID(inputPath)

	files := newFileSet(inputPath)
	files.Share(id, src)

	ctx := &Context{
		Source: src,
		Files:  files,
		Env:    m.env,
		Logger: m.env.Logger.With(slog.String("format", info.Name)),
		ID:     id,
		Path:   inputPath,
		Ext:    strings.ToLower(filepath.Ext(inputPath)),
		format: info.Name,
	}

	res, err := parse(d, ctx)
	if err == nil && res == nil {
		err = Mismatch("%s returned no result", info.Name)
	}
	if err != nil {
		_ = files.Close()
		return nil, err
	}

	files.Adopt(id, src)
	a := archive.New(info.Name, inputPath, res.Resources, files, files)
	for k, v := range res.Meta {
		a.Meta[k] = v
	}
	for k, v := range res.State {
		a.State[k] = v
	}
	m.rename(d, ctx, a)
	return a, nil
}

func parse(d Descriptor, ctx *Context) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: parse panicked: %v", d.Info().Name, r)
		}
	}()
	return d.Parse(ctx) //nolint:wrapcheck // descriptor errors are reported as is
}

// newFileSet roots sibling lookups at the input's directory. Inputs
// without a local path, such as memory buffers or URLs, get no siblings.
func newFileSet(inputPath string) *source.FileSet {
	if inputPath == "" || strings.Contains(inputPath, "://") {
		return source.NewStaticSet(nil)
	}
	return source.NewFileSet(filepath.Dir(inputPath))
}

func primaryID(inputPath string) string {
	if inputPath == "" {
		return "input"
	}
	return filepath.Base(inputPath)
}

// rename runs the descriptor's rename hook and then extension sniffing
// over the resources still flagged as unnamed.
func (m *Matcher) rename(d Descriptor, ctx *Context, a *archive.Archive) {
	var unnamed []*archive.Resource
	for _, r := range a.Resources() {
		if r.Unnamed {
			unnamed = append(unnamed, r)
		}
	}
	if len(unnamed) == 0 {
		return
	}

	prefix := func(r *archive.Resource) []byte {
		b, err := a.Prefix(r, sniff.PrefixSize)
		if err != nil {
			ctx.Logger.Debug("read prefix for renaming",
				slog.String("resource", r.Name),
				slog.Any("error", err))
			return nil
		}
		return b
	}

	if rn, ok := d.(Renamer); ok {
		rn.RenameUnnamed(ctx, unnamed, prefix)
	}

	for _, r := range unnamed {
		if !r.Unnamed || path.Ext(r.Name) != "" {
			continue
		}
		if ext := sniff.Extension(prefix(r)); ext != "" {
			r.Rename(r.Name + "." + ext)
		}
	}
}

// IsNoMatch reports whether err is a failure to find any parsing descriptor.
func IsNoMatch(err error) bool {
	return errors.Is(err, ErrNoCompatibleFormat)
}
