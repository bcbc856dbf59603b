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

// Package extract writes the resources of an archive to a directory.
package extract

import (
	"context"
	_ "crypto/sha256" // registers digest.Canonical
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/ZaparooProject/go-gamearchive/archive"
	"github.com/ZaparooProject/go-gamearchive/progress"
)

// File is one written resource.
type File struct {
	// Name is the resource name.
	Name string

	// Path is the written file, below the output directory.
	Path string

	Digest digest.Digest
	Size   int64
}

// Summary describes a ToDir run.
type Summary struct {
	// Files lists written resources in archive order.
	Files []File

	// Existing lists resources skipped because their target already existed.
	Existing []string

	// Filtered counts resources excluded by the rules.
	Filtered int

	// Bytes is the total number of bytes written.
	Bytes int64
}

type task struct {
	res *archive.Resource
	rel string
}

// ToDir extracts the resources of a into dir. Resources are extracted
// concurrently and independently: a failed resource does not stop the
// others, and failures are reported together as an *IncompleteError.
// Each file is written to a temporary name and renamed on success.
func ToDir(ctx context.Context, a *archive.Archive, dir string, opts Options) (*Summary, error) {
	opts.applyDefaults()
	include, err := opts.filter()
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	summary := &Summary{}
	tasks, failures := prepare(a, opts, include, summary)
	considered := len(tasks) + len(failures)
	if err := makeDirs(root, tasks); err != nil {
		return nil, err
	}

	var total int64
	for _, t := range tasks {
		total += max(t.res.Size, 0)
	}

	var (
		done    atomic.Int64
		entries atomic.Int64
	)
	files := make([]*File, len(tasks))
	errs := make([]error, len(tasks))
	existing := make([]bool, len(tasks))
	report := func(name string) {
		opts.Progress.Progress(progress.Event{
			Stage:        progress.StageExtracting,
			Name:         name,
			Done:         done.Load(),
			Total:        total,
			Entries:      int(entries.Load()),
			TotalEntries: len(tasks),
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, t := range tasks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			target := filepath.Join(root, filepath.FromSlash(t.rel))
			if !opts.Overwrite {
				if _, err := os.Lstat(target); err == nil {
					existing[i] = true
					return nil
				}
			}

			w := &countingWriter{n: &done, report: func() { report(t.res.Name) }}
			f, err := writeResource(a, t.res, target, w)
			if err != nil {
				errs[i] = err
				return nil
			}
			f.Path = t.rel
			files[i] = f
			entries.Add(1)
			report(t.res.Name)

			opts.Logger.Info("extracted resource",
				slog.String("name", t.res.Name),
				slog.String("path", t.rel),
				slog.String("size", humanize.IBytes(uint64(f.Size))), //nolint:gosec // size is non-negative
				slog.String("digest", f.Digest.String()))
			return nil
		})
	}
	waitErr := g.Wait()
	if waitErr == nil {
		waitErr = ctx.Err()
	}

	for i, f := range files {
		if f != nil {
			summary.Files = append(summary.Files, *f)
			summary.Bytes += f.Size
		}
		if existing[i] {
			summary.Existing = append(summary.Existing, tasks[i].res.Name)
		}
		if errs[i] != nil {
			failures = append(failures, Failure{Name: tasks[i].res.Name, Err: errs[i]})
		}
	}
	if waitErr != nil {
		return summary, waitErr //nolint:wrapcheck // context error
	}
	if len(failures) > 0 {
		return summary, &IncompleteError{Failures: failures, Total: considered}
	}
	return summary, nil
}

// prepare filters and names the resources. Names that cannot be used are
// returned as failures.
func prepare(a *archive.Archive, opts Options, include func(string) bool, summary *Summary) ([]task, []Failure) {
	names := newUniqueNames()
	var (
		tasks    []task
		failures []Failure
	)
	for _, r := range a.Resources() {
		rel := SanitizePath(r.Name)
		if opts.RawNames {
			var err error
			if rel, err = NormalizePath(r.Name); err != nil {
				failures = append(failures, Failure{Name: r.Name, Err: fmt.Errorf("%w: %s", err, r.Name)})
				continue
			}
		}
		if !include(rel) {
			summary.Filtered++
			continue
		}
		rel = names.claim(rel)
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			failures = append(failures, Failure{Name: r.Name, Err: fmt.Errorf("%w: %s", ErrInvalidPath, rel)})
			continue
		}
		tasks = append(tasks, task{res: r, rel: rel})
	}
	return tasks, failures
}

func makeDirs(root string, tasks []task) error {
	seen := make(map[string]struct{})
	for _, t := range tasks {
		dir := filepath.Dir(filepath.FromSlash(t.rel))
		if dir == "." {
			continue
		}
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		if err := os.MkdirAll(filepath.Join(root, dir), 0o750); err != nil {
			return fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}
	return nil
}

func writeResource(a *archive.Archive, r *archive.Resource, target string, progressW io.Writer) (*File, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	d := digest.Canonical.Digester()
	n, err := a.ExtractTo(r, io.MultiWriter(tmp, d.Hash(), progressW))
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return nil, err //nolint:wrapcheck // already an *plan.ExtractError
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("rename %s: %w", target, err)
	}
	return &File{Name: r.Name, Digest: d.Digest(), Size: n}, nil
}

// countingWriter adds written lengths to a shared counter and reports them.
type countingWriter struct {
	n      *atomic.Int64
	report func()
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n.Add(int64(len(p)))
	w.report()
	return len(p), nil
}
