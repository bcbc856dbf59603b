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

package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Resolver maps source identifiers used by segment plans to open sources.
type Resolver interface {
	Resolve(id string) (Source, error)
}

// Static resolves identifiers from a fixed map. It never opens or closes anything.
type Static map[string]Source

// Resolve implements Resolver.
func (s Static) Resolve(id string) (Source, error) {
	if src, ok := s[id]; ok {
		return src, nil
	}
	return nil, fmt.Errorf("resolve %q: %w", id, fs.ErrNotExist)
}

// FileSet resolves identifiers as file names relative to a directory.
// Files are opened on first use and stay open until Close.
type FileSet struct {
	entries map[string]*fileSetEntry
	static  Static
	dir     string
	mu      sync.Mutex
	closed  bool
}

type fileSetEntry struct {
	src   Source
	owned bool
}

// NewFileSet returns an empty set rooted at dir.
func NewFileSet(dir string) *FileSet {
	return &FileSet{dir: dir, entries: make(map[string]*fileSetEntry)}
}

// NewStaticSet returns a set with no directory. Identifiers that were not
// registered are looked up in st and the filesystem is never consulted.
func NewStaticSet(st Static) *FileSet {
	if st == nil {
		st = Static{}
	}
	return &FileSet{static: st, entries: make(map[string]*fileSetEntry)}
}

// Dir returns the directory identifiers are resolved against.
func (s *FileSet) Dir() string { return s.dir }

// Adopt registers src under id. The set closes it on Close.
func (s *FileSet) Adopt(id string, src Source) {
	s.put(id, src, true)
}

// Share registers src under id without taking ownership of it.
func (s *FileSet) Share(id string, src Source) {
	s.put(id, src, false)
}

func (s *FileSet) put(id string, src Source, owned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &fileSetEntry{src: src, owned: owned}
}

// Resolve implements Resolver. Lookups fall back to a case-insensitive match
// within the set's directory.
func (s *FileSet) Resolve(id string) (Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("resolve %q: %w", id, ErrClosedSource)
	}
	if e, ok := s.entries[id]; ok {
		return e.src, nil
	}
	if s.static != nil {
		return s.static.Resolve(id)
	}

	path, err := s.locate(id)
	if err != nil {
		return nil, err
	}
	src, err := OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", id, err)
	}
	s.entries[id] = &fileSetEntry{src: src, owned: true}
	return src, nil
}

func (s *FileSet) locate(id string) (string, error) {
	path := id
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, filepath.FromSlash(id))
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", id, fs.ErrNotExist)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), base) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("resolve %q: %w", id, fs.ErrNotExist)
}

// Opened returns the identifiers currently held by the set.
func (s *FileSet) Opened() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// Close closes every owned source. Later Resolve calls fail with ErrClosedSource.
func (s *FileSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, e := range s.entries {
		if !e.owned {
			continue
		}
		if err := e.src.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
