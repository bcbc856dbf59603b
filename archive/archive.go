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

// Package archive holds the format-independent result of parsing a
// container: an ordered list of resources and the sources they read from.
package archive

import (
	_ "crypto/sha256" // registers digest.Canonical
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/opencontainers/go-digest"

	"github.com/ZaparooProject/go-gamearchive/plan"
	"github.com/ZaparooProject/go-gamearchive/source"
)

// Archive is a parsed container. The resource list keeps on-disk directory
// order. Only renaming passes mutate it after construction.
type Archive struct {
	resolver source.Resolver
	closer   io.Closer

	// Meta holds archive-level metadata such as header key/value pairs.
	Meta map[string]string

	// State holds per-archive shared values built once during parsing,
	// for example a palette or a name table.
	State map[string]any

	// Format is the name of the descriptor that parsed the archive.
	Format string

	// Path is the input path or URL.
	Path string

	resources []*Resource
	mu        sync.RWMutex
	closed    bool
}

// New returns an archive over resources whose plans resolve sources
// through r. closer, when not nil, is released by Close.
func New(format, path string, resources []*Resource, r source.Resolver, closer io.Closer) *Archive {
	return &Archive{
		Format:    format,
		Path:      path,
		resources: resources,
		resolver:  r,
		closer:    closer,
		Meta:      make(map[string]string),
		State:     make(map[string]any),
	}
}

// Resources returns the resources in directory order. The slice is a copy;
// the resources are shared.
func (a *Archive) Resources() []*Resource {
	out := make([]*Resource, len(a.resources))
	copy(out, a.resources)
	return out
}

// Len returns the number of resources.
func (a *Archive) Len() int { return len(a.resources) }

// Resolver returns the resolver used by resource plans.
func (a *Archive) Resolver() source.Resolver { return a.resolver }

// Find returns the resource with the given name. Names compare with
// normalized slashes, falling back to a case-insensitive match.
func (a *Archive) Find(name string) (*Resource, error) {
	want := normalizeName(name)
	for _, r := range a.resources {
		if normalizeName(r.Name) == want {
			return r, nil
		}
	}
	for _, r := range a.resources {
		if strings.EqualFold(normalizeName(r.Name), want) {
			return r, nil
		}
	}
	return nil, FileNotFoundError{Archive: a.Path, Name: name}
}

func normalizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

// Open finds a resource by name and opens its decoded stream.
func (a *Archive) Open(name string) (io.ReadCloser, error) {
	r, err := a.Find(name)
	if err != nil {
		return nil, err
	}
	return a.OpenResource(r)
}

// OpenResource returns a lazily decoded stream of r.
func (a *Archive) OpenResource(r *Resource) (io.ReadCloser, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, fmt.Errorf("open %s: %w", r.Name, source.ErrClosedSource)
	}
	return &resourceReader{rc: r.Plan.Open(a.resolver), name: r.Name}, nil
}

// resourceReader tags extraction errors with the resource name.
type resourceReader struct {
	rc   io.ReadCloser
	name string
}

func (r *resourceReader) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = r.label(err)
	}
	return n, err
}

func (r *resourceReader) label(err error) error {
	var ee *plan.ExtractError
	if errors.As(err, &ee) {
		labeled := *ee
		labeled.Resource = r.name
		return &labeled
	}
	return err
}

func (r *resourceReader) Close() error { return r.rc.Close() } //nolint:wrapcheck // plan reader

// ReadResource decodes r fully into memory.
func (a *Archive) ReadResource(r *Resource) ([]byte, error) {
	rc, err := a.OpenResource(r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err //nolint:wrapcheck // already an *plan.ExtractError
	}
	return data, nil
}

// ExtractTo decodes r into w. On failure the returned error is a
// *plan.ExtractError naming r and the offset at which decoding stopped.
func (a *Archive) ExtractTo(r *Resource, w io.Writer) (int64, error) {
	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return 0, &plan.ExtractError{Resource: r.Name, Err: source.ErrClosedSource}
	}

	n, err := r.Plan.ExtractTo(w, a.resolver)
	if err != nil {
		var ee *plan.ExtractError
		if errors.As(err, &ee) {
			ee.Resource = r.Name
			return n, ee
		}
		return n, err //nolint:wrapcheck // plan returns *ExtractError
	}
	return n, nil
}

// Prefix returns up to n decoded bytes from the start of r.
func (a *Archive) Prefix(r *Resource, n int) ([]byte, error) {
	rc, err := a.OpenResource(r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	buf := make([]byte, n)
	read, err := io.ReadFull(rc, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err //nolint:wrapcheck // already an *plan.ExtractError
	}
	return buf[:read], nil
}

// Digest returns the SHA-256 digest of r's decoded bytes.
func (a *Archive) Digest(r *Resource) (digest.Digest, error) {
	d := digest.Canonical.Digester()
	if _, err := a.ExtractTo(r, d.Hash()); err != nil {
		return "", err
	}
	return d.Digest(), nil
}

// OpenReaderAt decodes the named resource into memory for random access.
// The returned Closer must be called to release the buffer.
//
//nolint:revive // 4 return values mirror io.SectionReader construction
func (a *Archive) OpenReaderAt(name string) (io.ReaderAt, int64, io.Closer, error) {
	r, err := a.Find(name)
	if err != nil {
		return nil, 0, nil, err
	}
	data, err := a.ReadResource(r)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("buffer %s: %w", name, err)
	}
	src := source.NewMemory(r.Name, data)
	return src, src.Size(), src, nil
}

// Close releases the sources owned by the archive. Reads started before
// or after Close fail with source.ErrClosedSource.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	if a.closer == nil {
		return nil
	}
	if err := a.closer.Close(); err != nil {
		return fmt.Errorf("close archive %s: %w", a.Path, err)
	}
	return nil
}
