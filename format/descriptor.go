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

// Package format selects and runs the descriptor that parses an archive.
//
// Every descriptor scores an unknown input with a cheap probe. The matcher
// tries the best-scoring descriptors in order until one parses the input,
// treating "not this format" rejections as ordinary control flow.
package format

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ZaparooProject/go-gamearchive/archive"
	"github.com/ZaparooProject/go-gamearchive/codec"
)

// Info describes a descriptor.
type Info struct {
	Name        string
	Description string

	// Extensions lists accepted file extensions with the leading dot.
	Extensions []string

	// Platforms lists the systems or games the format belongs to.
	Platforms []string

	// Codecs lists the codec tags the descriptor may attach to segments.
	Codecs []codec.Tag
}

// Descriptor parses one archive format.
type Descriptor interface {
	// Info returns the registration metadata.
	Info() Info

	// Score returns the confidence that p is this format. It must not
	// mutate shared state and must return 0 for anything it cannot read.
	Score(p *Probe) int

	// Parse builds the resource directory. It returns an error matching
	// ErrNotThisFormat when structural checks show the input is not this
	// format.
	Parse(c *Context) (*Result, error)
}

// Renamer is implemented by descriptors that can name resources the
// container stores without names. It runs after parsing and may only
// rename resources.
type Renamer interface {
	RenameUnnamed(c *Context, resources []*archive.Resource, prefix func(*archive.Resource) []byte)
}

// Result is a successful parse.
type Result struct {
	// Meta holds archive-level metadata.
	Meta map[string]string

	// State holds per-archive shared values.
	State map[string]any

	// Resources in on-disk directory order.
	Resources []*archive.Resource
}

// Registry holds descriptors in registration order.
type Registry struct {
	byName      map[string]int
	descriptors []Descriptor
	mu          sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register appends d. Names are unique, compared case-insensitively.
func (r *Registry) Register(d Descriptor) error {
	name := strings.ToLower(d.Info().Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateFormat, d.Info().Name)
	}
	r.byName[name] = len(r.descriptors)
	r.descriptors = append(r.descriptors, d)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(ds ...Descriptor) {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// Descriptors returns the descriptors in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.descriptors)
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
	return r.descriptors[i], nil
}

// Extensions returns every accepted extension, lower-cased and sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var exts []string
	for _, d := range r.descriptors {
		for _, e := range d.Info().Extensions {
			e = strings.ToLower(e)
			if !slices.Contains(exts, e) {
				exts = append(exts, e)
			}
		}
	}
	slices.Sort(exts)
	return exts
}
