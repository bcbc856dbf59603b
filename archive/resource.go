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

package archive

import (
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/ZaparooProject/go-gamearchive/plan"
)

// Resource is one logical extractable entry of an archive.
type Resource struct {
	// Plan describes where the resource bytes live and how to decode them.
	Plan *plan.Plan

	// Properties holds format-specific metadata such as hashes, timestamps and flags.
	Properties map[string]string

	// Name is the display name. Directories are separated by '/'.
	Name string

	// RawSize is the stored, possibly compressed, length.
	RawSize int64

	// Size is the decoded length, or -1 when unknown until extraction.
	Size int64

	// Unnamed marks a synthesized name that renaming passes may replace.
	Unnamed bool
}

// NewResource returns a resource whose sizes are taken from p.
func NewResource(name string, p *plan.Plan) *Resource {
	return &Resource{
		Name:    name,
		Plan:    p,
		RawSize: p.RawSize(),
		Size:    p.Size(),
	}
}

// SetProperty sets a metadata value.
func (r *Resource) SetProperty(key, value string) {
	if r.Properties == nil {
		r.Properties = make(map[string]string)
	}
	r.Properties[key] = value
}

// Property returns a metadata value.
func (r *Resource) Property(key string) (string, bool) {
	v, ok := r.Properties[key]
	return v, ok
}

// PropertyKeys returns the metadata keys in sorted order.
func (r *Resource) PropertyKeys() []string {
	return slices.Sorted(maps.Keys(r.Properties))
}

// Rename replaces the display name and clears Unnamed.
func (r *Resource) Rename(name string) {
	r.Name = name
	r.Unnamed = false
}

// Ext returns the lower-case extension of the name without the dot.
func (r *Resource) Ext() string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(r.Name)), ".")
}

// Compressed reports whether the stored and decoded sizes differ.
func (r *Resource) Compressed() bool {
	return r.Size != r.RawSize
}

// Clone returns a deep copy of the resource.
func (r *Resource) Clone() *Resource {
	c := *r
	if r.Plan != nil {
		c.Plan = r.Plan.Clone()
	}
	c.Properties = maps.Clone(r.Properties)
	return &c
}
