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

package names

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache loads name tables from a directory once per name and shares them
// between archive opens. A missing or unreadable file yields an empty
// table so callers fall back to synthesized names.
type Cache struct {
	logger *slog.Logger
	tables map[string]*Table
	group  singleflight.Group
	dir    string
	mu     sync.RWMutex
}

// NewCache returns a cache reading from dir. An empty dir disables loading.
func NewCache(dir string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{dir: dir, logger: logger, tables: make(map[string]*Table)}
}

// Dir returns the directory the cache reads from.
func (c *Cache) Dir() string { return c.dir }

// Get returns the table stored under name, loading it on first use.
// Compiled (name.gob.gz) and gzip (name.gz) variants are tried after name.
func (c *Cache) Get(name string, h Hasher) *Table {
	c.mu.RLock()
	t, ok := c.tables[name]
	c.mu.RUnlock()
	if ok {
		return t
	}

	v, _, _ := c.group.Do(name, func() (any, error) {
		c.mu.RLock()
		t, ok := c.tables[name]
		c.mu.RUnlock()
		if ok {
			return t, nil
		}

		t = c.load(name, h)
		c.mu.Lock()
		c.tables[name] = t
		c.mu.Unlock()
		return t, nil
	})
	return v.(*Table) //nolint:forcetypeassert // Do only returns *Table
}

func (c *Cache) load(name string, h Hasher) *Table {
	if c.dir == "" {
		c.logger.Debug("name table directory not configured", slog.String("table", name))
		return Empty()
	}

	base := filepath.Join(c.dir, name)
	candidates := []string{base}
	if !strings.HasSuffix(name, ".gz") {
		candidates = append(candidates, strings.TrimSuffix(base, filepath.Ext(base))+".gob.gz", base+".gz")
	}

	for _, path := range candidates {
		t, err := LoadFile(path, h)
		if err == nil {
			c.logger.Debug("loaded name table",
				slog.String("path", path),
				slog.Int("names", t.Len()))
			return t
		}
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		c.logger.Warn("name table unreadable, using synthesized names",
			slog.String("path", path),
			slog.Any("error", err))
		return Empty()
	}

	c.logger.Warn("name table not found, using synthesized names",
		slog.String("table", name),
		slog.String("dir", c.dir))
	return Empty()
}

// Loaded reports whether name has been loaded.
func (c *Cache) Loaded(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tables[name]
	return ok
}
