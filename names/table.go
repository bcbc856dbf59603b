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
	"bufio"
	"encoding/csv"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Table maps hashes to names. It is read-only once built and safe to share.
type Table struct {
	names map[uint64]string
}

// NewTable returns a table holding a copy of m.
func NewTable(m map[uint64]string) *Table {
	t := &Table{names: make(map[uint64]string, len(m))}
	for k, v := range m {
		t.names[k] = v
	}
	return t
}

// Empty returns a table with no names.
func Empty() *Table {
	return &Table{names: map[uint64]string{}}
}

// Lookup returns the name recorded for hash.
func (t *Table) Lookup(hash uint64) (string, bool) {
	if t == nil {
		return "", false
	}
	name, ok := t.names[hash]
	return name, ok
}

// Len returns the number of names.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// LoadList builds a table from one name per line. Blank lines and lines
// starting with '#' are skipped. The first name wins on hash collisions.
func LoadList(r io.Reader, h Hasher) (*Table, error) {
	names := make(map[uint64]string)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		name := strings.TrimRight(scanner.Text(), "\r")
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		hash := h(name)
		if _, dup := names[hash]; !dup {
			names[hash] = name
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read name list: %w", err)
	}
	return &Table{names: names}, nil
}

// LoadTSV builds a table from "hash<TAB>name" records with hexadecimal
// hashes. A first record whose hash does not parse is taken as a header.
func LoadTSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	names := make(map[uint64]string)
	for line := 0; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tsv: %w", err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("read tsv: record %d has %d fields", line+1, len(rec))
		}
		hash, err := parseHash(rec[0])
		if err != nil {
			if line == 0 {
				continue
			}
			return nil, fmt.Errorf("read tsv: record %d: %w", line+1, err)
		}
		if _, dup := names[hash]; !dup {
			names[hash] = rec[1]
		}
	}
	return &Table{names: names}, nil
}

func parseHash(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hash %q: %w", s, err)
	}
	return v, nil
}

// LoadFile loads a table from path. Files ending in .gob.gz hold a compiled
// table; other .gz files are decompressed first. Inner files ending in .tsv
// are read with LoadTSV, anything else with LoadList and h.
func LoadFile(path string, h Hasher) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // Path from user input is expected
	if err != nil {
		return nil, fmt.Errorf("open name table: %w", err)
	}
	defer func() { _ = f.Close() }()

	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".gob.gz") {
		return Decode(f)
	}

	var r io.Reader = f
	if strings.HasSuffix(lower, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
		lower = strings.TrimSuffix(lower, ".gz")
	}

	if filepath.Ext(lower) == ".tsv" {
		return LoadTSV(r)
	}
	return LoadList(r, h)
}

// Decode reads a compiled gob+gzip table.
func Decode(r io.Reader) (*Table, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }()

	names := make(map[uint64]string)
	if err := gob.NewDecoder(gz).Decode(&names); err != nil {
		return nil, fmt.Errorf("failed to decode name table: %w", err)
	}
	return &Table{names: names}, nil
}

// Encode writes the table in compiled gob+gzip form.
func (t *Table) Encode(w io.Writer) error {
	gz := gzip.NewWriter(w)
	if err := gob.NewEncoder(gz).Encode(t.names); err != nil {
		_ = gz.Close()
		return fmt.Errorf("failed to encode name table: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to flush name table: %w", err)
	}
	return nil
}

// Save writes the compiled table to path.
func (t *Table) Save(path string) error {
	file, err := os.Create(path) //nolint:gosec // Path from user input is expected
	if err != nil {
		return fmt.Errorf("failed to create name table file: %w", err)
	}
	if err := t.Encode(file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close name table file: %w", err)
	}
	return nil
}
