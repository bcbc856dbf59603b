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

package iso9660

import (
	"bufio"
	"io"
	"strings"

	"github.com/ZaparooProject/go-gamearchive/format"
	"github.com/ZaparooProject/go-gamearchive/source"
)

const maxCueSize = 1 << 20

// CueFile is one FILE entry of a CUE sheet and the track modes it holds.
type CueFile struct {
	Name   string
	Tracks []string
}

// CueSheet is a parsed CUE sheet.
type CueSheet struct {
	Files []CueFile
}

// ParseCue reads the FILE and TRACK lines of a CUE sheet.
func ParseCue(src source.Source) (*CueSheet, error) {
	if src.Size() > maxCueSize {
		return nil, format.Mismatch("cue sheet of %d bytes", src.Size())
	}
	cue := &CueSheet{}
	scanner := bufio.NewScanner(io.NewSectionReader(src, 0, src.Size()))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch strings.ToUpper(fields[0]) {
		case "FILE":
			// Extract filename between quotes
			name := ""
			if parts := strings.Split(line, `"`); len(parts) >= 3 {
				name = strings.TrimSpace(parts[1])
			} else if len(fields) >= 2 {
				name = fields[1]
			}
			if name != "" {
				cue.Files = append(cue.Files, CueFile{Name: strings.ReplaceAll(name, `\`, "/")})
			}
		case "TRACK":
			if len(cue.Files) > 0 && len(fields) >= 3 {
				f := &cue.Files[len(cue.Files)-1]
				f.Tracks = append(f.Tracks, strings.ToUpper(fields[2]))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, format.Mismatch("read cue sheet: %v", err)
	}
	if len(cue.Files) == 0 {
		return nil, format.Mismatch("no FILE entries in cue sheet")
	}
	return cue, nil
}

// DataFile returns the first file holding a non-audio track, or the first
// file when no track modes are listed.
func (c *CueSheet) DataFile() (string, bool) {
	for _, f := range c.Files {
		for _, mode := range f.Tracks {
			if mode != "AUDIO" {
				return f.Name, true
			}
		}
	}
	if len(c.Files) > 0 && len(c.Files[0].Tracks) == 0 {
		return c.Files[0].Name, true
	}
	return "", false
}
