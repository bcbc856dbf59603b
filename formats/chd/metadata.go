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

package chd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	bin "github.com/ZaparooProject/go-gamearchive/internal/binary"
)

// Metadata tags (4-byte big-endian ASCII).
const (
	MetaTagCHT2 = 0x43485432 // "CHT2", CD track v2
	MetaTagCHCD = 0x43484344 // "CHCD", binary CD table
	MetaTagCHTR = 0x43485452 // "CHTR", CD track v1
	MetaTagCHGD = 0x43484744 // "CHGD", GD-ROM track
)

// Metadata limits.
const (
	MaxMetadataEntries = 256
	MaxMetadataLen     = 1 << 16
	MaxNumTracks       = 99
)

// ErrInvalidMetadata is returned for a malformed metadata chain.
var ErrInvalidMetadata = errors.New("invalid CHD metadata")

// Track is one CD or GD-ROM track described by the metadata.
type Track struct {
	Type       string
	SubType    string
	Number     int
	Frames     int
	Pregap     int
	Postgap    int
	DataSize   int
	SubSize    int
	StartFrame int
}

// IsDataTrack reports whether the track holds data rather than audio.
func (t *Track) IsDataTrack() bool {
	return !strings.EqualFold(t.Type, "AUDIO")
}

// String renders the track for archive metadata.
func (t *Track) String() string {
	return fmt.Sprintf("%s frames=%d start=%d pregap=%d subtype=%s",
		t.Type, t.Frames, t.StartFrame, t.Pregap, t.SubType)
}

type metadataEntry struct {
	Data []byte
	Next uint64
	Tag  uint32
}

// readMetadata walks the metadata chain starting at offset.
func readMetadata(r io.ReaderAt, offset uint64) ([]metadataEntry, error) {
	var entries []metadataEntry
	visited := make(map[uint64]bool)
	for offset != 0 {
		if visited[offset] {
			return entries, fmt.Errorf("%w: circular chain at offset %d", ErrInvalidMetadata, offset)
		}
		visited[offset] = true
		if len(entries) >= MaxMetadataEntries {
			return entries, fmt.Errorf("%w: more than %d entries", ErrInvalidMetadata, MaxMetadataEntries)
		}

		// tag (4), flags (1), length (3), next (8), data
		head, err := bin.ReadBytesAt(r, int64(offset), 16) //nolint:gosec // chain offsets are checked by ReadAt
		if err != nil {
			return entries, fmt.Errorf("%w: entry at %d: %w", ErrInvalidMetadata, offset, err)
		}
		length := uint32(head[5])<<16 | uint32(head[6])<<8 | uint32(head[7])
		if length > MaxMetadataLen {
			return entries, fmt.Errorf("%w: entry of %d bytes", ErrInvalidMetadata, length)
		}
		e := metadataEntry{Tag: binary.BigEndian.Uint32(head), Next: binary.BigEndian.Uint64(head[8:])}
		if e.Data, err = bin.ReadBytesAt(r, int64(offset)+16, int(length)); err != nil { //nolint:gosec // as above
			return entries, fmt.Errorf("%w: entry data at %d: %w", ErrInvalidMetadata, offset, err)
		}
		entries = append(entries, e)
		offset = e.Next
	}
	return entries, nil
}

// parseTracks collects the track table from the metadata entries.
func parseTracks(entries []metadataEntry) ([]Track, error) {
	var tracks []Track
	for _, e := range entries {
		switch e.Tag {
		case MetaTagCHT2, MetaTagCHTR, MetaTagCHGD:
			t, err := parseTrackText(e.Data)
			if err != nil {
				return nil, err
			}
			tracks = append(tracks, t)
		case MetaTagCHCD:
			parsed, err := parseCHCD(e.Data)
			if err != nil {
				return nil, err
			}
			tracks = append(tracks, parsed...)
		}
	}
	if len(tracks) > MaxNumTracks {
		return nil, fmt.Errorf("%w: %d tracks", ErrInvalidMetadata, len(tracks))
	}

	start := 0
	for i := range tracks {
		tracks[i].StartFrame = start
		start += tracks[i].Pregap + tracks[i].Frames + tracks[i].Postgap
	}
	return tracks, nil
}

// parseTrackText parses the ASCII "KEY:value" track descriptions, e.g.
// "TRACK:1 TYPE:MODE2_RAW SUBTYPE:NONE FRAMES:1234 PREGAP:150".
func parseTrackText(data []byte) (Track, error) {
	var t Track
	for _, field := range strings.Fields(strings.TrimRight(string(data), "\x00")) {
		key, value, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		var dst *int
		switch strings.ToUpper(key) {
		case "TYPE":
			t.Type = value
			t.DataSize = trackDataSize(value)
		case "SUBTYPE":
			t.SubType = value
			if strings.HasPrefix(strings.ToUpper(value), "RW") {
				t.SubSize = 96
			}
		case "TRACK":
			dst = &t.Number
		case "FRAMES":
			dst = &t.Frames
		case "PREGAP":
			dst = &t.Pregap
		case "POSTGAP":
			dst = &t.Postgap
		}
		if dst == nil {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return t, fmt.Errorf("%w: %s %q", ErrInvalidMetadata, key, value)
		}
		*dst = n
	}
	return t, nil
}

// parseCHCD parses the binary track table: a big-endian count followed by
// 24-byte entries of type, subtype, data size, sub size, frames, padding.
func parseCHCD(data []byte) ([]Track, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: CHCD of %d bytes", ErrInvalidMetadata, len(data))
	}
	be := binary.BigEndian
	n := be.Uint32(data)
	if n > MaxNumTracks || len(data) < 4+int(n)*24 {
		return nil, fmt.Errorf("%w: CHCD with %d tracks", ErrInvalidMetadata, n)
	}
	tracks := make([]Track, n)
	for i := range tracks {
		e := data[4+i*24:]
		tracks[i] = Track{
			Number:   i + 1,
			Type:     cdTypes[min(be.Uint32(e), uint32(len(cdTypes)-1))],
			SubType:  cdSubTypes[min(be.Uint32(e[4:]), uint32(len(cdSubTypes)-1))],
			DataSize: int(be.Uint32(e[8:])),
			SubSize:  int(be.Uint32(e[12:])),
			Frames:   int(be.Uint32(e[16:])),
		}
	}
	return tracks, nil
}

var (
	cdTypes    = []string{"MODE1/2048", "MODE1/2352", "MODE2/2048", "MODE2/2336", "MODE2/2352", "AUDIO", "UNKNOWN"}
	cdSubTypes = []string{"RW", "RW_RAW", "NONE"}
)

func trackDataSize(trackType string) int {
	switch strings.ToUpper(trackType) {
	case "MODE1/2048", "MODE2/2048", "MODE2_FORM1":
		return 2048
	case "MODE2/2336", "MODE2_FORM_MIX":
		return 2336
	default:
		return cdSectorSize
	}
}
