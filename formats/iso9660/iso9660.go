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

// Package iso9660 reads ISO 9660 disc images as archives of their files.
//
// Both cooked images with 2048-byte sectors and raw images with 2352-byte
// sectors are accepted. Files in raw images are read sector by sector,
// skipping the sync, header and error correction bytes around each block
// of user data. CUE sheets are followed to their first data track.
package iso9660

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/ZaparooProject/go-gamearchive/archive"
	"github.com/ZaparooProject/go-gamearchive/codec"
	"github.com/ZaparooProject/go-gamearchive/format"
	bin "github.com/ZaparooProject/go-gamearchive/internal/binary"
	"github.com/ZaparooProject/go-gamearchive/plan"
	"github.com/ZaparooProject/go-gamearchive/source"
	"github.com/ZaparooProject/go-gamearchive/validate"
)

// Sector sizes.
const (
	SectorSize    = 2048
	RawSectorSize = 2352
)

const (
	pvdSector  = 16
	pvdSearch  = 1000000
	dirRecord  = 33
	flagDir    = 0x02
	maxDirPath = 255
)

// PVD magic word: 0x01 followed by "CD001"
var pvdMagicWord = []byte{0x01, 'C', 'D', '0', '0', '1'}

// ErrPVDNotFound is returned when no primary volume descriptor is present.
var ErrPVDNotFound = errors.New("primary volume descriptor not found")

// Format is the ISO 9660 descriptor.
type Format struct{}

var _ format.Descriptor = Format{}

// Info implements format.Descriptor.
func (Format) Info() format.Info {
	return format.Info{
		Name:        "ISO9660",
		Description: "ISO 9660 disc image",
		Extensions:  []string{".iso", ".bin", ".img", ".cue"},
		Platforms:   []string{"PlayStation", "PlayStation 2", "PSP", "Saturn", "Sega CD", "Neo Geo CD"},
	}
}

// pvdOffsets are the places a PVD sits in cooked, raw Mode 1 and raw
// Mode 2 images.
var pvdOffsets = []int64{
	pvdSector * SectorSize,
	pvdSector*RawSectorSize + 16,
	pvdSector*RawSectorSize + 24,
}

// Score implements format.Descriptor.
func (f Format) Score(p *format.Probe) int {
	var ev format.Evidence
	ev.Extension(p, f.Info().Extensions)
	if p.HasExt(".cue") {
		head := strings.ToUpper(string(p.Peek(0, int(min(p.Size(), 512)))))
		ev.Field(strings.Contains(head, "FILE") && strings.Contains(head, "TRACK"))
		return ev.Score()
	}
	for _, off := range pvdOffsets {
		if ev.Magic(p.HasMagic(off, string(pvdMagicWord))) {
			ev.Field(p.Size()%SectorSize == 0 || p.Size()%RawSectorSize == 0)
			break
		}
	}
	return ev.Score()
}

// Parse implements format.Descriptor.
func (Format) Parse(c *format.Context) (*format.Result, error) {
	src, id := c.Source, c.ID
	meta := map[string]string{}
	if c.Ext == ".cue" {
		sheet, err := ParseCue(c.Source)
		if err != nil {
			return nil, err
		}
		name, ok := sheet.DataFile()
		if !ok {
			return nil, format.Mismatch("cue sheet names no data file")
		}
		if src, err = c.Sibling(name); err != nil {
			return nil, fmt.Errorf("cue data file: %w", err)
		}
		id = name
		meta["cue_file"] = name
	}

	img, err := open(src, c.Limits())
	if err != nil {
		return nil, err
	}
	files, err := img.files(c)
	if err != nil {
		return nil, err
	}

	resources := make([]*archive.Resource, 0, len(files))
	for _, fi := range files {
		p, err := img.plan(id, fi)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fi.Path, err)
		}
		res := archive.NewResource(fi.Path, p)
		res.SetProperty("lba", strconv.FormatUint(uint64(fi.LBA), 10))
		resources = append(resources, res)
	}

	meta["block_size"] = strconv.Itoa(img.blockSize)
	meta["system_id"] = img.systemID()
	meta["volume_id"] = img.volumeID()
	meta["publisher_id"] = img.publisherID()
	meta["data_preparer_id"] = img.dataPreparerID()
	meta["uuid"] = img.uuid()
	return &format.Result{Meta: meta, Resources: resources}, nil
}

// FileInfo contains information about a file in the ISO filesystem.
type FileInfo struct {
	Path string
	LBA  uint32 // Logical Block Address
	Size uint32
}

type pathTableEntry struct {
	name      string
	lba       uint32
	parentIdx int // -1 for root
}

// image is a parsed ISO 9660 volume.
type image struct {
	src         source.Source
	limits      validate.Limits
	pvd         []byte
	pathTable   []pathTableEntry
	blockOffset int64
	blockSize   int
}

func open(src source.Source, limits validate.Limits) (*image, error) {
	img := &image{src: src, limits: limits}
	switch size := src.Size(); {
	case size%RawSectorSize == 0 && size > 0:
		img.blockSize = RawSectorSize
	case size%SectorSize == 0 && size > 0:
		img.blockSize = SectorSize
	default:
		return nil, format.Mismatch("image length %d is not a sector multiple", size)
	}

	pvdOffset, err := bin.FindBytesInRange(src, 0, min(src.Size(), pvdSearch), pvdMagicWord)
	if err != nil {
		return nil, fmt.Errorf("search PVD: %w", err)
	}
	if pvdOffset < 0 {
		return nil, format.Mismatch("%v", ErrPVDNotFound)
	}
	// A cooked image whose length happens to divide by the raw sector size.
	if img.blockSize == RawSectorSize && pvdOffset == pvdSector*SectorSize {
		img.blockSize = SectorSize
	}

	img.blockOffset = pvdOffset - int64(pvdSector*img.blockSize)
	if img.blockOffset < 0 {
		return nil, format.Mismatch("PVD at %d precedes sector %d", pvdOffset, pvdSector)
	}
	if img.pvd, err = bin.ReadBytesAt(src, pvdOffset, SectorSize); err != nil {
		return nil, format.Mismatch("read PVD: %v", err)
	}
	if err := img.parsePathTable(); err != nil {
		return nil, fmt.Errorf("path table: %w", err)
	}
	return img, nil
}

// sectorOffset returns the offset of the user data of sector lba.
func (img *image) sectorOffset(lba uint32) int64 {
	return img.blockOffset + int64(lba)*int64(img.blockSize)
}

// readSectors reads n bytes of user data starting at sector lba.
func (img *image) readSectors(lba uint32, n int) ([]byte, error) {
	if img.blockSize == SectorSize {
		return bin.ReadBytesAt(img.src, img.sectorOffset(lba), n) //nolint:wrapcheck // wrapped by caller
	}
	out := make([]byte, 0, n)
	for len(out) < n {
		chunk := min(SectorSize, n-len(out))
		b, err := bin.ReadBytesAt(img.src, img.sectorOffset(lba), chunk)
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped by caller
		}
		out = append(out, b...)
		lba++
	}
	return out, nil
}

func (img *image) parsePathTable() error {
	// Path table size at offset 132 (little-endian)
	pathTableSize := binary.LittleEndian.Uint32(img.pvd[132:136])
	// Path table LBA at offset 140 (little-endian)
	pathTableLBA := binary.LittleEndian.Uint32(img.pvd[140:144])

	if err := img.limits.CheckRange(img.sectorOffset(pathTableLBA), int64(pathTableSize), img.src.Size()); err != nil {
		return err //nolint:wrapcheck // bounds error names the check
	}
	raw, err := img.readSectors(pathTableLBA, int(pathTableSize))
	if err != nil {
		return format.Mismatch("read path table: %v", err)
	}

	img.pathTable = nil
	for i := 0; i+8 <= len(raw); {
		dirNameLen := int(raw[i])
		if dirNameLen == 0 || i+8+dirNameLen > len(raw) {
			break
		}
		dirLBA := binary.LittleEndian.Uint32(raw[i+2 : i+6])
		dirParentIdx := int(binary.LittleEndian.Uint16(raw[i+6:i+8])) - 1

		dirName := string(raw[i+8 : i+8+dirNameLen])
		if dirName == "\x00" {
			dirName = ""
			dirParentIdx = -1
		}
		img.pathTable = append(img.pathTable, pathTableEntry{
			name:      dirName + "/",
			lba:       dirLBA,
			parentIdx: dirParentIdx,
		})

		// 8 + name length, padded to even
		i += 8 + dirNameLen
		if i%2 == 1 {
			i++
		}
	}
	if len(img.pathTable) == 0 {
		return format.Mismatch("empty path table")
	}
	return nil
}

// dirPath joins the names from the root down to entry idx. Parent chains
// longer than the table are cut off.
func (img *image) dirPath(idx int) string {
	var parts []string
	for hops := 0; idx >= 0 && idx < len(img.pathTable) && hops <= len(img.pathTable); hops++ {
		e := img.pathTable[idx]
		parts = append(parts, e.name)
		if e.parentIdx == idx {
			break
		}
		idx = e.parentIdx
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteString(parts[i])
	}
	return strings.TrimPrefix(b.String(), "/")
}

// files walks every directory of the path table.
func (img *image) files(c *format.Context) ([]FileInfo, error) {
	var files []FileInfo
	for idx, entry := range img.pathTable {
		dir := img.dirPath(idx)
		if len(dir) > maxDirPath {
			return nil, format.Mismatch("directory path too long at entry %d", idx)
		}

		first, err := img.readSectors(entry.lba, SectorSize)
		if err != nil {
			return nil, format.Mismatch("directory %q: %v", dir, err)
		}
		extent := int64(SectorSize)
		if first[0] >= dirRecord {
			extent = int64(binary.LittleEndian.Uint32(first[10:14]))
		}
		if err := img.limits.CheckLength(extent, img.src.Size()); err != nil {
			return nil, fmt.Errorf("directory %q: %w", dir, err)
		}
		sectors := max(1, (extent+SectorSize-1)/SectorSize)

		for s := range sectors {
			buf := first
			if s > 0 {
				if buf, err = img.readSectors(entry.lba+uint32(s), SectorSize); err != nil { //nolint:gosec // bounded by extent
					return nil, format.Mismatch("directory %q: %v", dir, err)
				}
			}
			found, err := img.records(c, dir, buf, len(files))
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
		}
		c.Progress(len(files), 0)
	}
	return files, nil
}

// records decodes the file records of one directory sector.
func (img *image) records(c *format.Context, dir string, buf []byte, seen int) ([]FileInfo, error) {
	var files []FileInfo
	for off := 0; off < len(buf); {
		recLen := int(buf[off])
		if recLen == 0 {
			break
		}
		if recLen < dirRecord || off+recLen > len(buf) {
			return nil, format.Mismatch("directory %q: bad record length %d", dir, recLen)
		}
		rec := buf[off : off+recLen]
		off += recLen

		if rec[25]&flagDir != 0 {
			continue
		}
		nameLen := int(rec[32])
		if nameLen == 0 || dirRecord+nameLen > len(rec) {
			continue
		}

		name := cleanName(string(rec[dirRecord : dirRecord+nameLen]))
		full := dir + name
		if err := c.Limits().CheckFilename(full); err != nil {
			return nil, fmt.Errorf("directory %q: %w", dir, err)
		}
		if err := c.Limits().CheckNumEntries(int64(seen + len(files) + 1)); err != nil {
			return nil, err //nolint:wrapcheck // bounds error names the check
		}
		files = append(files, FileInfo{
			Path: full,
			LBA:  binary.LittleEndian.Uint32(rec[2:6]),
			Size: binary.LittleEndian.Uint32(rec[10:14]),
		})
	}
	return files, nil
}

// cleanName drops the ";1" version suffix and a dot left by an empty extension.
func cleanName(name string) string {
	if i := strings.IndexByte(name, ';'); i >= 0 {
		name = name[:i]
	}
	if strings.HasSuffix(name, ".") && path.Ext(strings.TrimSuffix(name, ".")) == "" {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

// plan maps a file onto the image. Raw images get one segment per sector.
func (img *image) plan(id string, fi FileInfo) (*plan.Plan, error) {
	size := int64(fi.Size)
	sectors := (size + SectorSize - 1) / SectorSize
	if err := img.limits.CheckRange(img.sectorOffset(fi.LBA), sectors*int64(img.blockSize), img.src.Size()+int64(img.blockSize-SectorSize)); err != nil {
		return nil, err //nolint:wrapcheck // bounds error names the check
	}
	if img.blockSize == SectorSize || size == 0 {
		return plan.Raw(id, img.sectorOffset(fi.LBA), size), nil
	}

	blocks := make([]plan.Block, sectors)
	remain := size
	for i := range blocks {
		n := min(SectorSize, remain)
		blocks[i] = plan.Block{Offset: img.sectorOffset(fi.LBA + uint32(i)), Length: n} //nolint:gosec // bounded by file size
		remain -= n
	}
	p, err := plan.FixedBlocks(id, blocks, SectorSize, size, codec.Store{})
	if err != nil {
		return nil, fmt.Errorf("sector map: %w", err)
	}
	return p, nil
}

func (img *image) systemID() string       { return bin.CleanString(img.pvd[8:40]) }
func (img *image) volumeID() string       { return bin.CleanString(img.pvd[40:72]) }
func (img *image) publisherID() string    { return bin.CleanString(img.pvd[318:446]) }
func (img *image) dataPreparerID() string { return bin.CleanString(img.pvd[446:574]) }

// uuid formats the volume creation date as XXXX-XX-XX-XX-XX-XX-XX.
func (img *image) uuid() string {
	uuid := strings.TrimSpace(string(img.pvd[813:829]))
	if len(uuid) < 4 {
		return uuid
	}
	result := uuid[:4]
	for i := 4; i < len(uuid); i += 2 {
		end := min(i+2, len(uuid))
		result += "-" + uuid[i:end]
	}
	return result
}
