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

package extract

import (
	"path"
	"strconv"
	"strings"
	"unicode"
)

// maxSegmentLen keeps one path element within common filesystem limits.
const maxSegmentLen = 240

// reservedNames are DOS device names that cannot be used as file names on Windows.
var reservedNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {}, "clock$": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {}, "com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {}, "lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// NormalizePath converts name to a clean relative slash path. Absolute
// paths, drive letters, NUL bytes and ".." elements are rejected.
func NormalizePath(name string) (string, error) {
	raw := strings.TrimSpace(name)
	if raw == "" || strings.ContainsRune(raw, 0) {
		return "", ErrInvalidPath
	}
	raw = strings.ReplaceAll(raw, `\`, "/")
	if strings.HasPrefix(raw, "/") || hasDrivePrefix(raw) {
		return "", ErrInvalidPath
	}

	parts := strings.Split(raw, "/")
	clean := parts[:0]
	for _, p := range parts {
		switch p {
		case "", ".":
			continue
		case "..":
			return "", ErrInvalidPath
		default:
			clean = append(clean, p)
		}
	}
	if len(clean) == 0 {
		return "", ErrInvalidPath
	}
	return strings.Join(clean, "/"), nil
}

func hasDrivePrefix(p string) bool {
	return len(p) >= 2 && p[1] == ':' && ((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}

// SanitizePath rewrites name into a portable relative path. Unlike
// NormalizePath it never fails: unsafe elements are replaced.
func SanitizePath(name string) string {
	parts := strings.Split(strings.ReplaceAll(name, `\`, "/"), "/")
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		switch {
		case p == "" || p == ".":
			continue
		case p == "..":
			out = append(out, "_")
		case i == 0 && hasDrivePrefix(p) && len(p) == 2:
			continue
		default:
			out = append(out, sanitizeSegment(p))
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return strings.Join(out, "/")
}

func sanitizeSegment(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) || unicode.In(r, unicode.Cf) || r == '\uFFFD' || strings.ContainsRune(`<>:"|?*`, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}

	out := strings.TrimRight(b.String(), ". ")
	if out == "" {
		return "_"
	}
	if isReserved(out) {
		out = "_" + out
	}
	if len(out) > maxSegmentLen {
		ext := path.Ext(out)
		if len(ext) > 16 {
			ext = ""
		}
		out = out[:maxSegmentLen-len(ext)] + ext
	}
	return out
}

func isReserved(name string) bool {
	base := strings.ToLower(name)
	if dot := strings.IndexByte(base, '.'); dot >= 0 {
		base = base[:dot]
	}
	_, ok := reservedNames[strings.TrimRight(base, " ")]
	return ok
}

// uniqueNames hands out case-insensitively unique paths, suffixing
// repeats with "~N" before the extension.
type uniqueNames struct {
	used map[string]struct{}
}

func newUniqueNames() *uniqueNames {
	return &uniqueNames{used: make(map[string]struct{})}
}

func (u *uniqueNames) claim(p string) string {
	key := strings.ToLower(p)
	if _, taken := u.used[key]; !taken {
		u.used[key] = struct{}{}
		return p
	}

	dir, file := path.Split(p)
	ext := path.Ext(file)
	base := strings.TrimSuffix(file, ext)
	for n := 2; ; n++ {
		candidate := dir + base + "~" + strconv.Itoa(n) + ext
		key := strings.ToLower(candidate)
		if _, taken := u.used[key]; !taken {
			u.used[key] = struct{}{}
			return candidate
		}
	}
}
