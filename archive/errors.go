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

import "fmt"

// FileNotFoundError indicates a resource name that is not in the archive.
type FileNotFoundError struct {
	Archive string
	Name    string
}

func (e FileNotFoundError) Error() string {
	return fmt.Sprintf("resource %q not found in archive %q", e.Name, e.Archive)
}
