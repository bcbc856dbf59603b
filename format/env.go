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

package format

import (
	"log/slog"

	"github.com/ZaparooProject/go-gamearchive/codec"
	"github.com/ZaparooProject/go-gamearchive/names"
	"github.com/ZaparooProject/go-gamearchive/progress"
	"github.com/ZaparooProject/go-gamearchive/validate"
)

// Env is the shared context handed to every descriptor. It is built once
// and passed explicitly; nothing in it is mutated after construction
// except the name cache, which guards its own initialization.
type Env struct {
	Codecs   *codec.Registry
	Names    *names.Cache
	Logger   *slog.Logger
	Progress progress.Sink
	Limits   validate.Limits
}

// NewEnv returns an environment with the default codecs and limits, no
// name directory, and discarded logs and progress.
func NewEnv() *Env {
	return (&Env{}).withDefaults()
}

// withDefaults returns a copy of e with unset fields filled in.
func (e *Env) withDefaults() *Env {
	out := &Env{}
	if e != nil {
		*out = *e
	}
	if out.Logger == nil {
		out.Logger = slog.New(slog.DiscardHandler)
	}
	if out.Codecs == nil {
		out.Codecs = codec.Default()
	}
	if out.Names == nil {
		out.Names = names.NewCache("", out.Logger)
	}
	out.Progress = progress.OrNop(out.Progress)
	if out.Limits == (validate.Limits{}) {
		out.Limits = validate.Default()
	}
	return out
}
