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
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/woozymasta/pathrules"

	"github.com/ZaparooProject/go-gamearchive/progress"
)

// Options controls ToDir.
type Options struct {
	// Progress receives extraction events. It may be nil.
	Progress progress.Sink

	// Logger receives one Info record per written resource.
	Logger *slog.Logger

	// Rules filter resources by name with gitignore-style patterns. When
	// any include rule is present, unmatched names are excluded; otherwise
	// unmatched names are included. The last matching rule wins.
	Rules []pathrules.Rule

	// Workers is the number of resources extracted at once.
	// Defaults to GOMAXPROCS.
	Workers int

	// Overwrite replaces existing files. Without it existing files are
	// left alone and reported in Summary.Existing.
	Overwrite bool

	// RawNames keeps resource names as they are apart from rejecting
	// absolute and parent-relative paths.
	RawNames bool
}

func (o *Options) applyDefaults() {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	o.Progress = progress.Monotonic(o.Progress)
}

// filter compiles the rules into a name predicate.
func (o *Options) filter() (func(string) bool, error) {
	rules := make([]pathrules.Rule, 0, len(o.Rules))
	defaultAction := pathrules.ActionInclude
	for _, r := range o.Rules {
		pattern := strings.TrimSpace(strings.ReplaceAll(r.Pattern, `\`, "/"))
		if pattern == "" {
			continue
		}
		if r.Action == pathrules.ActionInclude {
			defaultAction = pathrules.ActionExclude
		}
		rules = append(rules, pathrules.Rule{Action: r.Action, Pattern: pattern})
	}
	if len(rules) == 0 {
		return func(string) bool { return true }, nil
	}

	m, err := pathrules.NewMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   defaultAction,
	})
	if err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}
	return func(name string) bool { return m.Included(name, false) }, nil
}

// Include returns a rule including pattern.
func Include(pattern string) pathrules.Rule {
	return pathrules.Rule{Action: pathrules.ActionInclude, Pattern: pattern}
}

// Exclude returns a rule excluding pattern.
func Exclude(pattern string) pathrules.Rule {
	return pathrules.Rule{Action: pathrules.ActionExclude, Pattern: pattern}
}
