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

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/pathrules"

	"github.com/ZaparooProject/go-gamearchive"
	"github.com/ZaparooProject/go-gamearchive/archive"
	"github.com/ZaparooProject/go-gamearchive/extract"
	"github.com/ZaparooProject/go-gamearchive/names"
	"github.com/ZaparooProject/go-gamearchive/progress"
)

var errUnexpectedArgs = errors.New("unexpected arguments")

func noExtraArgs(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: %s", errUnexpectedArgs, strings.Join(args, " "))
	}
	return nil
}

type formatsCommand struct {
	app *app
}

func (c *formatsCommand) Execute(args []string) error {
	if err := noExtraArgs(args); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.app.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tEXTENSIONS\tDESCRIPTION")
	for _, d := range gamearchive.Formats().Descriptors() {
		info := d.Info()
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Name, describe(info), info.Description)
	}
	return tw.Flush() //nolint:wrapcheck // stdout
}

type identifyCommand struct {
	app  *app
	Args struct {
		Files []string `positional-arg-name:"file" description:"files or s3:// URLs to score" required:"1"`
	} `positional-args:"yes"`
}

func (c *identifyCommand) Execute(args []string) error {
	if err := noExtraArgs(args); err != nil {
		return err
	}
	m := gamearchive.NewMatcher(c.app.gameOptions()...)
	for i, path := range c.Args.Files {
		src, err := c.app.openSource(path)
		if err != nil {
			return err
		}
		report := m.Identify(src, path)
		_ = src.Close()

		if i > 0 {
			_, _ = fmt.Fprintln(c.app.stdout)
		}
		_, _ = fmt.Fprintf(c.app.stdout, "%s\n%s", path, report)
	}
	return nil
}

type listCommand struct {
	app   *app
	Long  bool `short:"l" long:"long" description:"show archive metadata and resource properties"`
	Bytes bool `short:"b" long:"bytes" description:"print sizes in bytes"`
	Args  struct {
		File string `positional-arg-name:"file" description:"archive or s3:// URL" required:"yes"`
	} `positional-args:"yes"`
}

func (c *listCommand) Execute(args []string) error {
	if err := noExtraArgs(args); err != nil {
		return err
	}
	arc, err := c.app.open(c.Args.File)
	if err != nil {
		return err
	}
	defer func() { _ = arc.Close() }()

	w := c.app.stdout
	_, _ = fmt.Fprintf(w, "format: %s\n", arc.Format)
	if c.Long {
		for _, k := range sortedKeys(arc.Meta) {
			_, _ = fmt.Fprintf(w, "%s: %s\n", k, arc.Meta[k])
		}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SIZE\tSTORED\tCODECS\tNAME")
	var total int64
	for _, r := range arc.Resources() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.size(r.Size), c.size(r.RawSize), codecList(r), r.Name)
		if c.Long {
			for _, k := range r.PropertyKeys() {
				_, _ = fmt.Fprintf(tw, "\t\t\t  %s=%s\n", k, r.Properties[k])
			}
		}
		total += max(r.Size, 0)
	}
	if err := tw.Flush(); err != nil {
		return err //nolint:wrapcheck // stdout
	}
	_, _ = fmt.Fprintf(w, "%d resources, %s\n", arc.Len(), c.size(total))
	return nil
}

func (c *listCommand) size(n int64) string {
	switch {
	case n < 0:
		return "?"
	case c.Bytes:
		return strconv.FormatInt(n, 10)
	default:
		return humanize.IBytes(uint64(n))
	}
}

func codecList(r *archive.Resource) string {
	tags := r.Plan.Codecs()
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, "+")
}

type catCommand struct {
	app  *app
	Args struct {
		Path string `positional-arg-name:"archive[/resource]" description:"archive, or a path continuing into one" required:"yes"`
		Name string `positional-arg-name:"resource" description:"resource name when not part of the path"`
	} `positional-args:"yes"`
}

func (c *catCommand) Execute(args []string) error {
	if err := noExtraArgs(args); err != nil {
		return err
	}
	path, name := c.Args.Path, c.Args.Name
	if name == "" {
		p, err := archive.ParsePath(path, gamearchive.Formats().Extensions())
		if err != nil {
			return err //nolint:wrapcheck // already descriptive
		}
		if p == nil || p.InternalPath == "" {
			return fmt.Errorf("%w: no resource named in %q", errUnexpectedArgs, path)
		}
		path, name = p.ArchivePath, p.InternalPath
	}

	arc, err := c.app.open(path)
	if err != nil {
		return err
	}
	defer func() { _ = arc.Close() }()

	r, err := arc.Find(name)
	if err != nil {
		return err //nolint:wrapcheck // names the resource
	}
	_, err = arc.ExtractTo(r, c.app.stdout)
	return err //nolint:wrapcheck // *plan.ExtractError
}

type extractCommand struct {
	app       *app
	Output    string   `short:"o" long:"output" description:"output directory, defaults to the archive name without extension"`
	Include   []string `short:"i" long:"include" description:"only extract names matching this gitignore-style pattern"`
	Exclude   []string `short:"e" long:"exclude" description:"skip names matching this gitignore-style pattern"`
	Workers   int      `short:"j" long:"workers" description:"resources extracted at once" default:"0"`
	Overwrite bool     `long:"overwrite" description:"replace existing files"`
	RawNames  bool     `long:"raw-names" description:"keep resource names unsanitized"`
	Progress  bool     `short:"p" long:"progress" description:"show a progress bar on stderr"`
	Args      struct {
		File string `positional-arg-name:"file" description:"archive or s3:// URL" required:"yes"`
	} `positional-args:"yes"`
}

func (c *extractCommand) Execute(args []string) error {
	if err := noExtraArgs(args); err != nil {
		return err
	}
	arc, err := c.app.open(c.Args.File)
	if err != nil {
		return err
	}
	defer func() { _ = arc.Close() }()

	dir := c.Output
	if dir == "" {
		dir = defaultOutputDir(c.Args.File)
	}

	opts := extract.Options{
		Logger:    c.app.logger,
		Rules:     c.rules(),
		Workers:   c.Workers,
		Overwrite: c.Overwrite,
		RawNames:  c.RawNames,
	}
	var bar *progress.Bar
	if c.Progress {
		var total int64
		for _, r := range arc.Resources() {
			total += max(r.Size, 0)
		}
		bar = progress.NewBar(c.app.stderr, total)
		opts.Progress = bar
	}

	summary, err := extract.ToDir(c.app.ctx, arc, dir, opts)
	if bar != nil {
		_ = bar.Close()
	}
	if summary != nil {
		c.report(dir, summary)
	}
	return err //nolint:wrapcheck // *extract.IncompleteError lists every failure
}

// rules places excludes after includes so an exclude wins over an include
// matching the same name.
func (c *extractCommand) rules() []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(c.Include)+len(c.Exclude))
	for _, p := range c.Include {
		rules = append(rules, extract.Include(p))
	}
	for _, p := range c.Exclude {
		rules = append(rules, extract.Exclude(p))
	}
	return rules
}

func (c *extractCommand) report(dir string, s *extract.Summary) {
	w := c.app.stdout
	_, _ = fmt.Fprintf(w, "extracted %d files (%s) to %s\n", len(s.Files), humanize.IBytes(uint64(s.Bytes)), dir)
	if len(s.Existing) > 0 {
		_, _ = fmt.Fprintf(w, "skipped %d existing files\n", len(s.Existing))
	}
	if s.Filtered > 0 {
		_, _ = fmt.Fprintf(w, "filtered %d resources\n", s.Filtered)
	}
}

type namesCommand struct {
	app    *app
	Output string `short:"o" long:"output" description:"compiled table to write" required:"yes"`
	Hash   string `long:"hash" description:"hash function for plain name lists" default:"nfs"`
	Args   struct {
		List flags.Filename `positional-arg-name:"list" description:"name list, one name per line, or hash<TAB>name .tsv" required:"yes"`
	} `positional-args:"yes"`
}

func (c *namesCommand) Execute(args []string) error {
	if err := noExtraArgs(args); err != nil {
		return err
	}
	h, err := names.HasherByName(c.Hash)
	if err != nil {
		return err //nolint:wrapcheck // lists the known hashers
	}
	table, err := names.LoadFile(string(c.Args.List), h)
	if err != nil {
		return err //nolint:wrapcheck // already descriptive
	}
	if err := table.Save(c.Output); err != nil {
		return err //nolint:wrapcheck // already descriptive
	}
	c.app.logger.Info("wrote name table", slog.String("path", c.Output), slog.Int("names", table.Len()))
	_, _ = fmt.Fprintf(c.app.stdout, "wrote %d names to %s\n", table.Len(), c.Output)
	return nil
}

type versionCommand struct {
	app *app
}

func (c *versionCommand) Execute([]string) error {
	_, _ = fmt.Fprintf(c.app.stdout, "gamearc version %s\n", appVersion)
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
