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

// Command gamearc lists and extracts resources from game archives and disc
// images.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/jessevdk/go-flags"
)

const appVersion = "0.1.0"

type options struct {
	Verbose    bool   `short:"v" long:"verbose" description:"log debug records to stderr"`
	NameDir    string `long:"names-dir" env:"GAMEARC_NAMES" description:"directory holding hash to name tables"`
	Format     string `short:"f" long:"format" description:"parse with the named format instead of detecting it"`
	MaxEntries int64  `long:"max-entries" description:"reject archives declaring more entries than this"`
	MaxLength  int64  `long:"max-length" description:"reject resources longer than this many bytes"`

	Formats  formatsCommand  `command:"formats" description:"list supported formats"`
	Identify identifyCommand `command:"identify" description:"score a file against every format"`
	List     listCommand     `command:"list" alias:"ls" description:"list the resources of an archive"`
	Cat      catCommand      `command:"cat" description:"write one resource to stdout"`
	Extract  extractCommand  `command:"extract" alias:"x" description:"extract resources to a directory"`
	Names    namesCommand    `command:"names" description:"build a hash to name table from a name list"`
	Version  versionCommand  `command:"version" description:"print version and exit"`
}

// app carries the state shared by every command.
type app struct {
	ctx    context.Context //nolint:containedctx // one per process
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
	opts   options
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args and executes the selected command, returning the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{ctx: ctx, stdout: stdout, stderr: stderr}
	a.opts.Formats.app = a
	a.opts.Identify.app = a
	a.opts.List.app = a
	a.opts.Cat.app = a
	a.opts.Extract.app = a
	a.opts.Names.app = a
	a.opts.Version.app = a

	p := flags.NewParser(&a.opts, flags.HelpFlag|flags.PassDoubleDash)
	p.CommandHandler = func(command flags.Commander, args []string) error {
		a.logger = newLogger(stderr, a.opts.Verbose)
		return command.Execute(args)
	}

	if _, err := p.ParseArgs(args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			_, _ = io.WriteString(stdout, ferr.Message+"\n")
			return 0
		}
		_, _ = io.WriteString(stderr, "Error: "+err.Error()+"\n")
		return 1
	}
	return 0
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
