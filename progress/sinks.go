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

package progress

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

// Bar renders extraction progress as a terminal progress bar.
type Bar struct {
	bar *progressbar.ProgressBar
}

// NewBar returns a byte-counting bar of total bytes writing to w.
func NewBar(w io.Writer, total int64, options ...progressbar.Option) *Bar {
	return &Bar{bar: progressbar.NewOptions64(total, append([]progressbar.Option{
		progressbar.OptionSetDescription("extracting"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowTotalBytes(true),
		progressbar.OptionSetWidth(10),
		progressbar.OptionThrottle(100 * time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprint(w, "\n")
		}),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	}, options...)...)}
}

// Progress implements Sink. Only extraction events move the bar.
func (b *Bar) Progress(e Event) {
	if e.Stage != StageExtracting {
		return
	}
	if e.Name != "" {
		b.bar.Describe(e.Name)
	}
	// ignore all errors from progress bar.
	_ = b.bar.Set64(e.Done)
}

// Close completes the bar.
func (b *Bar) Close() error {
	if err := b.bar.Finish(); err != nil {
		return fmt.Errorf("finish progress bar: %w", err)
	}
	return nil
}

// logSink writes throttled progress lines to a logger.
type logSink struct {
	logger    *slog.Logger
	sometimes *rate.Sometimes
}

// NewLogSink returns a sink that logs at most one line per interval,
// plus the first event.
func NewLogSink(logger *slog.Logger, interval time.Duration) Sink {
	return &logSink{logger: logger, sometimes: &rate.Sometimes{First: 1, Interval: interval}}
}

func (l *logSink) Progress(e Event) {
	l.sometimes.Do(func() {
		attrs := []any{
			slog.String("stage", e.Stage.String()),
			slog.String("done", humanize.IBytes(uint64(max(e.Done, 0)))),
		}
		if e.Total > 0 {
			attrs = append(attrs, slog.String("total", humanize.IBytes(uint64(e.Total))))
		}
		if e.TotalEntries > 0 {
			attrs = append(attrs, slog.String("entries", fmt.Sprintf("%d/%d", e.Entries, e.TotalEntries)))
		}
		if e.Name != "" {
			attrs = append(attrs, slog.String("name", e.Name))
		}
		l.logger.Info("progress", attrs...)
	})
}
