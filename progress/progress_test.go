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

package progress_test

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-gamearchive/progress"
)

type recorder struct {
	events []progress.Event
	mu     sync.Mutex
}

func (r *recorder) Progress(e progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestMonotonic(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	sink := progress.Monotonic(rec)

	sink.Progress(progress.Event{Stage: progress.StageExtracting, Done: 10})
	sink.Progress(progress.Event{Stage: progress.StageExtracting, Done: 5})
	sink.Progress(progress.Event{Stage: progress.StageExtracting, Done: 10, Entries: 1})
	sink.Progress(progress.Event{Stage: progress.StageExtracting, Done: 20, Entries: 0})
	sink.Progress(progress.Event{Stage: progress.StageParsing, Done: 1})

	require.Len(t, rec.events, 3)
	assert.Equal(t, int64(10), rec.events[0].Done)
	assert.Equal(t, 1, rec.events[1].Entries)
	assert.Equal(t, progress.StageParsing, rec.events[2].Stage, "stages track independently")
}

func TestSinkHelpers(t *testing.T) {
	t.Parallel()

	var n int
	f := progress.SinkFunc(func(progress.Event) { n++ })
	a, b := &recorder{}, &recorder{}

	progress.Multi(f, a, nil, b).Progress(progress.Event{Done: 1})
	assert.Equal(t, 1, n)
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)

	assert.Equal(t, progress.Nop, progress.OrNop(nil))
	progress.Nop.Progress(progress.Event{})

	assert.Equal(t, "scoring", progress.StageScoring.String())
	assert.Equal(t, "extracting", progress.StageExtracting.String())
	assert.Equal(t, "unknown", progress.Stage(42).String())
}

func TestLogSinkThrottles(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sink := progress.NewLogSink(logger, time.Hour)

	sink.Progress(progress.Event{Stage: progress.StageExtracting, Name: "pak0.pak", Done: 2048, Total: 4096, Entries: 1, TotalEntries: 2})
	sink.Progress(progress.Event{Stage: progress.StageExtracting, Done: 4096, Total: 4096})

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "msg=progress"))
	assert.Contains(t, out, "done=\"2.0 KiB\"")
	assert.Contains(t, out, "total=\"4.0 KiB\"")
	assert.Contains(t, out, "entries=1/2")
	assert.Contains(t, out, "name=pak0.pak")
}

func TestBar(t *testing.T) {
	t.Parallel()

	bar := progress.NewBar(io.Discard, 100)
	bar.Progress(progress.Event{Stage: progress.StageParsing, Done: 1})
	bar.Progress(progress.Event{Stage: progress.StageExtracting, Name: "a", Done: 50})
	bar.Progress(progress.Event{Stage: progress.StageExtracting, Done: 100})
	require.NoError(t, bar.Close())
}
