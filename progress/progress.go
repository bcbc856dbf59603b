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

// Package progress carries advisory progress events from the engine to
// an external sink. Events never affect correctness.
package progress

import "sync"

// Stage identifies the phase an event belongs to.
type Stage int

// Stages.
const (
	StageScoring Stage = iota
	StageParsing
	StageExtracting
)

func (s Stage) String() string {
	switch s {
	case StageScoring:
		return "scoring"
	case StageParsing:
		return "parsing"
	case StageExtracting:
		return "extracting"
	default:
		return "unknown"
	}
}

// Event reports work done so far against an expected maximum.
// Total and TotalEntries are zero when unknown.
type Event struct {
	// Name is the archive or resource being processed.
	Name string

	Stage        Stage
	Done         int64
	Total        int64
	Entries      int
	TotalEntries int
}

// Sink receives progress events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Progress(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Progress calls f.
func (f SinkFunc) Progress(e Event) { f(e) }

type nop struct{}

func (nop) Progress(Event) {}

// Nop discards events.
var Nop Sink = nop{}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop
	}
	return s
}

// monotonic forwards events whose counters do not go backwards.
type monotonic struct {
	next Sink
	last map[Stage]Event
	mu   sync.Mutex
}

// Monotonic wraps s so that, per stage, events whose Done or Entries
// regress below an earlier event are dropped.
func Monotonic(s Sink) Sink {
	return &monotonic{next: OrNop(s), last: make(map[Stage]Event)}
}

func (m *monotonic) Progress(e Event) {
	m.mu.Lock()
	prev, seen := m.last[e.Stage]
	if seen && (e.Done < prev.Done || e.Entries < prev.Entries) {
		m.mu.Unlock()
		return
	}
	m.last[e.Stage] = e
	m.mu.Unlock()

	m.next.Progress(e)
}

// Multi fans events out to every sink.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Progress(e)
			}
		}
	})
}
