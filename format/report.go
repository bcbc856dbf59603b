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
	"fmt"
	"strings"
	"text/tabwriter"
)

// Outcome is the result of one candidate attempt.
type Outcome int

// Outcomes.
const (
	// OutcomeSkipped means the score was below the matcher threshold.
	OutcomeSkipped Outcome = iota

	// OutcomeMatch means the descriptor parsed the input.
	OutcomeMatch

	// OutcomeNotThisFormat means the descriptor rejected the input during parsing.
	OutcomeNotThisFormat

	// OutcomeFailed means parsing failed with an unexpected error.
	OutcomeFailed

	// OutcomeUntried means an earlier candidate already matched.
	OutcomeUntried
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeMatch:
		return "match"
	case OutcomeNotThisFormat:
		return "not this format"
	case OutcomeFailed:
		return "failed"
	case OutcomeUntried:
		return "untried"
	default:
		return "unknown"
	}
}

// Attempt records one descriptor's score and parse outcome.
type Attempt struct {
	Err     error
	Format  string
	Score   int
	Outcome Outcome
}

// Report lists every candidate in rank order.
type Report struct {
	Path     string
	Winner   string
	Attempts []Attempt
}

// String renders the report as an aligned table.
func (r *Report) String() string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "FORMAT\tSCORE\tOUTCOME\tDETAIL")
	for _, a := range r.Attempts {
		detail := ""
		if a.Err != nil {
			detail = a.Err.Error()
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", a.Format, a.Score, a.Outcome, detail)
	}
	_ = tw.Flush()
	return b.String()
}
