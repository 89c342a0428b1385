package constraints

import (
	"fmt"
	"strings"

	"github.com/syssam/rowmap"
)

// Outcome is what happened to one candidate during CreateConstraints.
type Outcome int

// Candidate outcomes.
const (
	// Created means the foreign key was added.
	Created Outcome = iota
	// SkippedExisting means a matching foreign key already existed.
	SkippedExisting
	// SkippedReserved means the candidate is the reserved self reference "parent".
	SkippedReserved
	// Failed means the ALTER TABLE statement was rejected; Result.Err holds why.
	Failed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case SkippedExisting:
		return "skipped (exists)"
	case SkippedReserved:
		return "skipped (reserved)"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the outcome for one candidate.
type Result struct {
	Candidate       string
	Column          string
	ReferencedTable string
	Outcome         Outcome
	Err             error
}

// String formats the result as "column -> table: outcome".
func (r Result) String() string {
	s := fmt.Sprintf("%s -> %s: %s", r.Column, r.ReferencedTable, r.Outcome)
	if r.Err != nil {
		s += " (" + r.Err.Error() + ")"
	}
	return s
}

// Report collects the results of CreateConstraints in candidate order.
type Report struct {
	Table   string
	Results []Result
}

// Count returns the number of results with the given outcome.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Created returns the number of foreign keys added.
func (r *Report) Created() int {
	return r.Count(Created)
}

// Skipped returns the number of candidates that were left alone.
func (r *Report) Skipped() int {
	return r.Count(SkippedExisting) + r.Count(SkippedReserved)
}

// Failed returns the results whose statement failed.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == Failed {
			out = append(out, res)
		}
	}
	return out
}

// Err joins the errors of failed candidates. It returns nil when every
// candidate succeeded or was skipped.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", res.Column, res.Err))
	}
	return rowmap.NewAggregateError(errs...)
}

// String returns one line per result.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d created, %d skipped, %d failed", r.Table, r.Created(), r.Skipped(), len(r.Failed()))
	for _, res := range r.Results {
		b.WriteString("\n  ")
		b.WriteString(res.String())
	}
	return b.String()
}
