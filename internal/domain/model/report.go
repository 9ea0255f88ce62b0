package model

import (
	"fmt"
	"strings"
)

// Outcome kinds carried by a Failure.
const (
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Failure explains why one fact, row or agreement was not applied.
type Failure struct {
	Ref    string
	Kind   string
	Reason string
}

// ReconciliationReport counts what a reconciliation or import did.
type ReconciliationReport struct {
	Applied  int
	Skipped  int
	Failed   int
	Failures []Failure
}

// Skip records an item that was left untouched.
func (r *ReconciliationReport) Skip(ref, reason string) {
	r.Skipped++
	r.Failures = append(r.Failures, Failure{Ref: ref, Kind: OutcomeSkipped, Reason: reason})
}

// Fail records an item that could not be processed.
func (r *ReconciliationReport) Fail(ref, reason string) {
	r.Failed++
	r.Failures = append(r.Failures, Failure{Ref: ref, Kind: OutcomeFailed, Reason: reason})
}

// Merge folds other into r.
func (r *ReconciliationReport) Merge(other ReconciliationReport) {
	r.Applied += other.Applied
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Failures = append(r.Failures, other.Failures...)
}

// Summary renders counts plus grouped reasons, e.g.
// "2 applied; 3 records skipped: missing agreement reference".
func (r ReconciliationReport) Summary() string {
	type group struct {
		kind, reason string
	}
	var (
		order  []group
		counts = map[group]int{}
	)
	for _, f := range r.Failures {
		g := group{kind: f.Kind, reason: f.Reason}
		if _, seen := counts[g]; !seen {
			order = append(order, g)
		}
		counts[g]++
	}

	parts := []string{fmt.Sprintf("%d applied", r.Applied)}
	for _, g := range order {
		noun := "records"
		if counts[g] == 1 {
			noun = "record"
		}
		parts = append(parts, fmt.Sprintf("%d %s %s: %s", counts[g], noun, g.kind, g.reason))
	}
	return strings.Join(parts, "; ")
}
