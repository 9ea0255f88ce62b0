package service

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/internal/domain/valueobject"
)

// Skip reasons reported for facts left pending.
const (
	ReasonAgreementClosed = "agreement closed"
	ReasonFutureDated     = "payment dated after reconciliation date"
)

// ---------------------------------------------------------------------------
// Reconciler – deterministic replay of facts over a schedule
// ---------------------------------------------------------------------------

// ReplayInput is everything a replay reads.
type ReplayInput struct {
	Agreement model.Agreement
	Entries   []model.ScheduleEntry
	Facts     []model.PaymentFact
	// Balance is the stored balance, if any.
	Balance *model.RemainingBalance
	AsOf    time.Time
	Now     time.Time
}

// ReplayOutcome is the reconciled state. Changed* slices hold only what
// differs from the input so that a no-op replay writes nothing.
type ReplayOutcome struct {
	Entries        []model.ScheduleEntry
	ChangedEntries []model.ScheduleEntry
	ChangedFacts   []model.PaymentFact
	Balance        model.RemainingBalance
	BalanceChanged bool
	Report         model.ReconciliationReport
}

// Changed reports whether the outcome needs persisting.
func (o ReplayOutcome) Changed() bool {
	return len(o.ChangedEntries) > 0 || len(o.ChangedFacts) > 0 || o.BalanceChanged
}

// Reconciler rebuilds an agreement's schedule state from its facts.
type Reconciler struct {
	matcher *PaymentMatcher
}

// NewReconciler returns a reconciler using matcher.
func NewReconciler(matcher *PaymentMatcher) *Reconciler {
	return &Reconciler{matcher: matcher}
}

// Replay resets every entry and reapplies all facts: completed facts first
// in the order they were reconciled, then pending facts by payment date.
// Replaying the completed prefix in a fixed order reproduces their earlier
// allocations, so a replay with no new facts and the same asOf yields the
// input state. Completed facts are never rewritten, even when a refund
// shifts where their money lands. Pending facts dated after asOf, or referencing an unknown
// entry, are skipped with a reason and stay pending. Refunded facts are
// ignored. Time-driven accrual as of asOf runs last.
func (r *Reconciler) Replay(in ReplayInput) ReplayOutcome {
	asOf := model.Date(in.AsOf)
	original := sortedEntries(in.Entries)
	var out ReplayOutcome

	if in.Agreement.Status().IsTerminal() {
		for _, f := range in.Facts {
			if !f.IsPending() {
				continue
			}
			out.Report.Skip(f.ID(), ReasonAgreementClosed)
			if next := f.Skip(ReasonAgreementClosed); !next.SameState(f) {
				out.ChangedFacts = append(out.ChangedFacts, next)
			}
		}
		out.Entries = original
		out.Balance, out.BalanceChanged = r.settleBalance(in, original, storedOverpayment(in.Balance))
		return out
	}

	working := make([]model.ScheduleEntry, len(original))
	for i, e := range original {
		working[i] = e.Reset()
	}
	view := ScheduleView{Agreement: in.Agreement, Entries: working, Overpayment: decimal.Zero, At: in.Now}

	completed, pending := partitionFacts(in.Facts)

	for _, f := range completed {
		res, err := r.matcher.Apply(f, view)
		if err != nil {
			out.Report.Fail(f.ID(), err.Error())
			continue
		}
		view = advance(view, res)
	}

	for _, f := range pending {
		if f.PaymentDate().After(asOf) {
			out.Report.Skip(f.ID(), ReasonFutureDated)
			out.ChangedFacts = appendIfChanged(out.ChangedFacts, f, f.Skip(ReasonFutureDated))
			continue
		}
		res, err := r.matcher.Apply(f, view)
		if err != nil {
			reason := err.Error()
			var unknownEntry *model.UnknownScheduleEntryError
			if errors.As(err, &unknownEntry) {
				out.Report.Skip(f.ID(), reason)
			} else {
				out.Report.Fail(f.ID(), reason)
			}
			out.ChangedFacts = appendIfChanged(out.ChangedFacts, f, f.Skip(reason))
			continue
		}
		view = advance(view, res)
		next, err := f.Complete(res.Allocation, in.Now)
		if err != nil {
			out.Report.Fail(f.ID(), err.Error())
			continue
		}
		out.ChangedFacts = append(out.ChangedFacts, next)
		out.Report.Applied++
	}

	rate, grace := in.Agreement.DailyLateFeeRate(), in.Agreement.GracePeriodDays()
	for i, e := range view.Entries {
		acc, err := model.AccrueLateFee(e.DueDate(), asOf, rate, grace)
		if err != nil {
			out.Report.Fail(e.ID(), err.Error())
			continue
		}
		view.Entries[i] = e.MarkOverdue(asOf, acc)
	}

	out.Entries = make([]model.ScheduleEntry, len(view.Entries))
	for i, e := range view.Entries {
		if e.SameState(original[i]) {
			out.Entries[i] = original[i]
			continue
		}
		touched := e.Touch(in.Now)
		out.Entries[i] = touched
		out.ChangedEntries = append(out.ChangedEntries, touched)
	}

	out.Balance, out.BalanceChanged = r.settleBalance(in, out.Entries, view.Overpayment)
	return out
}

// settleBalance recomputes the balance and keeps the stored one when
// nothing moved.
func (r *Reconciler) settleBalance(in ReplayInput, entries []model.ScheduleEntry, overpayment decimal.Decimal) (model.RemainingBalance, bool) {
	computed := model.ComputeBalance(in.Agreement.ID(), in.Agreement.TotalAmount(), entries, overpayment, in.Now)
	if in.Balance == nil {
		return computed.WithVersion(1), true
	}
	if in.Balance.SameState(computed) {
		return *in.Balance, false
	}
	return computed.WithVersion(in.Balance.Version()), true
}

func advance(view ScheduleView, res MatchResult) ScheduleView {
	view.Entries = res.UpdatedEntries
	view.Overpayment = res.UpdatedBalance.Overpayment()
	return view
}

func appendIfChanged(changed []model.PaymentFact, before, after model.PaymentFact) []model.PaymentFact {
	if after.SameState(before) {
		return changed
	}
	return append(changed, after)
}

func storedOverpayment(b *model.RemainingBalance) decimal.Decimal {
	if b == nil {
		return decimal.Zero
	}
	return b.Overpayment()
}

func sortedEntries(entries []model.ScheduleEntry) []model.ScheduleEntry {
	out := make([]model.ScheduleEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}

// partitionFacts splits facts into completed (reconciliation order) and
// pending (payment-date order). Refunded facts are dropped.
func partitionFacts(facts []model.PaymentFact) (completed, pending []model.PaymentFact) {
	for _, f := range facts {
		switch {
		case f.IsPending():
			pending = append(pending, f)
		case f.Status().Equal(valueobject.FactStatusCompleted):
			completed = append(completed, f)
		}
	}
	sort.SliceStable(completed, func(i, j int) bool {
		a, b := completed[i], completed[j]
		if !a.ReconciledAt().Equal(b.ReconciledAt()) {
			return a.ReconciledAt().Before(b.ReconciledAt())
		}
		return paymentOrder(a, b)
	})
	sort.SliceStable(pending, func(i, j int) bool { return paymentOrder(pending[i], pending[j]) })
	return completed, pending
}

func paymentOrder(a, b model.PaymentFact) bool {
	if !a.PaymentDate().Equal(b.PaymentDate()) {
		return a.PaymentDate().Before(b.PaymentDate())
	}
	if !a.RecordedAt().Equal(b.RecordedAt()) {
		return a.RecordedAt().Before(b.RecordedAt())
	}
	return a.ID() < b.ID()
}
