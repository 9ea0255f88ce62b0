package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bibbank/leasing/internal/domain/model"
)

// ---------------------------------------------------------------------------
// Agreements
// ---------------------------------------------------------------------------

type agreementRepo struct{ t *tx }

// Save inserts a new agreement or bumps the version of an existing one when
// the caller's version matches.
func (r agreementRepo) Save(_ context.Context, a model.Agreement) error {
	a = a.ClearEvents()
	if cur, ok := lookup(r.t, r.t.s.agreements, r.t.agreements, a.ID()); ok {
		if cur.Version() != a.Version() {
			return &model.ReconciliationConflictError{AgreementID: a.ID(), Err: ErrVersionMismatch}
		}
		a = a.WithVersion(cur.Version() + 1)
	}
	stage(r.t.agreements, a.ID(), a)
	return r.t.flush()
}

func (r agreementRepo) FindByID(_ context.Context, id string) (model.Agreement, error) {
	a, ok := lookup(r.t, r.t.s.agreements, r.t.agreements, id)
	if !ok {
		return model.Agreement{}, notFound("agreement", id)
	}
	return a, nil
}

func (r agreementRepo) ListOpenIDs(_ context.Context) ([]string, error) {
	open := scan(r.t, r.t.s.agreements, r.t.agreements, func(a model.Agreement) bool {
		return !a.Status().IsTerminal()
	})
	ids := make([]string, 0, len(open))
	for _, a := range open {
		ids = append(ids, a.ID())
	}
	sort.Strings(ids)
	return ids, nil
}

func (r agreementRepo) Delete(_ context.Context, id string) error {
	if _, ok := lookup(r.t, r.t.s.agreements, r.t.agreements, id); !ok {
		return notFound("agreement", id)
	}
	r.t.agreements[id] = nil
	return r.t.flush()
}

// ---------------------------------------------------------------------------
// Schedule
// ---------------------------------------------------------------------------

type scheduleRepo struct{ t *tx }

func (r scheduleRepo) byAgreement(agreementID string) []model.ScheduleEntry {
	return scan(r.t, r.t.s.entries, r.t.entries, func(e model.ScheduleEntry) bool {
		return e.AgreementID() == agreementID
	})
}

func (r scheduleRepo) Exists(_ context.Context, agreementID string) (bool, error) {
	return len(r.byAgreement(agreementID)) > 0, nil
}

func (r scheduleRepo) InsertBatch(_ context.Context, entries []model.ScheduleEntry) error {
	for _, e := range entries {
		if _, ok := lookup(r.t, r.t.s.entries, r.t.entries, e.ID()); ok {
			return fmt.Errorf("schedule entry %q: %w", e.ID(), ErrDuplicateKey)
		}
	}
	for _, e := range entries {
		stage(r.t.entries, e.ID(), e)
	}
	return r.t.flush()
}

func (r scheduleRepo) Update(_ context.Context, entries ...model.ScheduleEntry) error {
	for _, e := range entries {
		if _, ok := lookup(r.t, r.t.s.entries, r.t.entries, e.ID()); !ok {
			return notFound("schedule entry", e.ID())
		}
	}
	for _, e := range entries {
		stage(r.t.entries, e.ID(), e)
	}
	return r.t.flush()
}

func (r scheduleRepo) FindByAgreement(_ context.Context, agreementID string) ([]model.ScheduleEntry, error) {
	entries := r.byAgreement(agreementID)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Index() < entries[j].Index() })
	return entries, nil
}

func (r scheduleRepo) FindByID(_ context.Context, id string) (model.ScheduleEntry, error) {
	e, ok := lookup(r.t, r.t.s.entries, r.t.entries, id)
	if !ok {
		return model.ScheduleEntry{}, notFound("schedule entry", id)
	}
	return e, nil
}

// ListOverdue returns outstanding entries due strictly before asOf, oldest
// first.
func (r scheduleRepo) ListOverdue(_ context.Context, asOf time.Time, limit int) ([]model.ScheduleEntry, error) {
	entries := scan(r.t, r.t.s.entries, r.t.entries, func(e model.ScheduleEntry) bool {
		return e.IsOutstanding() && e.DueDate().Before(asOf)
	})
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.DueDate().Equal(b.DueDate()) {
			return a.DueDate().Before(b.DueDate())
		}
		if a.AgreementID() != b.AgreementID() {
			return a.AgreementID() < b.AgreementID()
		}
		return a.Index() < b.Index()
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r scheduleRepo) DeleteByAgreement(_ context.Context, agreementID string) (int64, error) {
	entries := r.byAgreement(agreementID)
	for _, e := range entries {
		r.t.entries[e.ID()] = nil
	}
	return int64(len(entries)), r.t.flush()
}

// ---------------------------------------------------------------------------
// Payment facts
// ---------------------------------------------------------------------------

type paymentRepo struct{ t *tx }

func (r paymentRepo) byAgreement(agreementID string) []model.PaymentFact {
	return scan(r.t, r.t.s.facts, r.t.facts, func(f model.PaymentFact) bool {
		return f.AgreementID() == agreementID
	})
}

func (r paymentRepo) Insert(_ context.Context, f model.PaymentFact) error {
	if _, ok := lookup(r.t, r.t.s.facts, r.t.facts, f.ID()); ok {
		return fmt.Errorf("payment fact %q: %w", f.ID(), ErrDuplicateKey)
	}
	if ref := f.ExternalRef(); ref != "" {
		for _, other := range r.byAgreement(f.AgreementID()) {
			if other.ExternalRef() == ref {
				return fmt.Errorf("payment reference %q: %w", ref, ErrDuplicateKey)
			}
		}
	}
	stage(r.t.facts, f.ID(), f.ClearEvents())
	return r.t.flush()
}

func (r paymentRepo) Update(_ context.Context, facts ...model.PaymentFact) error {
	for _, f := range facts {
		if _, ok := lookup(r.t, r.t.s.facts, r.t.facts, f.ID()); !ok {
			return notFound("payment fact", f.ID())
		}
	}
	for _, f := range facts {
		stage(r.t.facts, f.ID(), f.ClearEvents())
	}
	return r.t.flush()
}

func (r paymentRepo) FindByID(_ context.Context, id string) (model.PaymentFact, error) {
	f, ok := lookup(r.t, r.t.s.facts, r.t.facts, id)
	if !ok {
		return model.PaymentFact{}, notFound("payment fact", id)
	}
	return f, nil
}

func (r paymentRepo) FindByExternalRef(_ context.Context, agreementID, ref string) (model.PaymentFact, error) {
	for _, f := range r.byAgreement(agreementID) {
		if f.ExternalRef() == ref {
			return f, nil
		}
	}
	return model.PaymentFact{}, notFound("payment reference", ref)
}

func (r paymentRepo) FindByAgreement(_ context.Context, agreementID string) ([]model.PaymentFact, error) {
	facts := r.byAgreement(agreementID)
	sort.Slice(facts, func(i, j int) bool {
		a, b := facts[i], facts[j]
		if !a.PaymentDate().Equal(b.PaymentDate()) {
			return a.PaymentDate().Before(b.PaymentDate())
		}
		if !a.RecordedAt().Equal(b.RecordedAt()) {
			return a.RecordedAt().Before(b.RecordedAt())
		}
		return a.ID() < b.ID()
	})
	return facts, nil
}

func (r paymentRepo) ListAgreementsWithPending(_ context.Context) ([]string, error) {
	pending := scan(r.t, r.t.s.facts, r.t.facts, func(f model.PaymentFact) bool { return f.IsPending() })
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, f := range pending {
		if _, ok := seen[f.AgreementID()]; ok {
			continue
		}
		seen[f.AgreementID()] = struct{}{}
		ids = append(ids, f.AgreementID())
	}
	sort.Strings(ids)
	return ids, nil
}

func (r paymentRepo) DeleteByAgreement(_ context.Context, agreementID string) (int64, error) {
	facts := r.byAgreement(agreementID)
	for _, f := range facts {
		r.t.facts[f.ID()] = nil
	}
	return int64(len(facts)), r.t.flush()
}

// ---------------------------------------------------------------------------
// Balances
// ---------------------------------------------------------------------------

type balanceRepo struct{ t *tx }

func (r balanceRepo) Save(_ context.Context, b model.RemainingBalance) error {
	if cur, ok := lookup(r.t, r.t.s.balances, r.t.balances, b.AgreementID()); ok {
		if cur.Version() != b.Version() {
			return &model.ReconciliationConflictError{AgreementID: b.AgreementID(), Err: ErrVersionMismatch}
		}
		b = b.WithVersion(cur.Version() + 1)
	}
	stage(r.t.balances, b.AgreementID(), b)
	return r.t.flush()
}

func (r balanceRepo) FindByAgreement(_ context.Context, agreementID string) (model.RemainingBalance, error) {
	b, ok := lookup(r.t, r.t.s.balances, r.t.balances, agreementID)
	if !ok {
		return model.RemainingBalance{}, notFound("balance", agreementID)
	}
	return b, nil
}

func (r balanceRepo) DeleteByAgreement(_ context.Context, agreementID string) error {
	r.t.balances[agreementID] = nil
	return r.t.flush()
}
