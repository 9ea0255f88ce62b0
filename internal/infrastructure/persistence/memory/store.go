// Package memory is an in-process implementation of the persistence ports.
// Every unit of work stages its writes and applies them atomically on commit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/internal/domain/port"
)

// DefaultLockTimeout bounds how long a unit of work waits for an agreement.
const DefaultLockTimeout = 5 * time.Second

var (
	// ErrVersionMismatch is the optimistic-locking failure.
	ErrVersionMismatch = errors.New("version mismatch")
	// ErrDuplicateKey reports an insert over an existing key.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrLockTimeout reports an agreement lock that was not granted in time.
	ErrLockTimeout = errors.New("agreement lock timeout")
)

// Store holds committed state.
type Store struct {
	mu         sync.RWMutex
	agreements map[string]model.Agreement
	entries    map[string]model.ScheduleEntry
	facts      map[string]model.PaymentFact
	balances   map[string]model.RemainingBalance

	locks       *lockTable
	lockTimeout time.Duration
}

// NewStore returns an empty store. A non-positive lockTimeout uses
// DefaultLockTimeout.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Store{
		agreements:  make(map[string]model.Agreement),
		entries:     make(map[string]model.ScheduleEntry),
		facts:       make(map[string]model.PaymentFact),
		balances:    make(map[string]model.RemainingBalance),
		locks:       newLockTable(),
		lockTimeout: lockTimeout,
	}
}

var _ port.TransactionManager = (*Store)(nil)

// WithinAgreement implements port.TransactionManager.
func (s *Store) WithinAgreement(
	ctx context.Context,
	agreementID string,
	fn func(ctx context.Context, repos port.Repositories) error,
) error {
	release, err := s.locks.acquire(ctx, agreementID, s.lockTimeout)
	if err != nil {
		return &model.ReconciliationConflictError{AgreementID: agreementID, Err: err}
	}
	defer release()

	t := newTx(s, false)
	if err := fn(ctx, t.repositories()); err != nil {
		return err
	}
	return t.commit()
}

// Reader implements port.TransactionManager. Writes through the returned
// repositories apply immediately and take no agreement lock.
func (s *Store) Reader() port.Repositories {
	return newTx(s, true).repositories()
}

// ---------------------------------------------------------------------------
// Per-agreement locks
// ---------------------------------------------------------------------------

type lockEntry struct {
	ch   chan struct{}
	refs int
}

type lockTable struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*lockEntry)}
}

func (lt *lockTable) acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	lt.mu.Lock()
	e, ok := lt.locks[key]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		lt.locks[key] = e
	}
	e.refs++
	lt.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
		return func() {
			<-e.ch
			lt.unref(key, e)
		}, nil
	case <-ctx.Done():
		lt.unref(key, e)
		return nil, ctx.Err()
	case <-timer.C:
		lt.unref(key, e)
		return nil, ErrLockTimeout
	}
}

func (lt *lockTable) unref(key string, e *lockEntry) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(lt.locks, key)
	}
}

// ---------------------------------------------------------------------------
// Staged unit of work
// ---------------------------------------------------------------------------

// tx overlays staged rows on committed state. A nil pointer marks a delete.
type tx struct {
	s          *Store
	autocommit bool
	agreements map[string]*model.Agreement
	entries    map[string]*model.ScheduleEntry
	facts      map[string]*model.PaymentFact
	balances   map[string]*model.RemainingBalance
}

func newTx(s *Store, autocommit bool) *tx {
	return &tx{
		s:          s,
		autocommit: autocommit,
		agreements: make(map[string]*model.Agreement),
		entries:    make(map[string]*model.ScheduleEntry),
		facts:      make(map[string]*model.PaymentFact),
		balances:   make(map[string]*model.RemainingBalance),
	}
}

func (t *tx) repositories() port.Repositories {
	return port.Repositories{
		Agreements: agreementRepo{t},
		Schedule:   scheduleRepo{t},
		Payments:   paymentRepo{t},
		Balances:   balanceRepo{t},
	}
}

// flush applies staged writes when autocommitting.
func (t *tx) flush() error {
	if !t.autocommit {
		return nil
	}
	return t.commit()
}

func (t *tx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	applyStaged(t.s.agreements, t.agreements)
	applyStaged(t.s.entries, t.entries)
	applyStaged(t.s.facts, t.facts)
	applyStaged(t.s.balances, t.balances)
	clear(t.agreements)
	clear(t.entries)
	clear(t.facts)
	clear(t.balances)
	return nil
}

func applyStaged[V any](dst map[string]V, staged map[string]*V) {
	for k, v := range staged {
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = *v
	}
}

// lookup reads a row, staged first.
func lookup[V any](t *tx, committed map[string]V, staged map[string]*V, key string) (V, bool) {
	if v, ok := staged[key]; ok {
		if v == nil {
			var zero V
			return zero, false
		}
		return *v, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	v, ok := committed[key]
	return v, ok
}

// scan returns every visible row matching keep.
func scan[V any](t *tx, committed map[string]V, staged map[string]*V, keep func(V) bool) []V {
	var out []V
	t.s.mu.RLock()
	for k, v := range committed {
		if _, overridden := staged[k]; overridden {
			continue
		}
		if keep(v) {
			out = append(out, v)
		}
	}
	t.s.mu.RUnlock()
	for _, v := range staged {
		if v != nil && keep(*v) {
			out = append(out, *v)
		}
	}
	return out
}

func stage[V any](staged map[string]*V, key string, v V) {
	staged[key] = &v
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, model.ErrNotFound)
}
