// Package ledger records the outcome of every outlet in a run.
//
// A [Ledger] is created with the validated batch and accepts exactly one
// entry per outlet, either a basin or a failure. It is safe for concurrent
// use by the region workers of a run. [Ledger.Summary] produces the
// per-outlet table written to OUTPUT.csv, in input order.
//
// [SQLiteStore] persists finished runs to a SQLite database.
package ledger

import (
	"sync"

	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/hydro"
)

// Ledger collects basins and failures for a batch.
type Ledger struct {
	mu       sync.Mutex
	outlets  []hydro.Outlet
	index    map[string]int
	basins   map[string]hydro.Basin
	failures map[string]string
}

// New returns an empty ledger for outlets. Outlet ids must be unique; the
// batch is expected to have passed hydro.ValidateBatch.
func New(outlets []hydro.Outlet) *Ledger {
	l := &Ledger{
		outlets:  outlets,
		index:    make(map[string]int, len(outlets)),
		basins:   make(map[string]hydro.Basin),
		failures: make(map[string]string),
	}
	for i, o := range outlets {
		l.index[o.ID] = i
	}
	return l
}

// AddBasin records a successful outlet.
func (l *Ledger) AddBasin(b hydro.Basin) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check(b.OutletID); err != nil {
		return err
	}
	l.basins[b.OutletID] = b
	return nil
}

// AddFailure records a failed outlet.
func (l *Ledger) AddFailure(f hydro.FailureRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check(f.OutletID); err != nil {
		return err
	}
	l.failures[f.OutletID] = f.Reason
	return nil
}

func (l *Ledger) check(id string) error {
	if _, ok := l.index[id]; !ok {
		return errors.New(errors.ErrCodeInvalidInput, "outlet %q is not part of the batch", id)
	}
	if _, ok := l.basins[id]; ok {
		return errors.New(errors.ErrCodeInvalidInput, "outlet %q already has a basin", id)
	}
	if _, ok := l.failures[id]; ok {
		return errors.New(errors.ErrCodeInvalidInput, "outlet %q already failed", id)
	}
	return nil
}

// Basins returns the recorded basins in input order.
func (l *Ledger) Basins() []hydro.Basin {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]hydro.Basin, 0, len(l.basins))
	for _, o := range l.outlets {
		if b, ok := l.basins[o.ID]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Failures returns the recorded failures in input order.
func (l *Ledger) Failures() []hydro.FailureRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]hydro.FailureRecord, 0, len(l.failures))
	for _, o := range l.outlets {
		if reason, ok := l.failures[o.ID]; ok {
			out = append(out, hydro.FailureRecord{OutletID: o.ID, Reason: reason})
		}
	}
	return out
}

// Pending returns the ids of outlets without an entry, in input order.
func (l *Ledger) Pending() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, o := range l.outlets {
		if !l.recorded(o.ID) {
			out = append(out, o.ID)
		}
	}
	return out
}

// Counts returns the number of basins and failures recorded so far.
func (l *Ledger) Counts() (basins, failures int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.basins), len(l.failures)
}

// Complete reports whether every outlet has an entry.
func (l *Ledger) Complete() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.basins)+len(l.failures) == len(l.outlets)
}

// Outlets returns the batch the ledger was created for.
func (l *Ledger) Outlets() []hydro.Outlet {
	return l.outlets
}

func (l *Ledger) recorded(id string) bool {
	if _, ok := l.basins[id]; ok {
		return true
	}
	_, ok := l.failures[id]
	return ok
}
