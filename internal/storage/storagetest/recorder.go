// Package storagetest provides an in-memory storage.Adapter for service and
// shell tests, with switchable failures.
package storagetest

import (
	"context"
	"errors"

	"github.com/tinoosan/teller/internal/errs"
	"github.com/tinoosan/teller/internal/ledger"
	"github.com/tinoosan/teller/internal/storage"
)

var _ storage.Adapter = (*Recorder)(nil)

// ErrInjected is returned by a Recorder when a failure switch is on.
var ErrInjected = errors.New("injected failure")

// Recorder keeps the last saved snapshot and every appended log entry.
type Recorder struct {
	Saved     []ledger.Account
	Saves     int
	Entries   []ledger.LogEntry
	FailSave  bool
	FailLog   bool
	HasLoaded bool
}

func (r *Recorder) Load(_ context.Context) ([]ledger.Account, error) {
	if !r.HasLoaded {
		return []ledger.Account{}, errs.ErrNotFound
	}
	out := make([]ledger.Account, len(r.Saved))
	for i, a := range r.Saved {
		a.Locked = false
		out[i] = a
	}
	return out, nil
}

func (r *Recorder) SaveAll(_ context.Context, accounts []ledger.Account) error {
	if r.FailSave {
		return ErrInjected
	}
	r.Saved = make([]ledger.Account, len(accounts))
	copy(r.Saved, accounts)
	r.Saves++
	r.HasLoaded = true
	return nil
}

func (r *Recorder) AppendLog(_ context.Context, e ledger.LogEntry) error {
	if r.FailLog {
		return ErrInjected
	}
	r.Entries = append(r.Entries, e)
	return nil
}

func (r *Recorder) ReadLog(_ context.Context) ([]ledger.LogEntry, error) {
	if len(r.Entries) == 0 {
		return nil, errs.ErrNotFound
	}
	out := make([]ledger.LogEntry, len(r.Entries))
	copy(out, r.Entries)
	return out, nil
}
