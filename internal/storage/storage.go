// Package storage defines the persistence contract for accounts and the
// transaction log. Backends live in subpackages.
package storage

import (
	"context"

	"github.com/tinoosan/teller/internal/ledger"
)

// Adapter persists the full account list and the append-only transaction log.
//
// Load never restores lock state. A missing backing store yields an empty
// list together with errs.ErrNotFound. A partially readable store yields the
// accounts read so far together with the error.
type Adapter interface {
	Load(ctx context.Context) ([]ledger.Account, error)
	// SaveAll replaces everything previously stored with accounts.
	SaveAll(ctx context.Context, accounts []ledger.Account) error
	AppendLog(ctx context.Context, e ledger.LogEntry) error
	// ReadLog is used for display only.
	ReadLog(ctx context.Context) ([]ledger.LogEntry, error)
}
