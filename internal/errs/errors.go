package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrInvalid  = errors.New("invalid")
	// ErrInvalidAmount is returned for amounts that are not strictly positive.
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrLocked            = errors.New("account_locked")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrDuplicateName     = errors.New("duplicate_name")
	// ErrStorage marks a failed rewrite of the accounts store. The in-memory
	// state keeps the mutation; callers report and carry on.
	ErrStorage = errors.New("storage_write_failed")
	// ErrJournal marks a failed append to the transaction log. Fatal to the session.
	ErrJournal = errors.New("journal_append_failed")
)
