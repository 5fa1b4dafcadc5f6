// Package memory holds the in-memory account collection the ledger operates on.
// Storage adapters load it at startup and receive a full copy after every mutation.
package memory

import (
	"sync"

	"github.com/govalues/decimal"

	"github.com/tinoosan/teller/internal/errs"
	"github.com/tinoosan/teller/internal/ledger"
)

// Store is an ordered collection of accounts. Lookups are linear and return
// the first exact name match, so insertion order is significant.
type Store struct {
	mu       sync.RWMutex
	accounts []ledger.Account
}

// New constructs a store seeded with accounts (typically the result of a load).
func New(accounts []ledger.Account) *Store {
	s := &Store{accounts: make([]ledger.Account, 0, len(accounts))}
	s.accounts = append(s.accounts, accounts...)
	return s
}

// Find returns the first account named name.
func (s *Store) Find(name string) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(name)
	if i < 0 {
		return ledger.Account{}, errs.ErrNotFound
	}
	return s.accounts[i], nil
}

// Append adds an account at the end of the collection.
func (s *Store) Append(a ledger.Account) {
	s.mu.Lock()
	s.accounts = append(s.accounts, a)
	s.mu.Unlock()
}

// Replace overwrites the first account named a.Name.
func (s *Store) Replace(a ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(a.Name)
	if i < 0 {
		return errs.ErrNotFound
	}
	s.accounts[i] = a
	return nil
}

// ReplaceAt overwrites the account at position i, as returned by All.
func (s *Store) ReplaceAt(i int, a ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.accounts) {
		return errs.ErrNotFound
	}
	s.accounts[i] = a
	return nil
}

// Remove deletes the first account named name and returns it.
func (s *Store) Remove(name string) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(name)
	if i < 0 {
		return ledger.Account{}, errs.ErrNotFound
	}
	a := s.accounts[i]
	s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
	return a, nil
}

// All returns a copy of the collection in order.
func (s *Store) All() []ledger.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Account, len(s.accounts))
	copy(out, s.accounts)
	return out
}

// Len reports the number of accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// Total sums all balances.
func (s *Store) Total() (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, a := range s.accounts {
		sum, err := total.Add(a.Balance)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = sum
	}
	return total, nil
}

// indexLocked returns the position of the first account named name, or -1.
// Caller must hold s.mu.
func (s *Store) indexLocked(name string) int {
	for i, a := range s.accounts {
		if a.Name == name {
			return i
		}
	}
	return -1
}
