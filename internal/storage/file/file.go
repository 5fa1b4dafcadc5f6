// Package file stores accounts and the transaction log as plain text files.
//
// Accounts: one "name,balance" line per account, rewritten in full on save.
// Log: one "timestamp,action,name,amount,balance" line per event, append-only.
package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/govalues/decimal"

	"github.com/tinoosan/teller/internal/errs"
	"github.com/tinoosan/teller/internal/ledger"
	"github.com/tinoosan/teller/internal/storage"
)

var _ storage.Adapter = (*Store)(nil)

// Store is the flat-file backend.
type Store struct {
	accountsPath string
	logPath      string
	log          *slog.Logger
}

// New returns a file store for the given paths. Files are created lazily.
func New(accountsPath, logPath string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{accountsPath: accountsPath, logPath: logPath, log: logger}
}

// Load reads every account line. Reading stops at the first malformed line.
func (s *Store) Load(_ context.Context) ([]ledger.Account, error) {
	f, err := os.Open(s.accountsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return []ledger.Account{}, errs.ErrNotFound
	}
	if err != nil {
		return []ledger.Account{}, err
	}
	defer f.Close()

	out := make([]ledger.Account, 0)
	sc := bufio.NewScanner(f)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		a, err := parseAccountLine(line)
		if err != nil {
			return out, fmt.Errorf("%s line %d: %w", s.accountsPath, n, err)
		}
		out = append(out, a)
	}
	if err := sc.Err(); err != nil {
		return out, err
	}
	s.log.Debug("accounts loaded", "path", s.accountsPath, "count", len(out))
	return out, nil
}

// parseAccountLine splits positionally; fields after the balance are ignored.
func parseAccountLine(line string) (ledger.Account, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 2 {
		return ledger.Account{}, errors.New("expected name,balance")
	}
	bal, err := decimal.Parse(strings.TrimSpace(fields[1]))
	if err != nil {
		return ledger.Account{}, fmt.Errorf("balance %q: %w", fields[1], err)
	}
	return ledger.Account{Name: fields[0], Balance: bal}, nil
}

// SaveAll truncates the accounts file and writes every account.
func (s *Store) SaveAll(_ context.Context, accounts []ledger.Account) error {
	f, err := os.OpenFile(s.accountsPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, a := range accounts {
		if _, err := fmt.Fprintf(w, "%s,%s\n", a.Name, a.Balance.String()); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// AppendLog appends one line to the transaction log.
func (s *Store) AppendLog(_ context.Context, e ledger.LogEntry) error {
	f, err := os.OpenFile(s.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(e.Line() + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadLog returns every non-blank log line in file order. Each entry keeps
// the stored text in Raw; fields are filled in when the line parses.
func (s *Store) ReadLog(_ context.Context) ([]ledger.LogEntry, error) {
	f, err := os.Open(s.logPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make([]ledger.LogEntry, 0)
	sc := bufio.NewScanner(f)
	n := 0
	for sc.Scan() {
		n++
		raw := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		e, err := ledger.ParseLogLine(raw)
		if err != nil {
			s.log.Debug("log line kept as text", "path", s.logPath, "line", n, "err", err)
			e = ledger.LogEntry{}
		}
		e.Raw = raw
		out = append(out, e)
	}
	return out, sc.Err()
}
