// Package sqlite is a single-file SQL backend built on sqlx and go-sqlite3.
// Queries are assembled with squirrel. Balances are kept as decimal text so
// nothing is lost to floating point.
package sqlite

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tinoosan/teller/internal/ledger"
	"github.com/tinoosan/teller/internal/storage"
)

const schema = `
create table if not exists accounts (
    position integer primary key,
    name     text not null,
    balance  text not null
);
create table if not exists transaction_log (
    seq       integer primary key autoincrement,
    id        text not null unique,
    logged_at text not null,
    action    text not null,
    name      text not null,
    amount    text not null,
    balance   text not null
);`

var _ storage.Adapter = (*Store)(nil)

type accountRow struct {
	Name    string `db:"name"`
	Balance string `db:"balance"`
}

type logRow struct {
	LoggedAt string `db:"logged_at"`
	Action   string `db:"action"`
	Name     string `db:"name"`
	Amount   string `db:"amount"`
	Balance  string `db:"balance"`
}

// Store wraps a sqlx handle to a sqlite database.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database at path (":memory:" works) and creates the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Ready pings the database.
func (s *Store) Ready(ctx context.Context) error { return s.db.PingContext(ctx) }

// Load returns accounts in insertion order with Locked=false.
func (s *Store) Load(ctx context.Context) ([]ledger.Account, error) {
	out := make([]ledger.Account, 0)
	query, args, err := sq.Select("name", "balance").From("accounts").OrderBy("position").ToSql()
	if err != nil {
		return out, err
	}
	var rows []accountRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return out, err
	}
	for _, r := range rows {
		d, err := decimal.Parse(r.Balance)
		if err != nil {
			return out, fmt.Errorf("account %q balance: %w", r.Name, err)
		}
		out = append(out, ledger.Account{Name: r.Name, Balance: d})
	}
	return out, nil
}

// SaveAll replaces the accounts table contents in one transaction.
func (s *Store) SaveAll(ctx context.Context, accounts []ledger.Account) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `delete from accounts`); err != nil {
		return err
	}
	if len(accounts) > 0 {
		ins := sq.Insert("accounts").Columns("position", "name", "balance")
		for i, a := range accounts {
			ins = ins.Values(i, a.Name, a.Balance.String())
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert accounts: %w", err)
		}
	}
	return tx.Commit()
}

// AppendLog inserts one transaction_log row.
func (s *Store) AppendLog(ctx context.Context, e ledger.LogEntry) error {
	query, args, err := sq.Insert("transaction_log").
		Columns("id", "logged_at", "action", "name", "amount", "balance").
		Values(uuid.NewString(), e.Time.Format(time.RFC3339Nano), string(e.Action), e.Name, e.Amount.String(), e.Balance.String()).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// ReadLog returns all log rows in append order.
func (s *Store) ReadLog(ctx context.Context) ([]ledger.LogEntry, error) {
	query, args, err := sq.Select("logged_at", "action", "name", "amount", "balance").
		From("transaction_log").
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, err
	}
	var rows []logRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]ledger.LogEntry, 0, len(rows))
	for _, r := range rows {
		ts, err := time.Parse(time.RFC3339Nano, r.LoggedAt)
		if err != nil {
			return nil, err
		}
		amt, err := decimal.Parse(r.Amount)
		if err != nil {
			return nil, err
		}
		bal, err := decimal.Parse(r.Balance)
		if err != nil {
			return nil, err
		}
		out = append(out, ledger.LogEntry{Time: ts, Action: ledger.Action(r.Action), Name: r.Name, Amount: amt, Balance: bal})
	}
	return out, nil
}
