// Package postgres provides a pgx-backed storage adapter. It keeps the same
// shape as the flat files: an ordered accounts table (no lock column) and an
// append-only transaction_log table.
package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/teller/internal/ledger"
	"github.com/tinoosan/teller/internal/storage"
)

//go:embed schema.sql
var schemaSQL string

var _ storage.Adapter = (*Store)(nil)

// Store holds a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string and
// creates the schema if it is missing.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// Load returns accounts in insertion order with Locked=false.
func (s *Store) Load(ctx context.Context) ([]ledger.Account, error) {
	out := make([]ledger.Account, 0)
	rows, err := s.pool.Query(ctx, `select name, balance::text from accounts order by position`)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var name, bal string
		if err := rows.Scan(&name, &bal); err != nil {
			return out, err
		}
		d, err := decimal.Parse(bal)
		if err != nil {
			return out, fmt.Errorf("account %q balance: %w", name, err)
		}
		out = append(out, ledger.Account{Name: name, Balance: d})
	}
	return out, rows.Err()
}

// SaveAll replaces the accounts table contents in one transaction.
func (s *Store) SaveAll(ctx context.Context, accounts []ledger.Account) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `delete from accounts`); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for i, a := range accounts {
		batch.Queue(`insert into accounts (position, name, balance) values ($1, $2, $3::text::numeric)`, i, a.Name, a.Balance.String())
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert accounts: %w", err)
	}
	return tx.Commit(ctx)
}

// AppendLog inserts one transaction_log row.
func (s *Store) AppendLog(ctx context.Context, e ledger.LogEntry) error {
	_, err := s.pool.Exec(ctx, `
        insert into transaction_log (id, logged_at, action, name, amount, balance)
        values ($1, $2, $3, $4, $5::text::numeric, $6::text::numeric)
    `, uuid.New(), e.Time, string(e.Action), e.Name, e.Amount.String(), e.Balance.String())
	return err
}

// ReadLog returns all log rows in append order.
func (s *Store) ReadLog(ctx context.Context) ([]ledger.LogEntry, error) {
	rows, err := s.pool.Query(ctx, `
        select logged_at, action, name, amount::text, balance::text
        from transaction_log
        order by seq asc
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.LogEntry, 0)
	for rows.Next() {
		var e ledger.LogEntry
		var action, amt, bal string
		if err := rows.Scan(&e.Time, &action, &e.Name, &amt, &bal); err != nil {
			return nil, err
		}
		e.Action = ledger.Action(action)
		if e.Amount, err = decimal.Parse(amt); err != nil {
			return nil, err
		}
		if e.Balance, err = decimal.Parse(bal); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// truncate clears both tables. Test helper.
func (s *Store) truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `truncate table accounts, transaction_log`)
	return err
}
