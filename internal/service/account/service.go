// Package account implements the account lifecycle: create, delete, lock,
// unlock and read-only views. Every mutation that changes what is stored ends
// with an explicit full rewrite through the storage adapter.
package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/govalues/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tinoosan/teller/internal/errs"
	"github.com/tinoosan/teller/internal/ledger"
	"github.com/tinoosan/teller/internal/metrics"
	"github.com/tinoosan/teller/internal/storage"
	"github.com/tinoosan/teller/internal/storage/memory"
)

var tracer = otel.Tracer("github.com/tinoosan/teller/internal/service/account")

type Service interface {
	Create(ctx context.Context, name string) (ledger.Account, error)
	Delete(ctx context.Context, name string) (ledger.Account, error)
	Lock(ctx context.Context, name string) (ledger.Account, error)
	Unlock(ctx context.Context, name string) (ledger.Account, error)
	Get(ctx context.Context, name string) (ledger.Account, error)
	List(ctx context.Context) []ledger.Account
	Overview(ctx context.Context) (Overview, error)
}

// Overview summarises the whole collection.
type Overview struct {
	Count int
	Total decimal.Decimal
}

type service struct {
	accounts *memory.Store
	persist  storage.Adapter
	log      *slog.Logger
	metrics  *metrics.Metrics
}

func New(accounts *memory.Store, persist storage.Adapter, logger *slog.Logger, m *metrics.Metrics) Service {
	if logger == nil {
		logger = slog.Default()
	}
	m.SetAccounts(accounts.Len())
	return &service{accounts: accounts, persist: persist, log: logger, metrics: m}
}

// Create appends a zero-balance, unlocked account. Names must be unique.
func (s *service) Create(ctx context.Context, name string) (acc ledger.Account, err error) {
	ctx, span := s.start(ctx, "account.Create", name)
	defer func() { s.finish(span, "create", err) }()

	if err := ledger.ValidateName(name); err != nil {
		return ledger.Account{}, err
	}
	if _, err := s.accounts.Find(name); err == nil {
		return ledger.Account{}, fmt.Errorf("%w: %s", errs.ErrDuplicateName, name)
	}
	acc = ledger.Account{Name: name, Balance: decimal.Zero}
	s.accounts.Append(acc)
	s.metrics.SetAccounts(s.accounts.Len())
	s.log.Info("account created", "account", name)
	return acc, s.save(ctx)
}

// Delete removes the first account named name.
func (s *service) Delete(ctx context.Context, name string) (acc ledger.Account, err error) {
	ctx, span := s.start(ctx, "account.Delete", name)
	defer func() { s.finish(span, "delete", err) }()

	acc, err = s.accounts.Remove(name)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("%w: %s", err, name)
	}
	s.metrics.SetAccounts(s.accounts.Len())
	s.log.Info("account deleted", "account", name)
	return acc, s.save(ctx)
}

// Lock blocks deposits, withdrawals and outgoing transfers. Not persisted.
func (s *service) Lock(ctx context.Context, name string) (ledger.Account, error) {
	return s.setLocked(ctx, name, true)
}

// Unlock clears the lock flag. Not persisted.
func (s *service) Unlock(ctx context.Context, name string) (ledger.Account, error) {
	return s.setLocked(ctx, name, false)
}

func (s *service) setLocked(ctx context.Context, name string, locked bool) (acc ledger.Account, err error) {
	action := "unlock"
	if locked {
		action = "lock"
	}
	_, span := s.start(ctx, "account."+action, name)
	defer func() { s.finish(span, action, err) }()

	acc, err = s.accounts.Find(name)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("%w: %s", err, name)
	}
	acc.Locked = locked
	if err := s.accounts.Replace(acc); err != nil {
		return ledger.Account{}, err
	}
	s.log.Debug("account lock changed", "account", name, "locked", locked)
	return acc, nil
}

func (s *service) Get(_ context.Context, name string) (ledger.Account, error) {
	acc, err := s.accounts.Find(name)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("%w: %s", err, name)
	}
	return acc, nil
}

func (s *service) List(_ context.Context) []ledger.Account { return s.accounts.All() }

func (s *service) Overview(_ context.Context) (Overview, error) {
	total, err := s.accounts.Total()
	if err != nil {
		return Overview{}, err
	}
	return Overview{Count: s.accounts.Len(), Total: total}, nil
}

// save rewrites the full collection. Failures keep the in-memory state.
func (s *service) save(ctx context.Context) error {
	if err := s.persist.SaveAll(ctx, s.accounts.All()); err != nil {
		s.log.Error("save accounts failed", "err", err)
		return fmt.Errorf("%w: %w", errs.ErrStorage, err)
	}
	return nil
}

func (s *service) start(ctx context.Context, op, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, op, trace.WithAttributes(attribute.String("ledger.account", name)))
}

func (s *service) finish(span trace.Span, action string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	s.metrics.Observe(action, err)
}
