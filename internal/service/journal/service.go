// Package journal moves money between and into accounts and records every
// movement in the transaction log. Each operation mutates memory, appends to
// the log, then rewrites the stored account list, in that order.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

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

var (
	tracer  = otel.Tracer("github.com/tinoosan/teller/internal/service/journal")
	hundred = decimal.MustNew(100, 0)
)

// Service exposes the balance-changing ledger operations and the log view.
type Service interface {
	Deposit(ctx context.Context, name string, amount decimal.Decimal) (ledger.Account, error)
	Withdraw(ctx context.Context, name string, amount decimal.Decimal) (ledger.Account, error)
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) (Transfer, error)
	ApplyInterest(ctx context.Context, rate decimal.Decimal) ([]ledger.Account, error)
	History(ctx context.Context) ([]ledger.LogEntry, error)
}

// Transfer is the state of both sides after a transfer.
type Transfer struct {
	From ledger.Account
	To   ledger.Account
}

type service struct {
	accounts *memory.Store
	persist  storage.Adapter
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func New(accounts *memory.Store, persist storage.Adapter, logger *slog.Logger, m *metrics.Metrics) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{accounts: accounts, persist: persist, log: logger, metrics: m, now: time.Now}
}

// Deposit rejects locked accounts and non-positive amounts.
func (s *service) Deposit(ctx context.Context, name string, amount decimal.Decimal) (acc ledger.Account, err error) {
	ctx, span := s.start(ctx, "journal.Deposit", name, amount)
	defer func() { s.finish(span, "deposit", err) }()

	acc, err = s.spendable(name, amount)
	if err != nil {
		return ledger.Account{}, err
	}
	if acc.Balance, err = acc.Balance.Add(amount); err != nil {
		return ledger.Account{}, err
	}
	if err := s.accounts.Replace(acc); err != nil {
		return ledger.Account{}, err
	}
	if err := s.record(ctx, ledger.ActionDeposit, acc, amount); err != nil {
		return acc, err
	}
	return acc, s.save(ctx)
}

// Withdraw also rejects amounts above the current balance.
func (s *service) Withdraw(ctx context.Context, name string, amount decimal.Decimal) (acc ledger.Account, err error) {
	ctx, span := s.start(ctx, "journal.Withdraw", name, amount)
	defer func() { s.finish(span, "withdraw", err) }()

	acc, err = s.spendable(name, amount)
	if err != nil {
		return ledger.Account{}, err
	}
	if amount.Cmp(acc.Balance) > 0 {
		return ledger.Account{}, errs.ErrInsufficientFunds
	}
	if acc.Balance, err = acc.Balance.Sub(amount); err != nil {
		return ledger.Account{}, err
	}
	if err := s.accounts.Replace(acc); err != nil {
		return ledger.Account{}, err
	}
	if err := s.record(ctx, ledger.ActionWithdraw, acc, amount); err != nil {
		return acc, err
	}
	return acc, s.save(ctx)
}

// Transfer moves amount from one account to another. Only the source is
// lock-checked, and only the source side is logged. Naming the same account
// twice leaves its balance unchanged but still logs the transfer.
func (s *service) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) (res Transfer, err error) {
	ctx, span := s.start(ctx, "journal.Transfer", from, amount)
	span.SetAttributes(attribute.String("ledger.recipient", to))
	defer func() { s.finish(span, "transfer", err) }()

	src, err := s.spendable(from, amount)
	if err != nil {
		return Transfer{}, err
	}
	dst, err := s.accounts.Find(to)
	if err != nil {
		return Transfer{}, fmt.Errorf("recipient %s: %w", to, err)
	}
	if amount.Cmp(src.Balance) > 0 {
		return Transfer{}, errs.ErrInsufficientFunds
	}
	if src.Balance, err = src.Balance.Sub(amount); err != nil {
		return Transfer{}, err
	}
	if dst.Name == src.Name {
		dst.Balance = src.Balance
	}
	if dst.Balance, err = dst.Balance.Add(amount); err != nil {
		return Transfer{}, err
	}
	if dst.Name == src.Name {
		src = dst
	}
	if err := s.accounts.Replace(src); err != nil {
		return Transfer{}, err
	}
	if err := s.accounts.Replace(dst); err != nil {
		return Transfer{}, err
	}
	res = Transfer{From: src, To: dst}
	if err := s.record(ctx, ledger.ActionTransfer, src, amount); err != nil {
		return res, err
	}
	return res, s.save(ctx)
}

// ApplyInterest adds balance*rate/100 to every account, locked or not.
// Every new balance is computed before any is written, so an arithmetic
// failure leaves all accounts untouched. Then each account is updated and
// logged, and the collection is saved once. Any rate is accepted.
func (s *service) ApplyInterest(ctx context.Context, rate decimal.Decimal) (out []ledger.Account, err error) {
	ctx, span := s.start(ctx, "journal.ApplyInterest", "", rate)
	defer func() { s.finish(span, "interest", err) }()

	factor, err := rate.Quo(hundred)
	if err != nil {
		return nil, err
	}
	all := s.accounts.All()
	interests := make([]decimal.Decimal, len(all))
	for i, acc := range all {
		interest, err := acc.Balance.Mul(factor)
		if err != nil {
			return nil, fmt.Errorf("interest for %s: %w", acc.Name, err)
		}
		interest = interest.Trim(0)
		if all[i].Balance, err = acc.Balance.Add(interest); err != nil {
			return nil, fmt.Errorf("interest for %s: %w", acc.Name, err)
		}
		interests[i] = interest
	}

	for i, acc := range all {
		if err := s.accounts.ReplaceAt(i, acc); err != nil {
			return nil, err
		}
	}
	for i, acc := range all {
		if err := s.record(ctx, ledger.ActionInterest, acc, interests[i]); err != nil {
			return all, err
		}
	}
	s.log.Info("interest applied", "rate", rate.String(), "accounts", len(all))
	return all, s.save(ctx)
}

// History returns the transaction log for display.
func (s *service) History(ctx context.Context) ([]ledger.LogEntry, error) {
	return s.persist.ReadLog(ctx)
}

// spendable resolves name and applies the lock and amount-sign gates.
func (s *service) spendable(name string, amount decimal.Decimal) (ledger.Account, error) {
	acc, err := s.accounts.Find(name)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("%w: %s", err, name)
	}
	if acc.Locked {
		return ledger.Account{}, errs.ErrLocked
	}
	if !amount.IsPos() {
		return ledger.Account{}, errs.ErrInvalidAmount
	}
	return acc, nil
}

// record appends one log entry. A failure here is fatal for the session.
func (s *service) record(ctx context.Context, action ledger.Action, acc ledger.Account, amount decimal.Decimal) error {
	e := ledger.LogEntry{Time: s.now(), Action: action, Name: acc.Name, Amount: amount, Balance: acc.Balance}
	if err := s.persist.AppendLog(ctx, e); err != nil {
		s.log.Error("append transaction log failed", "action", string(action), "account", acc.Name, "err", err)
		return fmt.Errorf("%w: %w", errs.ErrJournal, err)
	}
	s.log.Info("ledger event", "action", string(action), "account", acc.Name, "amount", amount.String(), "balance", acc.Balance.String())
	return nil
}

// save rewrites the full collection. Failures keep the in-memory state.
func (s *service) save(ctx context.Context) error {
	if err := s.persist.SaveAll(ctx, s.accounts.All()); err != nil {
		s.log.Error("save accounts failed", "err", err)
		return fmt.Errorf("%w: %w", errs.ErrStorage, err)
	}
	return nil
}

func (s *service) start(ctx context.Context, op, name string, amount decimal.Decimal) (context.Context, trace.Span) {
	return tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("ledger.account", name),
		attribute.String("ledger.amount", amount.String()),
	))
}

func (s *service) finish(span trace.Span, action string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	s.metrics.Observe(action, err)
}
