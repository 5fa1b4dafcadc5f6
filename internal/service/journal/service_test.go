package journal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/teller/internal/errs"
	"github.com/tinoosan/teller/internal/ledger"
	"github.com/tinoosan/teller/internal/storage/file"
	"github.com/tinoosan/teller/internal/storage/memory"
	"github.com/tinoosan/teller/internal/storage/storagetest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func dec(s string) decimal.Decimal { return decimal.MustParse(s) }

func setup(t *testing.T, seed ...ledger.Account) (*service, *memory.Store, *storagetest.Recorder) {
	t.Helper()
	accounts := memory.New(seed)
	rec := &storagetest.Recorder{}
	svc := New(accounts, rec, testLogger(), nil).(*service)
	svc.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local) }
	return svc, accounts, rec
}

func balance(t *testing.T, s *memory.Store, name string) decimal.Decimal {
	t.Helper()
	a, err := s.Find(name)
	require.NoError(t, err)
	return a.Balance
}

func TestDeposit_Scenario(t *testing.T) {
	svc, accounts, rec := setup(t, ledger.Account{Name: "Alice", Balance: decimal.Zero})

	acc, err := svc.Deposit(context.Background(), "Alice", dec("100"))
	require.NoError(t, err)
	assert.Equal(t, 0, acc.Balance.Cmp(dec("100")))
	assert.Equal(t, 0, balance(t, accounts, "Alice").Cmp(dec("100")))

	require.Len(t, rec.Entries, 1)
	assert.True(t, strings.HasSuffix(rec.Entries[0].Line(), ",Deposit,Alice,100,100"), rec.Entries[0].Line())
	assert.Equal(t, 1, rec.Saves)
}

func TestDeposit_Rejections(t *testing.T) {
	svc, accounts, rec := setup(t, ledger.Account{Name: "Alice", Balance: dec("10")}, ledger.Account{Name: "Bob", Locked: true})
	ctx := context.Background()

	for _, amt := range []string{"0", "-5"} {
		_, err := svc.Deposit(ctx, "Alice", dec(amt))
		assert.ErrorIs(t, err, errs.ErrInvalidAmount)
	}
	_, err := svc.Deposit(ctx, "Bob", dec("5"))
	assert.ErrorIs(t, err, errs.ErrLocked)
	_, err = svc.Deposit(ctx, "Nobody", dec("5"))
	assert.ErrorIs(t, err, errs.ErrNotFound)

	assert.Equal(t, 0, balance(t, accounts, "Alice").Cmp(dec("10")))
	assert.Empty(t, rec.Entries)
	assert.Equal(t, 0, rec.Saves)
}

func TestWithdraw(t *testing.T) {
	svc, accounts, rec := setup(t, ledger.Account{Name: "Alice", Balance: dec("50")})
	ctx := context.Background()

	_, err := svc.Withdraw(ctx, "Alice", dec("50.01"))
	assert.ErrorIs(t, err, errs.ErrInsufficientFunds)
	assert.Equal(t, 0, balance(t, accounts, "Alice").Cmp(dec("50")))

	acc, err := svc.Withdraw(ctx, "Alice", dec("50"))
	require.NoError(t, err)
	assert.True(t, acc.Balance.IsZero())
	require.Len(t, rec.Entries, 1)
	assert.Equal(t, ledger.ActionWithdraw, rec.Entries[0].Action)
}

func TestTransfer_Scenario(t *testing.T) {
	svc, accounts, rec := setup(t, ledger.Account{Name: "Alice", Balance: dec("50")}, ledger.Account{Name: "Bob", Balance: decimal.Zero})

	res, err := svc.Transfer(context.Background(), "Alice", "Bob", dec("20"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.From.Balance.Cmp(dec("30")))
	assert.Equal(t, 0, res.To.Balance.Cmp(dec("20")))
	assert.Equal(t, 0, balance(t, accounts, "Alice").Cmp(dec("30")))
	assert.Equal(t, 0, balance(t, accounts, "Bob").Cmp(dec("20")))

	require.Len(t, rec.Entries, 1)
	e := rec.Entries[0]
	assert.Equal(t, ledger.ActionTransfer, e.Action)
	assert.Equal(t, "Alice", e.Name)
	assert.Equal(t, 0, e.Balance.Cmp(dec("30")))
	assert.NotContains(t, e.Line(), "Bob")
}

func TestTransfer_ConservesTotal(t *testing.T) {
	svc, accounts, _ := setup(t, ledger.Account{Name: "Alice", Balance: dec("100.10")}, ledger.Account{Name: "Bob", Balance: dec("7.5")})
	ctx := context.Background()
	before, err := accounts.Total()
	require.NoError(t, err)

	for _, amt := range []string{"0.10", "33", "1000", "-1", "67"} {
		_, _ = svc.Transfer(ctx, "Alice", "Bob", dec(amt))
		after, err := accounts.Total()
		require.NoError(t, err)
		assert.Equal(t, 0, before.Cmp(after), "after transfer of %s", amt)
	}
	assert.True(t, balance(t, accounts, "Alice").IsZero())
}

func TestTransfer_Rejections(t *testing.T) {
	svc, accounts, rec := setup(t,
		ledger.Account{Name: "Alice", Balance: dec("50"), Locked: true},
		ledger.Account{Name: "Bob", Balance: dec("50")},
		ledger.Account{Name: "Carol", Balance: dec("50"), Locked: true},
	)
	ctx := context.Background()

	_, err := svc.Transfer(ctx, "Alice", "Bob", dec("1"))
	assert.ErrorIs(t, err, errs.ErrLocked)
	_, err = svc.Transfer(ctx, "Bob", "Nobody", dec("1"))
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = svc.Transfer(ctx, "Bob", "Alice", dec("0"))
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)
	_, err = svc.Transfer(ctx, "Bob", "Alice", dec("51"))
	assert.ErrorIs(t, err, errs.ErrInsufficientFunds)
	assert.Empty(t, rec.Entries)

	// a locked recipient can still be credited
	_, err = svc.Transfer(ctx, "Bob", "Carol", dec("5"))
	require.NoError(t, err)
	assert.Equal(t, 0, balance(t, accounts, "Carol").Cmp(dec("55")))
}

func TestTransfer_ToSelfKeepsBalanceAndLogsOnce(t *testing.T) {
	svc, accounts, rec := setup(t, ledger.Account{Name: "Alice", Balance: dec("50")})

	res, err := svc.Transfer(context.Background(), "Alice", "Alice", dec("10"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.From.Balance.Cmp(dec("50")))
	assert.Equal(t, 0, res.To.Balance.Cmp(dec("50")))
	assert.Equal(t, 0, balance(t, accounts, "Alice").Cmp(dec("50")))

	require.Len(t, rec.Entries, 1)
	assert.True(t, strings.HasSuffix(rec.Entries[0].Line(), ",Transfer,Alice,10,50"), rec.Entries[0].Line())
	assert.Equal(t, 1, rec.Saves)

	_, err = svc.Transfer(context.Background(), "Alice", "Alice", dec("51"))
	assert.ErrorIs(t, err, errs.ErrInsufficientFunds)
}

func TestLockGatesAndUnlockRestores(t *testing.T) {
	svc, accounts, _ := setup(t, ledger.Account{Name: "Alice", Balance: dec("10")}, ledger.Account{Name: "Bob"})
	ctx := context.Background()

	a, _ := accounts.Find("Alice")
	a.Locked = true
	require.NoError(t, accounts.Replace(a))
	_, err := svc.Deposit(ctx, "Alice", dec("1"))
	assert.ErrorIs(t, err, errs.ErrLocked)
	_, err = svc.Withdraw(ctx, "Alice", dec("1"))
	assert.ErrorIs(t, err, errs.ErrLocked)
	_, err = svc.Transfer(ctx, "Alice", "Bob", dec("1"))
	assert.ErrorIs(t, err, errs.ErrLocked)

	a.Locked = false
	require.NoError(t, accounts.Replace(a))
	_, err = svc.Deposit(ctx, "Alice", dec("1"))
	assert.NoError(t, err)
	_, err = svc.Withdraw(ctx, "Alice", dec("1"))
	assert.NoError(t, err)
	_, err = svc.Transfer(ctx, "Alice", "Bob", dec("1"))
	assert.NoError(t, err)
}

func TestApplyInterest_Scenario(t *testing.T) {
	svc, accounts, rec := setup(t, ledger.Account{Name: "Alice", Balance: dec("100")}, ledger.Account{Name: "Bob", Balance: dec("20"), Locked: true})

	out, err := svc.ApplyInterest(context.Background(), dec("10"))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 0, balance(t, accounts, "Alice").Cmp(dec("110")))
	assert.Equal(t, 0, balance(t, accounts, "Bob").Cmp(dec("22")))

	require.Len(t, rec.Entries, 2)
	assert.Equal(t, ledger.ActionInterest, rec.Entries[0].Action)
	assert.Equal(t, 0, rec.Entries[0].Amount.Cmp(dec("10")))
	assert.Equal(t, 0, rec.Entries[0].Balance.Cmp(dec("110")))
	assert.Equal(t, 1, rec.Saves)
}

func TestApplyInterest_OverflowChangesNothing(t *testing.T) {
	svc, accounts, rec := setup(t,
		ledger.Account{Name: "Alice", Balance: dec("100")},
		ledger.Account{Name: "Whale", Balance: dec("9000000000000000000")},
	)

	_, err := svc.ApplyInterest(context.Background(), dec("50"))
	require.Error(t, err)
	assert.Equal(t, 0, balance(t, accounts, "Alice").Cmp(dec("100")))
	assert.Equal(t, 0, balance(t, accounts, "Whale").Cmp(dec("9000000000000000000")))
	assert.Empty(t, rec.Entries)
	assert.Equal(t, 0, rec.Saves)
}

func TestApplyInterest_LargeBalanceThatFits(t *testing.T) {
	// balance*rate alone would exceed 19 digits; the result does not.
	svc, accounts, rec := setup(t, ledger.Account{Name: "Whale", Balance: dec("5000000000000000000")})

	_, err := svc.ApplyInterest(context.Background(), dec("50"))
	require.NoError(t, err)
	assert.Equal(t, 0, balance(t, accounts, "Whale").Cmp(dec("7500000000000000000")))
	require.Len(t, rec.Entries, 1)
	assert.Equal(t, 0, rec.Entries[0].Amount.Cmp(dec("2500000000000000000")))
	assert.Equal(t, 1, rec.Saves)
}

func TestApplyInterest_EmptyStillSaves(t *testing.T) {
	svc, _, rec := setup(t)
	out, err := svc.ApplyInterest(context.Background(), dec("5"))
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 1, rec.Saves)
}

func TestJournalFailureIsFatalAndSkipsSave(t *testing.T) {
	svc, accounts, rec := setup(t, ledger.Account{Name: "Alice"})
	rec.FailLog = true

	_, err := svc.Deposit(context.Background(), "Alice", dec("5"))
	assert.ErrorIs(t, err, errs.ErrJournal)
	assert.Equal(t, 0, rec.Saves)
	// memory already holds the mutation
	assert.Equal(t, 0, balance(t, accounts, "Alice").Cmp(dec("5")))
}

func TestStorageFailureIsReportedNotRolledBack(t *testing.T) {
	svc, accounts, rec := setup(t, ledger.Account{Name: "Alice"})
	rec.FailSave = true

	acc, err := svc.Deposit(context.Background(), "Alice", dec("5"))
	assert.ErrorIs(t, err, errs.ErrStorage)
	assert.Equal(t, 0, acc.Balance.Cmp(dec("5")))
	assert.Equal(t, 0, balance(t, accounts, "Alice").Cmp(dec("5")))
	assert.Len(t, rec.Entries, 1)
}

func TestHistory(t *testing.T) {
	svc, _, _ := setup(t, ledger.Account{Name: "Alice"})
	ctx := context.Background()
	_, err := svc.History(ctx)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = svc.Deposit(ctx, "Alice", dec("1"))
	require.NoError(t, err)
	h, err := svc.History(ctx)
	require.NoError(t, err)
	assert.Len(t, h, 1)
}

func TestFileBackedRoundTrip_LockResets(t *testing.T) {
	dir := t.TempDir()
	fs := file.New(filepath.Join(dir, "accounts.txt"), filepath.Join(dir, "transaction_log.txt"), testLogger())
	ctx := context.Background()

	accounts := memory.New([]ledger.Account{{Name: "Alice"}, {Name: "Bob"}})
	svc := New(accounts, fs, testLogger(), nil)
	_, err := svc.Deposit(ctx, "Alice", dec("100"))
	require.NoError(t, err)

	a, _ := accounts.Find("Alice")
	a.Locked = true
	require.NoError(t, accounts.Replace(a))
	_, err = svc.Deposit(ctx, "Bob", dec("1"))
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "accounts.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Alice,100\nBob,1\n", string(raw))

	reloaded, err := fs.Load(ctx)
	require.NoError(t, err)
	require.Len(t, reloaded, 2)
	assert.False(t, reloaded[0].Locked)
	assert.Equal(t, 0, reloaded[0].Balance.Cmp(dec("100")))

	logRaw, err := os.ReadFile(filepath.Join(dir, "transaction_log.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(logRaw)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], ",Deposit,Alice,100,100"))
}
