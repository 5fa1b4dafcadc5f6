package file

import (
	"context"
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
)

func newStore(t *testing.T) (*Store, string, string) {
	t.Helper()
	dir := t.TempDir()
	accounts := filepath.Join(dir, "accounts.txt")
	log := filepath.Join(dir, "transaction_log.txt")
	return New(accounts, log, nil), accounts, log
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s, _, _ := newStore(t)
	accs, err := s.Load(context.Background())
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Empty(t, accs)
}

func TestSaveLoad_RoundTripDropsLock(t *testing.T) {
	s, path, _ := newStore(t)
	ctx := context.Background()
	in := []ledger.Account{
		{Name: "Alice", Balance: decimal.MustParse("100.50"), Locked: true},
		{Name: "Bob", Balance: decimal.MustParse("0")},
	}
	require.NoError(t, s.SaveAll(ctx, in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Alice,100.50\nBob,0\n", string(raw))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		assert.Equal(t, in[i].Name, out[i].Name)
		assert.Equal(t, 0, in[i].Balance.Cmp(out[i].Balance))
		assert.False(t, out[i].Locked)
	}
}

func TestSaveAll_Truncates(t *testing.T) {
	s, path, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveAll(ctx, []ledger.Account{{Name: "Alice", Balance: decimal.MustParse("1")}, {Name: "Bob", Balance: decimal.MustParse("2")}}))
	require.NoError(t, s.SaveAll(ctx, []ledger.Account{{Name: "Bob", Balance: decimal.MustParse("2")}}))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Bob,2\n", string(raw))
}

func TestLoad_LegacyFloatsAndPartialFailure(t *testing.T) {
	s, path, _ := newStore(t)
	require.NoError(t, os.WriteFile(path, []byte("Alice,100.0\nBob,oops\nCarol,3\n"), 0o644))
	out, err := s.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, errs.ErrNotFound)
	require.Len(t, out, 1)
	assert.Equal(t, "Alice", out[0].Name)
	assert.Equal(t, 0, out[0].Balance.Cmp(decimal.MustParse("100")))
}

func TestAppendAndReadLog(t *testing.T) {
	s, _, logPath := newStore(t)
	ctx := context.Background()

	_, err := s.ReadLog(ctx)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	ts := time.Date(2024, 3, 1, 9, 30, 0, 123456000, time.Local)
	e := ledger.LogEntry{Time: ts, Action: ledger.ActionDeposit, Name: "Alice", Amount: decimal.MustParse("100"), Balance: decimal.MustParse("100")}
	require.NoError(t, s.AppendLog(ctx, e))
	require.NoError(t, s.AppendLog(ctx, e))

	raw, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01 09:30:00.123456,Deposit,Alice,100,100\n2024-03-01 09:30:00.123456,Deposit,Alice,100,100\n", string(raw))

	entries, err := s.ReadLog(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Time.Equal(ts))
	assert.Equal(t, ledger.ActionDeposit, entries[0].Action)
}

func TestReadLog_KeepsLegacyLinesVerbatim(t *testing.T) {
	s, _, logPath := newStore(t)
	lines := []string{
		"2024-01-01 10:00:00,Deposit,Alice,100.0,100.0",
		"2024-01-01 10:00:01.250000,Withdraw,Alice,1e-05,99.99999",
		"2024-01-01 10:00:02.000001,Interest Applied,Alice,9.999999,109.999989",
	}
	require.NoError(t, os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n\n"), 0o644))

	entries, err := s.ReadLog(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, lines[i], e.Line())
	}
	assert.True(t, entries[0].Time.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)))
	assert.Equal(t, ledger.ActionDeposit, entries[0].Action)
	assert.Equal(t, "Alice", entries[0].Name)
}

func TestAppendLog_FailsOnUnwritablePath(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "a.txt"), filepath.Join(dir, "missing", "log.txt"), nil)
	assert.Error(t, s.AppendLog(context.Background(), ledger.LogEntry{}))
}
