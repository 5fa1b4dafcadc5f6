package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/govalues/decimal"

	"github.com/tinoosan/teller/internal/errs"
)

// Action names the kind of ledger event written to the transaction log.
type Action string

const (
	ActionDeposit  Action = "Deposit"
	ActionWithdraw Action = "Withdraw"
	// ActionTransfer is logged once, from the source account's perspective.
	ActionTransfer Action = "Transfer"
	ActionInterest Action = "Interest Applied"
)

// TimeLayout is the timestamp layout of the transaction log.
const TimeLayout = "2006-01-02 15:04:05.000000"

// parseLayout also accepts timestamps written without fractional seconds.
const parseLayout = "2006-01-02 15:04:05.999999999"

// Account is a named balance with a lock flag. Name is the identifier.
type Account struct {
	Name    string
	Balance decimal.Decimal
	// Locked blocks deposits, withdrawals and outgoing transfers.
	// It lives only in memory: no storage backend writes it.
	Locked bool
}

// LogEntry is a single line of the append-only transaction log.
type LogEntry struct {
	Time    time.Time
	Action  Action
	Name    string
	Amount  decimal.Decimal
	Balance decimal.Decimal
	// Raw is the line exactly as stored, when the backend keeps text.
	// Line returns it unchanged so history shows what was written.
	Raw string
}

// Line renders the entry as timestamp,action,name,amount,resultingBalance.
func (e LogEntry) Line() string {
	if e.Raw != "" {
		return e.Raw
	}
	return strings.Join([]string{
		e.Time.Format(TimeLayout),
		string(e.Action),
		e.Name,
		e.Amount.String(),
		e.Balance.String(),
	}, ",")
}

// ParseLogLine is the inverse of Line. Raw is not set.
func ParseLogLine(line string) (LogEntry, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 5 {
		return LogEntry{}, errors.New("log line: expected 5 fields")
	}
	ts, err := time.ParseInLocation(parseLayout, parts[0], time.Local)
	if err != nil {
		return LogEntry{}, err
	}
	amt, err := decimal.Parse(parts[3])
	if err != nil {
		return LogEntry{}, err
	}
	bal, err := decimal.Parse(parts[4])
	if err != nil {
		return LogEntry{}, err
	}
	return LogEntry{Time: ts, Action: Action(parts[1]), Name: parts[2], Amount: amt, Balance: bal}, nil
}

// ParseAmount parses user input into a decimal amount. Sign is not checked here.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.Parse(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, errs.ErrInvalidAmount
	}
	return d, nil
}

// ValidateName rejects names the positional file format cannot hold.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", errs.ErrInvalid)
	}
	if strings.ContainsAny(name, ",\r\n") {
		return fmt.Errorf("%w: name must not contain commas or line breaks", errs.ErrInvalid)
	}
	return nil
}
