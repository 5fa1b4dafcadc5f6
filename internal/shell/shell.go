// Package shell is the numbered-menu console front end. It reads one line per
// prompt, dispatches to the account and journal services and prints results.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/teller/internal/errs"
	"github.com/tinoosan/teller/internal/service/account"
	"github.com/tinoosan/teller/internal/service/journal"
)

// Options tunes presentation.
type Options struct {
	// Currency is an ISO 4217 code used when displaying balances. Empty prints bare decimals.
	Currency string
	Logger   *slog.Logger
}

// Shell runs the interactive session.
type Shell struct {
	p        *prompter
	out      io.Writer
	accounts account.Service
	journal  journal.Service
	currency string
	log      *slog.Logger
}

func New(in io.Reader, out io.Writer, accounts account.Service, journal journal.Service, opts Options) *Shell {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Shell{
		p:        newPrompter(in, out),
		out:      out,
		accounts: accounts,
		journal:  journal,
		currency: strings.ToUpper(strings.TrimSpace(opts.Currency)),
		log:      logger,
	}
}

// Banner prints the startup banner.
func (s *Shell) Banner() {
	fmt.Fprintln(s.out, "===================================")
	fmt.Fprintln(s.out, " Welcome to the Enhanced Bank Management System!")
	fmt.Fprintln(s.out, "===================================")
	fmt.Fprintln(s.out)
}

// ReportLoad tells the user how loading the stored accounts went. A load
// failure is never fatal.
func (s *Shell) ReportLoad(err error) {
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrNotFound):
		fmt.Fprintln(s.out, "Accounts file not found. Starting with an empty account list.")
	default:
		fmt.Fprintf(s.out, "Error loading accounts: %v\n", err)
	}
}

// Run drives the main menu until the user exits, input ends or ctx is
// cancelled. The only error returned is a failed transaction log append.
func (s *Shell) Run(ctx context.Context) error {
	err := s.mainMenu(ctx)
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

func (s *Shell) mainMenu(ctx context.Context) error {
	for {
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, "Main Menu:")
		fmt.Fprintln(s.out, "1. Create Account")
		fmt.Fprintln(s.out, "2. Select Account")
		fmt.Fprintln(s.out, "3. List All Accounts")
		fmt.Fprintln(s.out, "4. Delete Account")
		fmt.Fprintln(s.out, "5. Apply Interest")
		fmt.Fprintln(s.out, "6. View Transaction History")
		fmt.Fprintln(s.out, "7. Account Overview")
		fmt.Fprintln(s.out, "8. Customize Welcome Message")
		fmt.Fprintln(s.out, "9. Help")
		fmt.Fprintln(s.out, "10. Exit Program")
		choice, err := s.p.line(ctx, "Enter your choice (1-10): ")
		if err != nil {
			return err
		}
		switch strings.TrimSpace(choice) {
		case "1":
			err = s.createAccount(ctx)
		case "2":
			err = s.selectAccount(ctx)
		case "3":
			s.listAccounts(ctx)
		case "4":
			err = s.deleteAccount(ctx)
		case "5":
			err = s.applyInterest(ctx)
		case "6":
			s.history(ctx)
		case "7":
			s.overview(ctx)
		case "8":
			err = s.customizeWelcome(ctx)
		case "9":
			s.help()
		case "10":
			fmt.Fprintln(s.out, "Thank you for using the Bank Management System. Goodbye!")
			return nil
		default:
			fmt.Fprintln(s.out, "Invalid option. Please try again.")
		}
		if err != nil {
			return err
		}
	}
}

func (s *Shell) accountMenu(ctx context.Context, name string) error {
	for {
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, "Options:")
		fmt.Fprintln(s.out, "1. Deposit")
		fmt.Fprintln(s.out, "2. Withdraw")
		fmt.Fprintln(s.out, "3. Check Balance")
		fmt.Fprintln(s.out, "4. Transfer Money")
		fmt.Fprintln(s.out, "5. Lock Account")
		fmt.Fprintln(s.out, "6. Unlock Account")
		fmt.Fprintln(s.out, "7. Exit")
		choice, err := s.p.line(ctx, "Enter your choice (1-7): ")
		if err != nil {
			return err
		}
		switch strings.TrimSpace(choice) {
		case "1":
			err = s.deposit(ctx, name)
		case "2":
			err = s.withdraw(ctx, name)
		case "3":
			s.checkBalance(ctx, name)
		case "4":
			err = s.transfer(ctx, name)
		case "5":
			s.setLocked(ctx, name, true)
		case "6":
			s.setLocked(ctx, name, false)
		case "7":
			fmt.Fprintln(s.out, "Exiting account menu...")
			return nil
		default:
			fmt.Fprintln(s.out, "Invalid option. Please try again.")
		}
		if err != nil {
			return err
		}
	}
}

func (s *Shell) createAccount(ctx context.Context) error {
	name, err := s.p.line(ctx, "Enter account holder's name: ")
	if err != nil {
		return err
	}
	acc, err := s.accounts.Create(ctx, name)
	switch {
	case err == nil, errors.Is(err, errs.ErrStorage):
		fmt.Fprintf(s.out, "\nAccount created successfully for %s with initial balance of %s.\n", acc.Name, s.money(acc.Balance))
		s.reportStorage(err)
	case errors.Is(err, errs.ErrDuplicateName):
		fmt.Fprintf(s.out, "An account for %s already exists.\n", name)
	default:
		fmt.Fprintf(s.out, "Could not create account: %v\n", err)
	}
	return nil
}

func (s *Shell) selectAccount(ctx context.Context) error {
	name, err := s.p.line(ctx, "Enter the account holder's name: ")
	if err != nil {
		return err
	}
	if _, err := s.accounts.Get(ctx, name); err != nil {
		fmt.Fprintln(s.out, "Account not found.")
		return nil
	}
	return s.accountMenu(ctx, name)
}

func (s *Shell) listAccounts(ctx context.Context) {
	fmt.Fprintln(s.out, "\nListing all accounts:")
	for i, a := range s.accounts.List(ctx) {
		fmt.Fprintf(s.out, "%d. %s - Balance: %s\n", i+1, a.Name, s.money(a.Balance))
	}
}

func (s *Shell) deleteAccount(ctx context.Context) error {
	name, err := s.p.line(ctx, "Enter the name of the account to delete: ")
	if err != nil {
		return err
	}
	_, err = s.accounts.Delete(ctx, name)
	switch {
	case err == nil, errors.Is(err, errs.ErrStorage):
		fmt.Fprintf(s.out, "Account for %s deleted successfully.\n", name)
		s.reportStorage(err)
	default:
		fmt.Fprintln(s.out, "Account not found.")
	}
	return nil
}

func (s *Shell) applyInterest(ctx context.Context) error {
	raw, err := s.p.line(ctx, "Enter the interest rate (in %): ")
	if err != nil {
		return err
	}
	rate, err := decimal.Parse(strings.TrimSpace(raw))
	if err != nil {
		fmt.Fprintln(s.out, "Invalid rate. Please enter a number.")
		return nil
	}
	_, err = s.journal.ApplyInterest(ctx, rate)
	if errors.Is(err, errs.ErrJournal) {
		return err
	}
	if err != nil && !errors.Is(err, errs.ErrStorage) {
		fmt.Fprintf(s.out, "Could not apply interest: %v\n", err)
		return nil
	}
	fmt.Fprintf(s.out, "Interest applied at a rate of %s%% to all accounts.\n", rate.String())
	s.reportStorage(err)
	return nil
}

func (s *Shell) history(ctx context.Context) {
	fmt.Fprintln(s.out, "\nTransaction History:")
	entries, err := s.journal.History(ctx)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		fmt.Fprintln(s.out, "No transaction history found.")
		return
	case err != nil:
		fmt.Fprintf(s.out, "Error reading transaction history: %v\n", err)
		return
	}
	for _, e := range entries {
		fmt.Fprintln(s.out, e.Line())
	}
}

func (s *Shell) overview(ctx context.Context) {
	ov, err := s.accounts.Overview(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "Could not compute overview: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "\nAccount Overview:")
	fmt.Fprintf(s.out, "Total number of accounts: %d\n", ov.Count)
	fmt.Fprintf(s.out, "Total balance across all accounts: %s\n", s.money(ov.Total))
}

// customizeWelcome echoes the message back. It is not stored anywhere.
func (s *Shell) customizeWelcome(ctx context.Context) error {
	msg, err := s.p.line(ctx, "Enter a new welcome message: ")
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Welcome message updated to: %s\n", msg)
	return nil
}

func (s *Shell) help() {
	fmt.Fprintln(s.out, "\nHelp Menu:")
	fmt.Fprintln(s.out, "1. Create Account: Create a new account with a zero balance.")
	fmt.Fprintln(s.out, "2. Select Account: Choose an existing account to perform actions.")
	fmt.Fprintln(s.out, "3. List All Accounts: View a list of all accounts with their balances.")
	fmt.Fprintln(s.out, "4. Delete Account: Remove an account from the system.")
	fmt.Fprintln(s.out, "5. Apply Interest: Apply interest to all account balances.")
	fmt.Fprintln(s.out, "6. View Transaction History: See a log of all past transactions.")
	fmt.Fprintln(s.out, "7. Account Overview: Count accounts and total their balances.")
	fmt.Fprintln(s.out, "8. Customize Welcome Message: Change the welcome message for the system.")
	fmt.Fprintln(s.out, "Lock/Unlock Account (inside Select Account): Block deposits, withdrawals and transfers until unlocked.")
	fmt.Fprintln(s.out, "Amount prompts: leave the line blank to cancel.")
}

func (s *Shell) deposit(ctx context.Context, name string) error {
	if !s.unlocked(ctx, name) {
		return nil
	}
	for {
		amt, ok, err := s.p.amount(ctx, "Enter amount to deposit: ", "Deposit")
		if err != nil || !ok {
			return err
		}
		acc, err := s.journal.Deposit(ctx, name, amt)
		if retry, fatal := s.outcome(err, "Deposit"); fatal != nil {
			return fatal
		} else if retry {
			continue
		}
		if err == nil || errors.Is(err, errs.ErrStorage) {
			fmt.Fprintf(s.out, "%s deposited successfully. New balance: %s\n", amt.String(), s.money(acc.Balance))
			s.reportStorage(err)
		}
		return nil
	}
}

func (s *Shell) withdraw(ctx context.Context, name string) error {
	if !s.unlocked(ctx, name) {
		return nil
	}
	for {
		amt, ok, err := s.p.amount(ctx, "Enter amount to withdraw: ", "Withdrawal")
		if err != nil || !ok {
			return err
		}
		acc, err := s.journal.Withdraw(ctx, name, amt)
		if retry, fatal := s.outcome(err, "Withdrawal"); fatal != nil {
			return fatal
		} else if retry {
			continue
		}
		if err == nil || errors.Is(err, errs.ErrStorage) {
			fmt.Fprintf(s.out, "%s withdrawn successfully. New balance: %s\n", amt.String(), s.money(acc.Balance))
			s.reportStorage(err)
		}
		return nil
	}
}

func (s *Shell) transfer(ctx context.Context, name string) error {
	if !s.unlocked(ctx, name) {
		return nil
	}
	to, err := s.p.line(ctx, "Enter the name of the account holder to transfer money to: ")
	if err != nil {
		return err
	}
	if _, err := s.accounts.Get(ctx, to); err != nil {
		fmt.Fprintln(s.out, "Recipient account not found.")
		return nil
	}
	for {
		amt, ok, err := s.p.amount(ctx, fmt.Sprintf("Enter amount to transfer to %s: ", to), "Transfer")
		if err != nil || !ok {
			return err
		}
		res, err := s.journal.Transfer(ctx, name, to, amt)
		if retry, fatal := s.outcome(err, "Transfer"); fatal != nil {
			return fatal
		} else if retry {
			continue
		}
		if err == nil || errors.Is(err, errs.ErrStorage) {
			fmt.Fprintf(s.out, "%s transferred successfully to %s. New balance: %s\n", amt.String(), to, s.money(res.From.Balance))
			s.reportStorage(err)
		}
		return nil
	}
}

func (s *Shell) checkBalance(ctx context.Context, name string) {
	acc, err := s.accounts.Get(ctx, name)
	if err != nil {
		fmt.Fprintln(s.out, "Account not found.")
		return
	}
	fmt.Fprintf(s.out, "\nThe current balance for %s is %s.\n", acc.Name, s.money(acc.Balance))
}

func (s *Shell) setLocked(ctx context.Context, name string, locked bool) {
	var err error
	if locked {
		_, err = s.accounts.Lock(ctx, name)
	} else {
		_, err = s.accounts.Unlock(ctx, name)
	}
	if err != nil {
		fmt.Fprintln(s.out, "Account not found.")
		return
	}
	if locked {
		fmt.Fprintf(s.out, "Account for %s has been locked.\n", name)
	} else {
		fmt.Fprintf(s.out, "Account for %s has been unlocked.\n", name)
	}
}

// unlocked prints the lock message and returns false for a locked account.
func (s *Shell) unlocked(ctx context.Context, name string) bool {
	acc, err := s.accounts.Get(ctx, name)
	if err != nil {
		fmt.Fprintln(s.out, "Account not found.")
		return false
	}
	if acc.Locked {
		fmt.Fprintln(s.out, "This account is locked. Unlock it to proceed.")
		return false
	}
	return true
}

// outcome prints the message for a rejected operation and says whether the
// amount prompt should be repeated. Journal failures are passed back as fatal.
func (s *Shell) outcome(err error, kind string) (retry bool, fatal error) {
	switch {
	case err == nil, errors.Is(err, errs.ErrStorage):
		return false, nil
	case errors.Is(err, errs.ErrJournal):
		fmt.Fprintf(s.out, "Error writing transaction log: %v\n", err)
		return false, err
	case errors.Is(err, errs.ErrInvalidAmount):
		fmt.Fprintf(s.out, "%s amount must be positive. Try again.\n", kind)
		return true, nil
	case errors.Is(err, errs.ErrInsufficientFunds):
		fmt.Fprintln(s.out, "Insufficient balance. Try a smaller amount.")
		return true, nil
	case errors.Is(err, errs.ErrLocked):
		fmt.Fprintln(s.out, "This account is locked. Unlock it to proceed.")
	case errors.Is(err, errs.ErrNotFound):
		fmt.Fprintln(s.out, "Account not found.")
	default:
		fmt.Fprintf(s.out, "Operation failed: %v\n", err)
	}
	return false, nil
}

// reportStorage prints a non-fatal save failure. Memory and disk now differ.
func (s *Shell) reportStorage(err error) {
	if err == nil {
		return
	}
	s.log.Warn("accounts not saved; in-memory state diverges from storage", "err", err)
	fmt.Fprintf(s.out, "Error saving accounts: %v\n", err)
}

// money renders d in the configured currency, falling back to the bare decimal.
func (s *Shell) money(d decimal.Decimal) string {
	if s.currency == "" {
		return d.String()
	}
	a, err := money.ParseAmount(s.currency, d.String())
	if err != nil {
		return d.String()
	}
	return a.String()
}
