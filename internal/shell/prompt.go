package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/govalues/decimal"

	"github.com/tinoosan/teller/internal/ledger"
)

// errQuit ends the session without an error; returned when input runs out
// or the session context is cancelled.
var errQuit = errors.New("quit")

type readResult struct {
	text string
	err  error
}

// prompter reads one line per prompt. Input is scanned on a separate
// goroutine so a pending read can be abandoned when ctx is cancelled.
type prompter struct {
	in    io.Reader
	out   io.Writer
	once  sync.Once
	lines chan readResult
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, out: out, lines: make(chan readResult)}
}

func (p *prompter) scan() {
	sc := bufio.NewScanner(p.in)
	for sc.Scan() {
		p.lines <- readResult{text: sc.Text()}
	}
	err := sc.Err()
	if err == nil {
		err = errQuit
	}
	for {
		p.lines <- readResult{err: err}
	}
}

// line prints label and returns the next input line without its newline.
func (p *prompter) line(ctx context.Context, label string) (string, error) {
	if ctx.Err() != nil {
		return "", errQuit
	}
	p.once.Do(func() { go p.scan() })
	fmt.Fprint(p.out, label)
	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", errQuit
	case r := <-p.lines:
		if r.err != nil {
			fmt.Fprintln(p.out)
			return "", r.err
		}
		return strings.TrimRight(r.text, "\r"), nil
	}
}

// amount re-prompts until a positive decimal is entered. A blank line cancels
// and returns ok=false. kind is the capitalised noun used in messages.
func (p *prompter) amount(ctx context.Context, label, kind string) (d decimal.Decimal, ok bool, err error) {
	for {
		raw, err := p.line(ctx, label)
		if err != nil {
			return decimal.Decimal{}, false, err
		}
		if strings.TrimSpace(raw) == "" {
			fmt.Fprintln(p.out, "Cancelled.")
			return decimal.Decimal{}, false, nil
		}
		d, err := ledger.ParseAmount(raw)
		if err != nil {
			fmt.Fprintln(p.out, "Invalid amount. Please enter a number.")
			continue
		}
		if !d.IsPos() {
			fmt.Fprintf(p.out, "%s amount must be positive. Try again.\n", kind)
			continue
		}
		return d, true, nil
	}
}
