// Package confirm implements the yes/no prompt shown before completing or
// deleting a task.
//
// A Modal suspends the caller until a front-end resolves the request. When no
// front-end is attached it falls back to a blocking line prompt.
package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// Request is a pending question handed to a front-end.
type Request struct {
	Message string
	reply   chan bool
}

// Resolve answers the request. Only the first answer counts.
func (r Request) Resolve(ok bool) {
	select {
	case r.reply <- ok:
	default:
	}
}

// Presenter displays a request; it must not block.
type Presenter func(Request)

// Modal is a Confirmer rendered by whichever front-end is attached.
type Modal struct {
	// turn serializes prompts so that at most one is outstanding.
	turn sync.Mutex

	mu       sync.Mutex
	present  Presenter
	fallback Confirmer
}

// NewModal returns a Modal that uses fallback while nothing is attached.
func NewModal(fallback Confirmer) *Modal {
	return &Modal{fallback: fallback}
}

// Attach routes future prompts to present.
func (m *Modal) Attach(present Presenter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.present = present
}

// Detach restores the fallback prompt.
func (m *Modal) Detach() {
	m.Attach(nil)
}

// Confirm blocks until the request is resolved or ctx is done. A cancelled
// prompt counts as a refusal.
func (m *Modal) Confirm(ctx context.Context, message string) (bool, error) {
	m.turn.Lock()
	defer m.turn.Unlock()

	m.mu.Lock()
	present := m.present
	m.mu.Unlock()

	if present == nil {
		if m.fallback == nil {
			return false, fmt.Errorf("no confirmation prompt available")
		}
		return m.fallback.Confirm(ctx, message)
	}

	req := Request{Message: message, reply: make(chan bool, 1)}
	present(req)

	select {
	case ok := <-req.reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Line asks on a text stream and waits for a y/N answer.
type Line struct {
	in  *bufio.Reader
	out io.Writer

	mu sync.Mutex
	// pending holds a read abandoned by a cancelled prompt; the next prompt
	// consumes its answer instead of racing it on the reader.
	pending chan answer
}

type answer struct {
	line string
	err  error
}

// NewLine prompts on out and reads answers from in.
func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{in: bufio.NewReader(in), out: out}
}

// Confirm prints message and reads one answer line. Anything other than
// y/yes is a refusal, including end of input.
func (l *Line) Confirm(ctx context.Context, message string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := fmt.Fprintf(l.out, "%s [y/N]: ", message); err != nil {
		return false, err
	}

	if l.pending == nil {
		l.pending = make(chan answer, 1)
		go func(done chan<- answer) {
			line, err := l.in.ReadString('\n')
			done <- answer{line: line, err: err}
		}(l.pending)
	}

	select {
	case a := <-l.pending:
		l.pending = nil
		if a.err != nil && a.err != io.EOF {
			return false, fmt.Errorf("read answer: %w", a.err)
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Always answers every prompt with the same value, for --yes style flags.
type Always bool

func (a Always) Confirm(context.Context, string) (bool, error) {
	return bool(a), nil
}

// Interactive reports whether f is attached to a terminal.
func Interactive(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ForTerminal picks the line prompt on a terminal and refuses otherwise,
// since an unattended process has nobody to answer.
func ForTerminal(in *os.File, out io.Writer) Confirmer {
	if Interactive(in) {
		return NewLine(in, out)
	}
	return Always(false)
}
