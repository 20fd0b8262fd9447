package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/infinite-echoes/echoes/pkg/domain"
)

// ContentRenderer transforms a response before it is printed.
// It keeps terminal rendering (markdown to ANSI) out of this package.
type ContentRenderer func(string) (string, error)

// REPL reads player lines and plays them as turns of one session.
// Ctrl+C during a turn cancels that turn only; at the prompt it quits.
type REPL struct {
	runner    *Runner
	sessionID string
	in        io.Reader
	out       io.Writer
	renderer  ContentRenderer
	prompt    string
	signals   bool
}

// REPLOption configures the REPL.
type REPLOption func(*REPL)

// WithRenderer configures the content renderer.
func WithRenderer(renderer ContentRenderer) REPLOption {
	return func(r *REPL) {
		r.renderer = renderer
	}
}

// WithPrompt replaces the default "> " prompt. An empty prompt prints nothing.
func WithPrompt(prompt string) REPLOption {
	return func(r *REPL) {
		r.prompt = prompt
	}
}

// WithSignals makes the REPL listen for SIGINT and SIGTERM.
func WithSignals(enabled bool) REPLOption {
	return func(r *REPL) {
		r.signals = enabled
	}
}

// NewREPL creates a REPL bound to one session.
func NewREPL(runner *Runner, sessionID string, in io.Reader, out io.Writer, opts ...REPLOption) *REPL {
	r := &REPL{
		runner:    runner,
		sessionID: sessionID,
		in:        in,
		out:       out,
		prompt:    "> ",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type line struct {
	text string
	err  error
}

// Loop runs until EOF, a quit command, an interrupt at the prompt or ctx ends.
func (r *REPL) Loop(ctx context.Context) error {
	interrupted := context.Background()
	var sm *SignalManager
	if r.signals {
		sm = NewSignalManager()
		defer sm.Stop()
		interrupted = sm.Context()
	}

	done := make(chan struct{})
	defer close(done)
	lines := make(chan line)
	go r.pump(done, lines)

	for {
		fmt.Fprint(r.out, r.prompt)

		var in line
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-interrupted.Done():
			fmt.Fprintln(r.out)
			return nil
		case in = <-lines:
		}

		if in.err != nil {
			if sm != nil {
				sm.CheckRace()
			}
			if errors.Is(in.err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", in.err)
		}

		text := strings.TrimSpace(in.text)
		switch text {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		turnCtx, cancel := context.WithCancel(ctx)
		stop := context.AfterFunc(interrupted, cancel)
		res, err := r.runner.Play(turnCtx, r.sessionID, text)
		stop()
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if sm != nil && interrupted.Err() != nil {
				fmt.Fprintln(r.out, "(turn interrupted)")
				sm.Reset()
				interrupted = sm.Context()
				continue
			}
			fmt.Fprintf(r.out, "error: %s\n", describe(err))
			continue
		}
		r.print(res.Response)
	}
}

func (r *REPL) pump(done <-chan struct{}, lines chan<- line) {
	reader := bufio.NewReader(r.in)
	for {
		text, err := reader.ReadString('\n')
		if err != nil && text != "" && errors.Is(err, io.EOF) {
			// Last line without a trailing newline.
			err = nil
		}
		select {
		case lines <- line{text: text, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (r *REPL) print(response string) {
	output := response
	if r.renderer != nil {
		if rendered, err := r.renderer(response); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(r.out, strings.TrimSpace(output))
}

func describe(err error) string {
	var runErr *domain.RunError
	if errors.As(err, &runErr) && runErr.NodeID != "" {
		cause := runErr.Err
		if cause == nil {
			cause = runErr.Reason
		}
		return fmt.Sprintf("the turn failed at %q: %v", runErr.NodeID, cause)
	}
	return err.Error()
}
