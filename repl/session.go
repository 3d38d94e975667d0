// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/chrisql/storage"
)

const (
	// Welcome is printed when a session starts.
	Welcome = "welcome to chrisql!"
	// Instructions follows the welcome line.
	Instructions = "type your SQL commands into the cli, or type 'exit' to quit."
	// Prompt is printed before every line is read.
	Prompt = "db> "
)

// Session runs the interactive loop against a record store.
type Session struct {
	store  storage.RecordStore
	logger *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewSession creates a session bound to store.
func NewSession(store storage.RecordStore, opts ...Option) *Session {
	s := &Session{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run prints the banner and processes lines from in until exit or end of
// input, writing prompts and outcomes to out. End of input ends the session
// the same way exit does. Lines may be of any length.
//
// Canceling ctx ends the session even while Run is blocked waiting for a
// line, returning ctx's error. The pending read is abandoned and its result
// discarded.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	w := bufio.NewWriter(out)
	defer w.Flush()

	fmt.Fprintln(w, Welcome)
	fmt.Fprintln(w, Instructions)

	reader := bufio.NewReader(in)
	// Buffered so an abandoned read never blocks its goroutine on send.
	results := make(chan readResult, 1)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(w, Prompt)
		// The prompt must be visible before blocking on input.
		if err := w.Flush(); err != nil {
			return fmt.Errorf("write prompt: %w", err)
		}

		go func() {
			line, err := reader.ReadString('\n')
			results <- readResult{line: line, err: err}
		}()

		var res readResult
		select {
		case <-ctx.Done():
			s.logger.Debug("session canceled while waiting for input")
			return ctx.Err()
		case res = <-results:
		}

		if res.err != nil && !errors.Is(res.err, io.EOF) {
			return fmt.Errorf("read input: %w", res.err)
		}
		if res.err != nil && res.line == "" {
			s.logger.Debug("input closed, ending session")
			fmt.Fprintln(w)
			fmt.Fprintln(w, Execute(Command{Kind: KindExit}, s.store).Output)
			return w.Flush()
		}

		// A final line without a terminator is still a line; the next read
		// reports end of input again.
		cmd := Parse(res.line)
		s.logger.Debug("executing command", "kind", cmd.Kind, "bytes", len(cmd.Input))

		outcome := Execute(cmd, s.store)
		fmt.Fprintln(w, outcome.Output)
		if outcome.Done {
			return w.Flush()
		}
	}
}

type readResult struct {
	line string
	err  error
}
