package repl

import (
	"fmt"
	"strings"

	"github.com/poiesic/chrisql/storage"
)

// Kind identifies what a command asks the loop to do.
type Kind int

const (
	// KindEcho echoes the input back to the user.
	KindEcho Kind = iota
	// KindExit ends the session.
	KindExit
)

func (k Kind) String() string {
	switch k {
	case KindEcho:
		return "echo"
	case KindExit:
		return "exit"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Command is one parsed line of input.
type Command struct {
	Kind  Kind
	Input string
}

// Outcome is the result of executing a Command.
type Outcome struct {
	// Output is printed followed by a newline.
	Output string
	// Done ends the session after Output is printed.
	Done bool
}

// Parse turns a raw input line into a Command.
// Surrounding whitespace, including the line terminator, is removed first.
func Parse(line string) Command {
	input := strings.TrimSpace(line)
	if strings.EqualFold(input, "exit") {
		return Command{Kind: KindExit, Input: input}
	}
	return Command{Kind: KindEcho, Input: input}
}

// Execute runs cmd. Statement execution against the record store is not
// implemented yet, so the store is accepted but never touched.
func Execute(cmd Command, _ storage.RecordStore) Outcome {
	switch cmd.Kind {
	case KindExit:
		return Outcome{Output: "goodbye!", Done: true}
	default:
		return Outcome{Output: "you entered: " + cmd.Input}
	}
}
