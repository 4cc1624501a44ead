package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// errQuit ends the REPL.
var errQuit = errors.New("quit")

// execIface is the command surface the REPL drives. App satisfies it; tests
// provide a stub.
type execIface interface {
	Exec(ctx context.Context, cmd string, args []string) error
}

// runREPL reads one command per line from reader and dispatches it. Handler
// errors are printed and the loop continues. It returns on EOF, on "exit" or
// "quit", or when ctx is cancelled.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "udin %s> ", statusFn())

		line, readErr := reader.ReadString('\n')
		if parts := strings.Fields(line); len(parts) > 0 {
			err := a.Exec(ctx, parts[0], parts[1:])
			if errors.Is(err, errQuit) {
				fmt.Fprintln(w, "Bye!")
				return
			}
			if err != nil {
				fmt.Fprintln(w, "Error:", err)
			}
		}
		if readErr != nil {
			fmt.Fprintln(w)
			return
		}
	}
}
