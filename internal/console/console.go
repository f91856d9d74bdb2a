// Package console runs the operator command loop on stdin.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ShutdownToken ends the loop when typed on its own line.
const ShutdownToken = "Q"

var ErrInputClosed = errors.New("console input closed")

// Run reads commands from in until the shutdown token is entered, in is
// exhausted (ErrInputClosed) or ctx is done (ctx.Err()). Every other line
// prints "Unexpected input" to out.
func Run(ctx context.Context, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInputClosed, err)
			}
			return ErrInputClosed
		case line := <-lines:
			if strings.EqualFold(strings.TrimSpace(line), ShutdownToken) {
				return nil
			}
			fmt.Fprintln(out, "Unexpected input")
		}
	}
}
