package serial

import (
	"os"

	"golang.org/x/term"
)

// Console is an interactive Writer backed by the process's own controlling
// terminal, put into raw mode so the input server — not the OS line
// discipline — owns Enter/Backspace handling. Grounded on x/term's own
// raw-mode example usage (MakeRaw + Restore).
type Console struct {
	fd       int
	oldState *term.State
}

// NewConsole puts stdin into raw mode and returns a Console that writes to
// stdout. Call Restore when done.
func NewConsole() (*Console, error) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return &Console{fd: fd, oldState: oldState}, nil
}

// WriteByte implements Writer.
func (c *Console) WriteByte(b byte) error {
	_, err := os.Stdout.Write([]byte{b})
	return err
}

// Restore returns the terminal to its original mode.
func (c *Console) Restore() error {
	return term.Restore(c.fd, c.oldState)
}

// ReadLoop reads raw bytes from stdin and feeds each one to feed, until
// stdin is closed or an error occurs. Intended to run in its own
// goroutine, the host-side analogue of the original's UART receive ISR.
func ReadLoop(feed func(byte)) error {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			feed(buf[0])
		}
		if err != nil {
			return err
		}
	}
}
