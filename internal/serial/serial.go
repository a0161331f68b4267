package serial

import (
	"log/slog"

	"github.com/ece4402/trainset/internal/kernel"
)

// ASCII control bytes recognized by the input server (spec.md §4.G; byte
// values from `original_source/Utilities.c`).
const (
	Enter     = 0x0d
	Backspace = 0x08
	Esc       = 0x1b
)

const lineMax = kernel.MsgMax

// Link bundles one physical serial link's two servers and the ring that
// couples them to the byte source feeding ReceiveByte.
type Link struct {
	log *slog.Logger
	sch *kernel.Scheduler

	in byteRing

	// out is where the output server writes drained bytes; a real
	// transport backend (e.g. an x/term console, or a plain io.Writer)
	// plugs in here.
	out Writer
}

// Writer is the transmit side an output server drains into — the transmit
// ring in spec.md's phrasing, abstracted so tests can use an in-memory
// sink and production can use a terminal or serial port.
type Writer interface {
	WriteByte(b byte) error
}

// NewLink builds a serial link. out receives every byte the output server
// sends.
func NewLink(sch *kernel.Scheduler, out Writer, log *slog.Logger) *Link {
	if log == nil {
		log = slog.Default()
	}
	return &Link{sch: sch, out: out, log: log}
}

// ReceiveByte is the ISR-equivalent entry point: the byte source (a real
// terminal reader, a loopback pipe, a test driver) calls this for every
// byte received on the wire. If the input server is blocked waiting on an
// empty ring, it is woken via the scheduler's pending-reason mechanism —
// mirroring spec.md §4.G's ISR contract exactly: "it enqueues one byte on
// the ring, and if the matching server is blocked, raises the pendable
// interrupt."
func (l *Link) ReceiveByte(b byte, inputServerPID kernel.PID) {
	l.in.push(b)
	l.sch.WakeBlocked(inputServerPID)
}

// OutputServer is the process body for spec.md §4.G's output server: loop
// on receive, drain the payload to the transmit sink.
func (l *Link) OutputServer(mb int) func(*kernel.Proc) {
	return func(p *kernel.Proc) {
		bound := l.bind(p, mb)
		buf := make([]byte, kernel.MsgMax)
		for {
			n, _, ok := p.Receive(bound, buf)
			if !ok {
				l.log.Error("serial: output server receive failed", "mailbox", bound)
				return
			}
			for i := 0; i < n; i++ {
				if err := l.out.WriteByte(buf[i]); err != nil {
					l.log.Warn("serial: write failed", "err", err)
					break
				}
			}
		}
	}
}

// InputServer is the process body for spec.md §4.G's input server. It
// writes no prompt; it assembles one line at a time from the ring, recognizing
// Enter (deliver the line), Backspace (delete one character, echoing the
// deletion), and Esc (discard the line silently — the supplemented
// behavior recovered from `original_source/UART.c`'s cursor-reset path).
// Every other byte is upper-cased, appended, and echoed.
func (l *Link) InputServer(mb int, lineDest int) func(*kernel.Proc) {
	return func(p *kernel.Proc) {
		bound := l.bind(p, mb)
		line := make([]byte, 0, lineMax)

		for {
			for l.in.empty() {
				p.Block()
			}

			b, ok := l.in.pop()
			if !ok {
				continue
			}

			switch b {
			case Enter:
				p.Send(lineDest, bound, line)
				line = line[:0]
			case Backspace:
				if len(line) > 0 {
					line = line[:len(line)-1]
					l.echo(Backspace)
				}
			case Esc:
				line = line[:0]
			default:
				if len(line) < lineMax {
					c := upper(b)
					line = append(line, c)
					l.echo(c)
				}
			}
		}
	}
}

func (l *Link) bind(p *kernel.Proc, mb int) int {
	if mb == kernel.AnyMailbox {
		return p.Bind(kernel.AnyMailbox)
	}
	bound := p.Bind(mb)
	if bound != mb {
		l.log.Error("serial: bind failed", "mailbox", mb)
	}
	return bound
}

// echo writes a single local-echo byte straight to the link's transmit
// sink, bypassing the kernel's mailbox path — the same shortcut a real
// terminal's line discipline takes, and outside the layered
// application/data-link/physical stack this spec's data-flow diagram
// describes (spec.md §2).
func (l *Link) echo(b byte) {
	if err := l.out.WriteByte(b); err != nil {
		l.log.Warn("serial: echo failed", "err", err)
	}
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
