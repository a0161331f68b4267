package datalink

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ece4402/trainset/internal/kernel"
	"github.com/ece4402/trainset/internal/physical"
)

// inboundQueueSize bounds the plain FIFO of decoded frames a Link's
// physical-layer feed deposits for the inbound process to drain — the
// data-link analogue of internal/serial's byteRing, for the same reason:
// an external byte source can't call into the kernel as a process it
// doesn't own.
const inboundQueueSize = 64

// Counters receives retransmit/reject events; implemented by
// internal/metrics.Counters. Kept as a narrow interface so this package
// doesn't depend on how metrics are collected.
type Counters interface {
	IncDataLinkRetransmits()
	IncDataLinkNacks()
}

// Link runs the sliding-window state machine for one physical link
// (spec.md §4.H): an outbound process that drains application messages
// and frames them with the current Ns, and an inbound process that
// applies the accept/reject/ACK/NACK rules to frames arriving from the
// physical layer.
type Link struct {
	log *slog.Logger
	sch *kernel.Scheduler
	out io.Writer

	mu     sync.Mutex
	ns, nr uint8
	replay [WindowSize]*Frame

	// retransmitTimer, if non-nil, re-sends the oldest unacked replay
	// frame after a fixed delay. Disabled by default (spec.md §4.H: "the
	// specification accommodates it but does not mandate a specific
	// duration") — see SPEC_FULL.md's Open Question resolution.
	retransmitAfter time.Duration
	retransmitTimer *time.Timer

	inbound   []Frame
	inboundMu sync.Mutex

	counters Counters
}

// SetCounters wires an optional retransmit/reject event sink into the link.
func (l *Link) SetCounters(c Counters) {
	l.mu.Lock()
	l.counters = c
	l.mu.Unlock()
}

// NewLink builds a Link that frames onto out. retransmitAfter of zero
// disables the optional retransmit timer.
func NewLink(sch *kernel.Scheduler, out io.Writer, retransmitAfter time.Duration, log *slog.Logger) *Link {
	if log == nil {
		log = slog.Default()
	}
	return &Link{sch: sch, out: out, retransmitAfter: retransmitAfter, log: log}
}

// FeedFrame is the ISR-equivalent entry point for an already-decoded
// inbound frame (a physical.Reader having validated its checksum). If the
// inbound process is blocked, it is woken via the scheduler.
func (l *Link) FeedFrame(f Frame, inboundPID kernel.PID) {
	l.inboundMu.Lock()
	full := len(l.inbound) >= inboundQueueSize
	if !full {
		l.inbound = append(l.inbound, f)
	}
	l.inboundMu.Unlock()
	if full {
		l.log.Warn("datalink: inbound queue full, frame dropped")
		return
	}
	l.sch.WakeBlocked(inboundPID)
}

func (l *Link) popInbound() (Frame, bool) {
	l.inboundMu.Lock()
	defer l.inboundMu.Unlock()
	if len(l.inbound) == 0 {
		return Frame{}, false
	}
	f := l.inbound[0]
	l.inbound = l.inbound[1:]
	return f, true
}

func (l *Link) inboundEmpty() bool {
	l.inboundMu.Lock()
	defer l.inboundMu.Unlock()
	return len(l.inbound) == 0
}

func (l *Link) transmit(f Frame) {
	l.out.Write(physical.Encode(f.Marshal()))
}

// OutboundServer is the process body draining application messages from
// mb and framing/sending them in sequence (spec.md §4.H "On send from
// application").
func (l *Link) OutboundServer(mb int) func(*kernel.Proc) {
	return func(p *kernel.Proc) {
		bound := bindMailbox(p, mb, l.log)
		buf := make([]byte, kernel.MsgMax)
		for {
			n, _, ok := p.Receive(bound, buf)
			if !ok {
				l.log.Error("datalink: outbound receive failed", "mailbox", bound)
				return
			}
			msg := UnmarshalAppMessage(buf[:n])
			l.sendData(msg)
		}
	}
}

func (l *Link) sendData(msg AppMessage) {
	l.mu.Lock()
	f := Frame{Ns: l.ns, Nr: l.nr, Type: Data, Msg: msg}
	l.replay[l.ns%WindowSize] = &f
	l.ns = (l.ns + 1) % WindowSize
	l.armRetransmit()
	l.mu.Unlock()

	l.transmit(f)
}

// armRetransmit starts (or restarts) the optional retransmit timer for
// the oldest outstanding frame. Caller holds mu. No-op when disabled.
func (l *Link) armRetransmit() {
	if l.retransmitAfter <= 0 {
		return
	}
	if l.retransmitTimer != nil {
		l.retransmitTimer.Stop()
	}
	l.retransmitTimer = time.AfterFunc(l.retransmitAfter, l.retransmitOldest)
}

func (l *Link) retransmitOldest() {
	l.mu.Lock()
	var oldest *Frame
	for i := 0; i < WindowSize; i++ {
		f := l.replay[i]
		if f == nil {
			continue
		}
		if oldest == nil || seqBefore(f.Ns, oldest.Ns) {
			oldest = f
		}
	}
	counters := l.counters
	l.mu.Unlock()
	if oldest != nil {
		if counters != nil {
			counters.IncDataLinkRetransmits()
		}
		l.transmit(*oldest)
	}
}

func seqBefore(a, b uint8) bool {
	return (int(a)-int(b)+WindowSize)%WindowSize != 0 && (int(b)-int(a)+WindowSize)%WindowSize < WindowSize/2
}

// InboundServer is the process body applying spec.md §4.H's
// accept/reject/ACK/NACK rules to frames fed via FeedFrame, forwarding
// accepted application messages to upMB.
func (l *Link) InboundServer(srcMB int, upMB int) func(*kernel.Proc) {
	return func(p *kernel.Proc) {
		bound := bindMailbox(p, srcMB, l.log)
		for {
			for l.inboundEmpty() {
				p.Block()
			}
			f, ok := l.popInbound()
			if !ok {
				continue
			}
			l.handleInbound(p, bound, upMB, f)
		}
	}
}

func (l *Link) handleInbound(p *kernel.Proc, bound, upMB int, f Frame) {
	switch f.Type {
	case Data:
		l.mu.Lock()
		accept := f.Ns == l.nr
		if accept {
			l.nr = (l.nr + 1) % WindowSize
		}
		nr := l.nr
		l.mu.Unlock()

		if accept {
			l.transmit(Frame{Ns: l.ns, Nr: nr, Type: Ack})
			p.Send(upMB, bound, f.Msg.Marshal())
		} else {
			if l.counters != nil {
				l.counters.IncDataLinkNacks()
			}
			l.transmit(Frame{Ns: l.ns, Nr: nr, Type: Nack})
		}

	case Ack:
		l.mu.Lock()
		for i := 0; i < WindowSize; i++ {
			if saved := l.replay[i]; saved != nil && seqBefore(saved.Ns, f.Nr) {
				l.replay[i] = nil
			}
		}
		if l.retransmitTimer != nil {
			l.retransmitTimer.Stop()
		}
		l.mu.Unlock()

	case Nack:
		l.mu.Lock()
		var toResend []Frame
		for seq := f.Nr; seq != l.ns; seq = (seq + 1) % WindowSize {
			if saved := l.replay[seq%WindowSize]; saved != nil {
				toResend = append(toResend, *saved)
			}
		}
		l.mu.Unlock()
		for _, rf := range toResend {
			l.transmit(rf)
		}
	}
}

func bindMailbox(p *kernel.Proc, mb int, log *slog.Logger) int {
	if mb == kernel.AnyMailbox {
		return p.Bind(kernel.AnyMailbox)
	}
	bound := p.Bind(mb)
	if bound != mb {
		log.Error("datalink: bind failed", "mailbox", mb)
	}
	return bound
}
