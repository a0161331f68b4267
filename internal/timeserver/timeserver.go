// Package timeserver implements the well-known timer process of spec.md
// §4.F: bind a mailbox, accept an ASCII decimal centisecond count, and
// reply once that many ticks have elapsed.
package timeserver

import (
	"log/slog"
	"strconv"

	"github.com/ece4402/trainset/internal/kernel"
)

// DoneReply is sent back to the requester once a countdown reaches zero.
const DoneReply = " DONE "

// Server runs one timer process bound to mb (kernel.AnyMailbox picks a
// free one). It accepts at most one outstanding countdown at a time: a
// request that arrives while another is running waits in the mailbox's
// FIFO like any other message.
type Server struct {
	log *slog.Logger
	sch *kernel.Scheduler
}

// New builds a timer server that uses sch to re-schedule itself once per
// tick while counting down.
func New(sch *kernel.Scheduler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{log: log, sch: sch}
}

// Run is the process body: pass it to kernel.Kernel.RegisterProcess.
func (s *Server) Run(mb int) func(*kernel.Proc) {
	return func(p *kernel.Proc) {
		bound := mb
		if bound == kernel.AnyMailbox {
			bound = p.Bind(kernel.AnyMailbox)
		} else if p.Bind(mb) != mb {
			s.log.Error("timeserver: bind failed", "mailbox", mb)
			return
		}

		buf := make([]byte, kernel.MsgMax)
		for {
			n, from, ok := p.Receive(bound, buf)
			if !ok {
				s.log.Error("timeserver: receive failed", "mailbox", bound)
				return
			}

			count, err := strconv.Atoi(string(buf[:n]))
			if err != nil || count < 0 {
				s.log.Warn("timeserver: malformed countdown request", "payload", string(buf[:n]))
				continue
			}

			s.sch.NotifyEachTick(p.ID())
			for count > 0 {
				p.Block()
				count--
			}
			s.sch.StopNotify(p.ID())

			p.Send(from, bound, []byte(DoneReply))
		}
	}
}
