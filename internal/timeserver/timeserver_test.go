package timeserver

import (
	"testing"
	"time"

	"github.com/ece4402/trainset/internal/kernel"
)

func TestCountdownRepliesDone(t *testing.T) {
	k := kernel.New(nil)
	sch := kernel.NewScheduler(k)
	go sch.Run(time.Millisecond)
	defer sch.Stop()

	srv := New(sch, nil)
	const mb = 5

	if _, err := k.RegisterProcess(2, srv.Run(mb)); err != nil {
		t.Fatalf("register timer server: %v", err)
	}

	replyCh := make(chan string, 1)
	if _, err := k.RegisterProcess(1, func(p *kernel.Proc) {
		src := p.Bind(kernel.AnyMailbox)
		p.Send(mb, src, []byte("3"))
		buf := make([]byte, kernel.MsgMax)
		n, _, ok := p.Receive(src, buf)
		if !ok {
			replyCh <- ""
			return
		}
		replyCh <- string(buf[:n])
	}); err != nil {
		t.Fatalf("register requester: %v", err)
	}

	select {
	case got := <-replyCh:
		if got != DoneReply {
			t.Errorf("reply = %q, want %q", got, DoneReply)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer server never replied")
	}
}
