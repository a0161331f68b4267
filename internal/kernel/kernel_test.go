package kernel

import (
	"testing"
	"time"
)

const testTimeout = 2 * time.Second

// TestSendReceiveRendezvous is scenario S1: a receiver blocks first, then a
// sender delivers directly into its waiting buffer with no slot allocated.
func TestSendReceiveRendezvous(t *testing.T) {
	k := New(nil)
	dstCh := make(chan int, 1)
	type result struct {
		msg  string
		from int
		ok   bool
	}
	resultCh := make(chan result, 1)

	if _, err := k.RegisterProcess(1, func(p *Proc) {
		mb := p.Bind(AnyMailbox)
		dstCh <- mb
		buf := make([]byte, MsgMax)
		n, from, ok := p.Receive(mb, buf)
		resultCh <- result{msg: string(buf[:n]), from: from, ok: ok}
	}); err != nil {
		t.Fatalf("register receiver: %v", err)
	}

	var dst int
	select {
	case dst = <-dstCh:
	case <-time.After(testTimeout):
		t.Fatal("receiver never bound its mailbox")
	}

	sendResult := make(chan int, 1)
	if _, err := k.RegisterProcess(1, func(p *Proc) {
		src := p.Bind(AnyMailbox)
		sendResult <- p.Send(dst, src, []byte("hello"))
	}); err != nil {
		t.Fatalf("register sender: %v", err)
	}

	select {
	case got := <-sendResult:
		if got != Success {
			t.Errorf("Send = %d, want Success", got)
		}
	case <-time.After(testTimeout):
		t.Fatal("sender never completed")
	}

	select {
	case r := <-resultCh:
		if !r.ok {
			t.Fatal("Receive reported failure")
		}
		if r.msg != "hello" {
			t.Errorf("received message = %q, want %q", r.msg, "hello")
		}
	case <-time.After(testTimeout):
		t.Fatal("receiver never woke up")
	}
}

// TestPriorityPromotionPreemptsImmediately is scenario S2: a low-priority
// sender wakes a higher-priority blocked receiver, which must become
// current as part of the same Send trap, before the sender's next call.
func TestPriorityPromotionPreemptsImmediately(t *testing.T) {
	k := New(nil)
	dstCh := make(chan int, 1)
	order := make(chan string, 2)

	if _, err := k.RegisterProcess(HighPriority, func(p *Proc) {
		mb := p.Bind(AnyMailbox)
		dstCh <- mb
		buf := make([]byte, MsgMax)
		p.Receive(mb, buf)
		order <- "high"
	}); err != nil {
		t.Fatalf("register high-priority receiver: %v", err)
	}

	dst := <-dstCh

	if _, err := k.RegisterProcess(LowPriority, func(p *Proc) {
		src := p.Bind(AnyMailbox)
		p.Send(dst, src, []byte("go"))
		order <- "low"
	}); err != nil {
		t.Fatalf("register low-priority sender: %v", err)
	}

	var seen []string
	for i := 0; i < 2; i++ {
		select {
		case s := <-order:
			seen = append(seen, s)
		case <-time.After(testTimeout):
			t.Fatalf("only observed %v before timeout", seen)
		}
	}

	if seen[0] != "high" {
		t.Errorf("completion order = %v, want high-priority process to finish first", seen)
	}
}

func TestGetIDReturnsOwnPID(t *testing.T) {
	k := New(nil)
	idCh := make(chan PID, 1)
	pid, err := k.RegisterProcess(1, func(p *Proc) {
		idCh <- p.ID()
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	select {
	case got := <-idCh:
		if got != pid {
			t.Errorf("p.ID() = %d, want %d", got, pid)
		}
	case <-time.After(testTimeout):
		t.Fatal("process never ran")
	}
}

func TestNiceReturnsNewPriority(t *testing.T) {
	k := New(nil)
	resultCh := make(chan int, 1)
	if _, err := k.RegisterProcess(1, func(p *Proc) {
		resultCh <- p.Nice(3)
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	select {
	case got := <-resultCh:
		if got != 3 {
			t.Errorf("Nice(3) = %d, want 3", got)
		}
	case <-time.After(testTimeout):
		t.Fatal("process never ran")
	}
}

func TestBindOutOfRangeFails(t *testing.T) {
	k := New(nil)
	resultCh := make(chan int, 1)
	if _, err := k.RegisterProcess(1, func(p *Proc) {
		resultCh <- p.Bind(Mailboxes + 1)
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	select {
	case got := <-resultCh:
		if got != FailBind {
			t.Errorf("Bind(out of range) = %d, want FailBind", got)
		}
	case <-time.After(testTimeout):
		t.Fatal("process never ran")
	}
}
