package serial

import (
	"testing"
	"time"

	"github.com/ece4402/trainset/internal/kernel"
)

func TestByteRingFIFO(t *testing.T) {
	var r byteRing
	if !r.empty() {
		t.Fatal("new ring should be empty")
	}
	r.push('a')
	r.push('b')
	if r.empty() {
		t.Fatal("ring with pushed bytes should not be empty")
	}
	if b, ok := r.pop(); !ok || b != 'a' {
		t.Fatalf("pop = %q, %v, want 'a', true", b, ok)
	}
	if b, ok := r.pop(); !ok || b != 'b' {
		t.Fatalf("pop = %q, %v, want 'b', true", b, ok)
	}
	if !r.empty() {
		t.Fatal("drained ring should be empty")
	}
	if _, ok := r.pop(); ok {
		t.Fatal("pop on empty ring should fail")
	}
}

type sink struct{ bytes []byte }

func (s *sink) WriteByte(b byte) error {
	s.bytes = append(s.bytes, b)
	return nil
}

func TestInputServerAssemblesLineAndEchoes(t *testing.T) {
	k := kernel.New(nil)
	sch := kernel.NewScheduler(k)
	go sch.Run(time.Millisecond)
	defer sch.Stop()

	out := &sink{}
	link := NewLink(sch, out, nil)

	destCh := make(chan int, 1)
	lineCh := make(chan string, 1)
	if _, err := k.RegisterProcess(2, func(p *kernel.Proc) {
		mb := p.Bind(kernel.AnyMailbox)
		destCh <- mb
		buf := make([]byte, kernel.MsgMax)
		n, _, _ := p.Receive(mb, buf)
		lineCh <- string(buf[:n])
	}); err != nil {
		t.Fatalf("register line sink: %v", err)
	}
	dest := <-destCh

	inputPID, err := k.RegisterProcess(1, link.InputServer(kernel.AnyMailbox, dest))
	if err != nil {
		t.Fatalf("register input server: %v", err)
	}

	for _, b := range []byte("hi") {
		link.ReceiveByte(b, inputPID)
	}
	link.ReceiveByte(Enter, inputPID)

	select {
	case got := <-lineCh:
		if got != "HI" {
			t.Errorf("assembled line = %q, want %q", got, "HI")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("input server never delivered a line")
	}

	if string(out.bytes) != "HI" {
		t.Errorf("echoed bytes = %q, want %q", out.bytes, "HI")
	}
}
