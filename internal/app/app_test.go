package app

import (
	"testing"
	"time"

	"github.com/ece4402/trainset/internal/datalink"
	"github.com/ece4402/trainset/internal/kernel"
	"github.com/ece4402/trainset/internal/routing"
)

func newTestTable() *routing.Table {
	table := routing.NewTable(4)
	table.Set(1, 10, routing.Entry{Dir: routing.Forward, SwitchIndex: 0, SwitchState: routing.Straight})
	table.Set(2, 10, routing.Entry{Stop: true})
	table.Train(0).Destination = 10
	return table
}

func TestSensorEventThrowsSwitchAndAcks(t *testing.T) {
	k := kernel.New(nil)
	sch := kernel.NewScheduler(k)
	go sch.Run(time.Millisecond)
	defer sch.Stop()

	table := newTestTable()
	const dataLinkMB = 7
	const appMB = 8
	layer := NewLayer(table, dataLinkMB, nil)

	received := make(chan datalink.AppMessage, 4)
	if _, err := k.RegisterProcess(1, func(p *kernel.Proc) {
		p.Bind(dataLinkMB)
		buf := make([]byte, kernel.MsgMax)
		for i := 0; i < 2; i++ {
			n, _, ok := p.Receive(dataLinkMB, buf)
			if !ok {
				return
			}
			received <- datalink.UnmarshalAppMessage(buf[:n])
		}
	}); err != nil {
		t.Fatalf("register data-link sink: %v", err)
	}

	if _, err := k.RegisterProcess(2, layer.Run(appMB)); err != nil {
		t.Fatalf("register app layer: %v", err)
	}

	if _, err := k.RegisterProcess(1, func(p *kernel.Proc) {
		src := p.Bind(kernel.AnyMailbox)
		msg := datalink.AppMessage{Code: HallTriggered, Arg1: 1}
		p.Send(appMB, src, msg.Marshal())
	}); err != nil {
		t.Fatalf("register sensor sender: %v", err)
	}

	var gotSwitch, gotAck bool
	deadline := time.After(2 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case msg := <-received:
			switch msg.Code {
			case SwitchThrow:
				gotSwitch = true
				if msg.Arg1 != 0 || routing.SwitchState(msg.Arg2) != routing.Straight {
					t.Errorf("switch throw message = %+v, want index 0 state Straight", msg)
				}
			case HallTriggeredAck:
				gotAck = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for application-layer output")
		}
	}
	if !gotSwitch {
		t.Error("sensor event never produced a switch-throw command")
	}
	if !gotAck {
		t.Error("sensor event was never acknowledged")
	}
}

func TestNonZeroAckTriggersGlobalStop(t *testing.T) {
	k := kernel.New(nil)
	sch := kernel.NewScheduler(k)
	go sch.Run(time.Millisecond)
	defer sch.Stop()

	table := newTestTable()
	const dataLinkMB = 9
	const appMB = 11
	layer := NewLayer(table, dataLinkMB, nil)

	received := make(chan datalink.AppMessage, 1)
	if _, err := k.RegisterProcess(1, func(p *kernel.Proc) {
		p.Bind(dataLinkMB)
		buf := make([]byte, kernel.MsgMax)
		n, _, ok := p.Receive(dataLinkMB, buf)
		if ok {
			received <- datalink.UnmarshalAppMessage(buf[:n])
		}
	}); err != nil {
		t.Fatalf("register data-link sink: %v", err)
	}

	if _, err := k.RegisterProcess(2, layer.Run(appMB)); err != nil {
		t.Fatalf("register app layer: %v", err)
	}

	if _, err := k.RegisterProcess(1, func(p *kernel.Proc) {
		src := p.Bind(kernel.AnyMailbox)
		msg := datalink.AppMessage{Code: SwitchThrowAck, Arg2: 1}
		p.Send(appMB, src, msg.Marshal())
	}); err != nil {
		t.Fatalf("register failure-ack sender: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Code != MagDirSet || msg.Arg1 != routing.AllTrains {
			t.Errorf("stop message = %+v, want MagDirSet to AllTrains", msg)
		}
		if magnitude := msg.Arg2 & 0x0f; magnitude != StopMagnitude {
			t.Errorf("stop magnitude = %d, want %d", magnitude, StopMagnitude)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("failed ack never produced a global stop")
	}
	if !table.Train(0).Stopped {
		t.Error("train state was not marked stopped")
	}
}

// TestMagDirByteBitPositions pins the speed byte to the literal bit
// layout from spec.md §6 (LSB-first: magnitude, reserved, direction) —
// a round-trip-only test would pass even against a reversed layout.
func TestMagDirByteBitPositions(t *testing.T) {
	// magnitude=5 (bits 0-3), direction=Reverse=1 (bit 7):
	// 0b1_000_0101 = 0x85.
	if got, want := magDirByte(5, routing.Reverse), byte(0x85); got != want {
		t.Errorf("magDirByte(5, Reverse) = 0x%02x, want 0x%02x", got, want)
	}
	// direction=Forward=0 must leave bit 7 clear.
	if got, want := magDirByte(5, routing.Forward), byte(0x05); got != want {
		t.Errorf("magDirByte(5, Forward) = 0x%02x, want 0x%02x", got, want)
	}
	// magnitude must occupy only the low nibble, never bleeding into bit 7.
	if got, want := magDirByte(0x0f, routing.Forward), byte(0x0f); got != want {
		t.Errorf("magDirByte(0x0f, Forward) = 0x%02x, want 0x%02x", got, want)
	}
}
