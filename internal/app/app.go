// Package app implements the application layer of spec.md §4.J: sensor
// events looked up against a routing table, producing switch-throw and
// speed commands, plus the manual switch-throw override recovered from
// original_source/TrainRouting.c.
package app

import (
	"log/slog"

	"github.com/ece4402/trainset/internal/datalink"
	"github.com/ece4402/trainset/internal/kernel"
	"github.com/ece4402/trainset/internal/routing"
)

// Message codes (spec.md §4.J, original_source/AppLayerMessage.h's
// AppLayerCode enum). ACK variants carry arg2 == 0 for success, non-zero
// for failure.
const (
	HallTriggered    byte = 0xA0
	HallTriggeredAck byte = 0xA2
	HallResetRequest byte = 0xA8
	HallResetAck     byte = 0xAA
	MagDirSet        byte = 0xC0
	MagDirAck        byte = 0xC2
	SwitchThrow      byte = 0xE0
	SwitchThrowAck   byte = 0xE2
)

// StopMagnitude is the commanded magnitude of a global safety stop.
const StopMagnitude = 0

// Counters receives a notification on every global safety stop;
// implemented by internal/metrics.Counters.
type Counters interface {
	IncSafetyStops()
}

// Layer runs the application-layer process: it owns a destination per
// train (which sensor each train is currently routed toward) and the
// live routing.Table, and reacts to inbound sensor/ACK messages by
// emitting outbound commands to the data-link layer's app-facing mailbox.
type Layer struct {
	log   *slog.Logger
	table *routing.Table

	dataLinkMB int // outbound: data-link layer's app-facing mailbox
	counters   Counters
}

// NewLayer builds an application layer over table, emitting outbound
// messages to dataLinkMB.
func NewLayer(table *routing.Table, dataLinkMB int, log *slog.Logger) *Layer {
	if log == nil {
		log = slog.Default()
	}
	return &Layer{log: log, table: table, dataLinkMB: dataLinkMB}
}

// SetCounters wires an optional safety-stop event sink into the layer.
func (l *Layer) SetCounters(c Counters) {
	l.counters = c
}

// Run is the process body: bind mb (the mailbox the data-link layer
// forwards inbound application messages to) and react to each message.
func (l *Layer) Run(mb int) func(*kernel.Proc) {
	return func(p *kernel.Proc) {
		bound := mb
		if bound == kernel.AnyMailbox {
			bound = p.Bind(kernel.AnyMailbox)
		} else if p.Bind(mb) != mb {
			l.log.Error("app: bind failed", "mailbox", mb)
			return
		}

		buf := make([]byte, kernel.MsgMax)
		for {
			n, _, ok := p.Receive(bound, buf)
			if !ok {
				l.log.Error("app: receive failed", "mailbox", bound)
				return
			}
			msg := datalink.UnmarshalAppMessage(buf[:n])
			l.handle(p, bound, msg)
		}
	}
}

func (l *Layer) handle(p *kernel.Proc, bound int, msg datalink.AppMessage) {
	switch msg.Code {
	case HallTriggered:
		l.handleSensorEvent(p, bound, int(msg.Arg1))

	case MagDirAck, SwitchThrowAck, HallResetAck:
		if msg.Arg2 != 0 {
			l.log.Warn("app: command ack reported failure", "code", msg.Code, "arg2", msg.Arg2)
			l.globalStop(p, bound)
		}

	default:
		l.log.Debug("app: unrecognized message code", "code", msg.Code)
	}
}

func (l *Layer) handleSensorEvent(p *kernel.Proc, bound int, sensor int) {
	const trainNumber = 0 // single demo train; see routing.MaxTrains for the generalized array
	train := l.table.Train(trainNumber)
	entry := l.table.Lookup(sensor, train.Destination)

	if entry.Stop {
		l.globalStop(p, bound)
	} else {
		if entry.Dir != train.Direction || train.Stopped {
			train.Direction = entry.Dir
			train.Stopped = false
			l.emit(p, bound, MagDirSet, byte(trainNumber), magDirByte(train.Magnitude, entry.Dir))
		}
		if entry.SwitchIndex != routing.NoSwitch && l.table.SwitchThrown(entry.SwitchIndex) != (entry.SwitchState == routing.Straight) {
			l.table.ThrowSwitch(entry.SwitchIndex, entry.SwitchState)
			l.emit(p, bound, SwitchThrow, byte(entry.SwitchIndex), byte(entry.SwitchState))
		}
	}

	l.emit(p, bound, HallTriggeredAck, byte(sensor), 0)
}

// ThrowSwitch is the manual override entry point recovered from
// original_source/TrainRouting.c: an operator can throw a switch directly
// from the console, bypassing the routing table.
func (l *Layer) ThrowSwitch(p *kernel.Proc, bound int, index int, state routing.SwitchState) {
	if l.table.ThrowSwitch(index, state) {
		l.emit(p, bound, SwitchThrow, byte(index), byte(state))
	}
}

func (l *Layer) globalStop(p *kernel.Proc, bound int) {
	for i := 0; i < routing.MaxTrains; i++ {
		train := l.table.Train(i)
		train.Stopped = true
	}
	if l.counters != nil {
		l.counters.IncSafetyStops()
	}
	l.emit(p, bound, MagDirSet, routing.AllTrains, magDirByte(StopMagnitude, routing.Forward))
}

func (l *Layer) emit(p *kernel.Proc, bound int, code byte, arg1, arg2 byte) {
	msg := datalink.AppMessage{Code: code, Arg1: arg1, Arg2: arg2}
	if p.Send(l.dataLinkMB, bound, msg.Marshal()) != kernel.Success {
		l.log.Error("app: send to data-link layer failed", "code", code)
	}
}

// magDirByte packs a speed byte from the LSB as {magnitude:4, reserved:3,
// direction:1} (spec.md §6, original's
// struct AppLayerSpeed { magnitude:4; ignored:3; direction:1; }).
func magDirByte(magnitude uint8, dir routing.Direction) byte {
	return (magnitude & 0x0f) | (byte(dir)&0x01)<<7
}
