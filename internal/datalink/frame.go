// Package datalink implements the sliding-window sequencing layer of
// spec.md §4.H: stamped {Ns, Nr, type} control bytes, an 8-entry replay
// window, and ACK/NACK-driven retransmission, running as a pair of
// cooperating kernel processes per physical link (one draining outbound
// application messages, one draining inbound frames).
package datalink

import "github.com/ece4402/trainset/bits"

// WindowSize bounds outstanding unacked frames (spec.md §3, §4.H
// invariant: "outstanding unacked frames never exceed 7").
const WindowSize = 8

// FrameType is the 2-bit type field of a frame's control byte.
type FrameType uint8

const (
	Data FrameType = 0
	Ack  FrameType = 1
	Nack FrameType = 2
)

// AppMessage is the embedded application-layer message a data-link frame
// carries (spec.md §3: "{code:u8, arg1:u8, arg2:u8}").
type AppMessage struct {
	Code byte
	Arg1 byte
	Arg2 byte
}

// Marshal/Unmarshal give AppMessage the 3-byte wire shape every mailbox
// message in this stack's upper layers actually carries.
func (m AppMessage) Marshal() []byte { return []byte{m.Code, m.Arg1, m.Arg2} }

func UnmarshalAppMessage(b []byte) AppMessage {
	var m AppMessage
	if len(b) > 0 {
		m.Code = b[0]
	}
	if len(b) > 1 {
		m.Arg1 = b[1]
	}
	if len(b) > 2 {
		m.Arg2 = b[2]
	}
	return m
}

// Frame is one data-link frame: control byte packed from the LSB as
// {Nr:3, Ns:3, type:2} (spec.md §6, original's
// struct DataLinkControl { receivedNum:3; sequenceNum:3; type:2; } on a
// little-endian target), followed by a length byte and the embedded
// application message.
type Frame struct {
	Ns, Nr uint8
	Type   FrameType
	Msg    AppMessage
}

const (
	nrPos   = 0
	nrLen   = 3
	nsPos   = 3
	nsLen   = 3
	typePos = 6
	typeLen = 2
)

func packControl(f Frame) byte {
	var c byte
	c = bits.SetN(c, typePos, (1<<typeLen)-1, byte(f.Type))
	c = bits.SetN(c, nsPos, (1<<nsLen)-1, f.Ns)
	c = bits.SetN(c, nrPos, (1<<nrLen)-1, f.Nr)
	return c
}

func unpackControl(c byte) (ns, nr uint8, typ FrameType) {
	typ = FrameType(bits.Get(c, typePos, (1<<typeLen)-1))
	ns = bits.Get(c, nsPos, (1<<nsLen)-1)
	nr = bits.Get(c, nrPos, (1<<nrLen)-1)
	return
}

// Marshal packs f into the raw bytes physical.Encode frames onto the
// wire: control byte, length byte, then the embedded message.
func (f Frame) Marshal() []byte {
	msg := f.Msg.Marshal()
	out := make([]byte, 0, 2+len(msg))
	out = append(out, packControl(f), byte(len(msg)))
	out = append(out, msg...)
	return out
}

// UnmarshalFrame reverses Marshal.
func UnmarshalFrame(b []byte) (Frame, bool) {
	if len(b) < 2 {
		return Frame{}, false
	}
	ns, nr, typ := unpackControl(b[0])
	length := int(b[1])
	if len(b) < 2+length {
		return Frame{}, false
	}
	return Frame{Ns: ns, Nr: nr, Type: typ, Msg: UnmarshalAppMessage(b[2 : 2+length])}, true
}
