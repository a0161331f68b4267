// Package kernel implements the microkernel core: a fixed-priority,
// round-robin-within-level process scheduler with a trap-style system-call
// interface and mailbox-based message passing with blocking receive.
//
// Every kernel call in spec.md §4.B is a method on *Kernel reached through
// Trap, which serializes all kernel-state mutation behind a single mutex —
// modeling the hardware fact that, at any instant, either exactly one
// process runs or one interrupt handler runs (spec.md §5).
package kernel

// Sizes, from spec.md §6.
const (
	// PriorityLevels is the number of scheduling priorities, 0 (lowest) to
	// PriorityLevels-1 (highest).
	PriorityLevels = 5

	// Mailboxes is the number of addressable mailbox slots, 0..Mailboxes-1.
	Mailboxes = 16

	// AnyMailbox is the bind-any / receive-any sentinel, one past the last
	// real mailbox id.
	AnyMailbox = Mailboxes

	// MsgMax is the maximum payload length, in bytes, of one message.
	MsgMax = 32

	// MessagePoolSize is the number of message slots in the fixed pool
	// backing every mailbox's FIFO. Not specified numerically by spec.md;
	// sized generously above the replay window and mailbox count for a
	// demo train set with a handful of concurrent processes.
	MessagePoolSize = 64

	// MaxProcesses bounds the process table (PCB arena).
	MaxProcesses = 32

	// LowPriority and HighPriority bound the valid priority range.
	LowPriority  = 0
	HighPriority = PriorityLevels - 1
)

// CallCode enumerates the kernel-call codes recognized by the trap
// dispatcher (spec.md §4.B, §6).
type CallCode int

const (
	GetID CallCode = iota
	Nice
	SendMsg
	ReceiveMsg
	Terminate
	Bind
	Unbind
	Block
)

func (c CallCode) String() string {
	switch c {
	case GetID:
		return "GETID"
	case Nice:
		return "NICE"
	case SendMsg:
		return "SENDMSG"
	case ReceiveMsg:
		return "RECEIVEMSG"
	case Terminate:
		return "TERMINATE"
	case Bind:
		return "BIND"
	case Unbind:
		return "UNBIND"
	case Block:
		return "BLOCK"
	default:
		return "UNKNOWN"
	}
}

// Return codes, from spec.md §6: success is 1 (or an operation-specific
// positive value, e.g. the bound mailbox id or the bytes copied); failures
// are small negatives.
const (
	Success     = 1
	FailDefault = -1
	FailSend    = -2
	FailRecv    = -3
	FailBind    = -4
	FailUnbind  = -5
)
