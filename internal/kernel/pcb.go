package kernel

// PID identifies a process control block by its index into the fixed
// process-table arena (Design Notes: intrusive lists are indices into a
// fixed-size arena, never raw pointers, so there is nothing to dangle).
type PID int

// NoPID is the sentinel for "no process" — an empty ring link or an unowned
// mailbox.
const NoPID PID = -1

// PCB is one process control block. The kernel allocates these from a fixed
// arena at RegisterProcess time and never resizes it.
//
// Essential fields per spec.md §3: priority, intrusive prev/next within its
// priority ring, and a blocked-receive record populated only while the
// process is suspended inside a receive — its presence is the blocking
// flag. A per-process terminal cursor column is carried here too, for the
// output server (spec.md §3 calls this out as "noted only because the
// scheduler preserves it across pre-emption" — the scheduler itself never
// reads or writes it).
type PCB struct {
	id       PID
	priority int
	inUse    bool

	// ring linkage within the priority level's circular doubly-linked list
	prev, next PID

	// blocked-receive record
	blocked  bool
	recvMB   int
	recvBuf  []byte
	recvCap  int
	recvFrom *int
	recvRet  *int

	// waiting is set while the process is parked via Proc.Block, outside
	// any receive — the scheduler only re-admits a PCB whose waiting or
	// blocked flag is set, so a stray wake event can never double-link an
	// already-ready PCB into its ring.
	waiting bool

	// per-owner receive-log: FIFO of mailbox ids with a pending message,
	// in the global order sends arrived (spec.md §4.D open-question note).
	recvLog []int

	cursorColumn int

	// resume is signalled by the scheduler when this PCB becomes (or
	// becomes again) the running process; the owning goroutine parks here
	// whenever it isn't current. Buffered 1 so a signal delivered before
	// the goroutine parks isn't lost.
	resume chan struct{}

	terminated bool
}

// ID returns the process's identifier, stable for its lifetime.
func (p *PCB) ID() PID { return p.id }

// Priority returns the process's current scheduling priority.
func (p *PCB) Priority() int { return p.priority }

// CursorColumn and SetCursorColumn give the serial output server somewhere
// to keep its per-process terminal column across pre-emption.
func (p *PCB) CursorColumn() int         { return p.cursorColumn }
func (p *PCB) SetCursorColumn(col int)   { p.cursorColumn = col }
