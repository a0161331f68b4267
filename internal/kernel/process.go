package kernel

// Proc is the calling convention a registered process body uses to reach
// the kernel — the Go equivalent of the original's KernelCall.c wrappers
// around the SVC trap. A process only ever touches the kernel through its
// own *Proc; it is not safe to share one across goroutines.
type Proc struct {
	k   *Kernel
	pid PID
}

// ID returns the process's own identifier.
func (p *Proc) ID() PID {
	return PID(p.k.Trap(p.pid, GetID, CallArgs{}).Value)
}

// Nice moves the calling process to newPriority and returns its priority
// after the move (spec.md §4.E). Compare the result to newPriority to
// detect an out-of-range request being rejected.
func (p *Proc) Nice(newPriority int) int {
	return p.k.Trap(p.pid, Nice, CallArgs{Priority: newPriority}).Value
}

// Send delivers buf to mailbox dstMB, sent from a mailbox srcMB owned by
// the caller (spec.md §4.D). Returns Success or FailSend.
func (p *Proc) Send(dstMB, srcMB int, buf []byte) int {
	return p.k.Trap(p.pid, SendMsg, CallArgs{DstMB: dstMB, SrcMB: srcMB, Buf: buf}).Value
}

// Receive blocks until a message arrives at mb (or, if mb is AnyMailbox,
// at any mailbox the caller owns), then copies it into buf and returns the
// number of bytes copied and the sender's mailbox id. ok is false only for
// an invalid mb (not owned by the caller, or out of range).
func (p *Proc) Receive(mb int, buf []byte) (n int, from int, ok bool) {
	res := p.k.Trap(p.pid, ReceiveMsg, CallArgs{MB: mb, Buf: buf})
	if res.Failed {
		return 0, 0, false
	}
	return res.Value, res.From, true
}

// Bind claims mailbox desired (or, if desired is AnyMailbox, any free
// mailbox) for the caller. Returns the bound mailbox id, or FailBind.
func (p *Proc) Bind(desired int) int {
	return p.k.Trap(p.pid, Bind, CallArgs{MB: desired}).Value
}

// Unbind releases a mailbox the caller owns, discarding any messages still
// queued on it. Returns Success or FailUnbind.
func (p *Proc) Unbind(id int) int {
	return p.k.Trap(p.pid, Unbind, CallArgs{MB: id}).Value
}

// Block deschedules the caller until some other event re-adds it to its
// ring (spec.md §4.E) — used by servers that wait on something other than
// a mailbox message, such as a tick count or a raw interrupt flag.
func (p *Proc) Block() {
	p.k.Trap(p.pid, Block, CallArgs{})
}

// Terminate ends the calling process: its mailboxes are released and its
// PCB freed. A process body returning normally calls this implicitly.
func (p *Proc) Terminate() {
	p.k.Trap(p.pid, Terminate, CallArgs{})
}
