package kernel

// noSlot is the free-list / FIFO-link sentinel for "no message slot".
const noSlot = -1

// messageSlot is one entry of the fixed message pool (spec.md §3): a slot
// is either in the free pool or in exactly one mailbox FIFO, never both,
// never neither (testable property 3, §8).
type messageSlot struct {
	from    int // sender mailbox id
	length  int
	payload [MsgMax]byte
	next    int // link within whichever list currently owns this slot
}

// initPool chains every slot into one free list.
func (k *Kernel) initPool() {
	for i := range k.slots {
		k.slots[i].next = i + 1
	}
	k.slots[len(k.slots)-1].next = noSlot
	k.freeSlot = 0
}

// allocSlot pops a slot from the free pool, or returns noSlot if exhausted.
func (k *Kernel) allocSlot() int {
	s := k.freeSlot
	if s == noSlot {
		return noSlot
	}
	k.freeSlot = k.slots[s].next
	return s
}

// releaseSlot returns slot s to the free pool.
func (k *Kernel) releaseSlot(s int) {
	k.slots[s] = messageSlot{next: k.freeSlot}
	k.freeSlot = s
}

// enqueue appends slot s to the tail of mailbox mb's FIFO.
func (k *Kernel) enqueue(mb int, s int) {
	k.slots[s].next = noSlot
	m := &k.mailboxes[mb]
	if m.tail == noSlot {
		m.head, m.tail = s, s
	} else {
		k.slots[m.tail].next = s
		m.tail = s
	}
}

// dequeue pops the head slot of mailbox mb's FIFO, or returns noSlot if
// empty.
func (k *Kernel) dequeue(mb int) int {
	m := &k.mailboxes[mb]
	s := m.head
	if s == noSlot {
		return noSlot
	}
	m.head = k.slots[s].next
	if m.head == noSlot {
		m.tail = noSlot
	}
	return s
}

// appendRecvLog records that mailbox mb (owned by p) now has a pending
// message, in global send order across all of p's owned mailboxes. This is
// the resolution of spec.md §4.D's open question: one FIFO per owner,
// maintained only here and in removeRecvLog, never by pointer surgery.
func appendRecvLog(p *PCB, mb int) {
	p.recvLog = append(p.recvLog, mb)
}

// removeRecvLog splices the first occurrence of mb out of p's receive log.
// Because within one mailbox messages are also delivered in send order, the
// first occurrence of mb in the log always corresponds to the message a
// dequeue(mb) call is about to return.
func removeRecvLog(p *PCB, mb int) {
	for i, v := range p.recvLog {
		if v == mb {
			p.recvLog = append(p.recvLog[:i], p.recvLog[i+1:]...)
			return
		}
	}
}

// purgeRecvLog splices every occurrence of mb out of p's receive log, used
// when mb's queued messages are discarded out of FIFO order (unbind) rather
// than drained one at a time by recv.
func purgeRecvLog(p *PCB, mb int) {
	kept := p.recvLog[:0]
	for _, v := range p.recvLog {
		if v != mb {
			kept = append(kept, v)
		}
	}
	p.recvLog = kept
}
