package kernel

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Counters receives exhaustion events a kernel can't otherwise surface:
// implemented by internal/metrics.Counters, kept as a narrow interface
// here so this package has no dependency on how metrics are collected.
type Counters interface {
	IncMessagePoolExhausted()
	IncMailboxBindFailures()
}

// Kernel is the whole scheduler + IPC state, guarded by a single mutex. This
// mirrors the original's assumption that kernel data structures are only
// ever touched with interrupts disabled: here, "interrupts disabled" is
// "mu held".
type Kernel struct {
	mu sync.Mutex

	readyQueues

	procs    [MaxProcesses]PCB
	procFree []PID

	mailboxes   [Mailboxes]mailbox
	freeMailbox int

	slots    [MessagePoolSize]messageSlot
	freeSlot int

	log      *slog.Logger
	counters Counters
}

// SetCounters wires an exhaustion-event sink into the kernel. Optional;
// a nil Counters (the default) means exhaustion events are silently
// dropped other than the FailSend/FailBind return value.
func (k *Kernel) SetCounters(c Counters) {
	k.mu.Lock()
	k.counters = c
	k.mu.Unlock()
}

// New builds an initialized, empty kernel: all mailboxes free, all message
// slots free, all PCBs free, no process registered yet.
func New(log *slog.Logger) *Kernel {
	if log == nil {
		log = slog.Default()
	}
	k := &Kernel{log: log}
	k.activeLevel = LowPriority
	for i := range k.levels {
		k.levels[i] = NoPID
	}
	k.procFree = make([]PID, MaxProcesses)
	for i := range k.procFree {
		k.procFree[i] = PID(MaxProcesses - 1 - i)
	}
	k.initMailboxes()
	k.initPool()
	return k
}

// wake signals pcb's resume channel, non-blocking: at most one wake is ever
// outstanding between two scheduled runs of a given process, so a full
// buffer means the signal is already pending.
func (k *Kernel) wake(pid PID) {
	if pid == NoPID {
		return
	}
	select {
	case k.procs[pid].resume <- struct{}{}:
	default:
	}
}

// park blocks the calling goroutine until pid is signalled current again.
func (k *Kernel) park(pid PID) {
	<-k.procs[pid].resume
}

// RegisterProcess allocates a PCB at the given priority and starts body
// running in its own goroutine, gated so that it only executes while the
// kernel considers it the current process (spec.md §4.A: a newly created
// process is placed at the tail of its priority ring exactly like any
// other, so it only runs immediately if its ring was empty).
func (k *Kernel) RegisterProcess(priority int, body func(*Proc)) (PID, error) {
	if priority < LowPriority || priority > HighPriority {
		return NoPID, fmt.Errorf("kernel: invalid priority %d", priority)
	}

	k.mu.Lock()
	if len(k.procFree) == 0 {
		k.mu.Unlock()
		return NoPID, errors.New("kernel: process table exhausted")
	}
	pid := k.procFree[len(k.procFree)-1]
	k.procFree = k.procFree[:len(k.procFree)-1]

	k.procs[pid] = PCB{id: pid, inUse: true, resume: make(chan struct{}, 1)}
	k.add(pid, priority)
	becomesCurrent := k.current() == pid
	k.mu.Unlock()

	if becomesCurrent {
		k.wake(pid)
	}
	go k.runProcess(pid, body)
	return pid, nil
}

func (k *Kernel) runProcess(pid PID, body func(*Proc)) {
	k.park(pid)
	p := &Proc{k: k, pid: pid}
	body(p)
	p.Terminate()
}

// freePCB returns pid's PCB to the free pool. Caller holds mu.
func (k *Kernel) freePCB(pid PID) {
	k.procs[pid].terminated = true
	k.procs[pid].inUse = false
	k.procFree = append(k.procFree, pid)
}

// nice implements spec.md §4.E nice(new_priority): moves the caller to a
// new priority ring and returns its priority after the move (the original
// KernelCall.c contract). An out-of-range priority is rejected with
// FailDefault and leaves the caller in its current ring.
func (k *Kernel) nice(caller PID, newPriority int) int {
	if newPriority < LowPriority || newPriority > HighPriority {
		return FailDefault
	}
	removed := k.removeCurrent()
	k.add(removed, newPriority)
	return k.procs[caller].priority
}

// send implements spec.md §4.D send(dst, buf): either a direct rendezvous
// into an already-blocked receiver, or enqueuing into the pool for later
// pickup.
func (k *Kernel) send(caller PID, dstMB, srcMB int, buf []byte) int {
	if srcMB < 0 || srcMB >= Mailboxes || k.mailboxes[srcMB].owner != caller {
		return FailSend
	}
	if dstMB < 0 || dstMB >= Mailboxes || k.mailboxes[dstMB].owner == NoPID {
		return FailSend
	}
	if len(buf) > MsgMax {
		return FailSend
	}

	receiver := k.mailboxes[dstMB].owner
	rp := &k.procs[receiver]

	if rp.blocked && (rp.recvMB == dstMB || rp.recvMB == AnyMailbox) {
		n := len(buf)
		if n > rp.recvCap {
			n = rp.recvCap
		}
		copy(rp.recvBuf[:n], buf[:n])
		*rp.recvRet = n
		*rp.recvFrom = srcMB

		rp.blocked = false
		rp.recvBuf, rp.recvFrom, rp.recvRet = nil, nil, nil
		k.add(receiver, rp.priority)
		return Success
	}

	slot := k.allocSlot()
	if slot == noSlot {
		if k.counters != nil {
			k.counters.IncMessagePoolExhausted()
		}
		return FailSend
	}
	k.slots[slot].from = srcMB
	k.slots[slot].length = len(buf)
	copy(k.slots[slot].payload[:len(buf)], buf)
	k.enqueue(dstMB, slot)
	appendRecvLog(rp, dstMB)
	return Success
}

type recvOutcome int

const (
	recvDone recvOutcome = iota
	recvFailed
	recvBlocked
)

// recv implements the non-blocking half of spec.md §4.D receive(mb, buf):
// deliver immediately if a message is already queued, otherwise report that
// the caller must block. mb == AnyMailbox consults the caller's receive
// log, the resolution of this component's open question about bookkeeping
// receive(ANY) across several owned mailboxes.
func (k *Kernel) recv(caller PID, mb int, buf []byte) (outcome recvOutcome, n int, from int) {
	if mb != AnyMailbox && (mb < 0 || mb >= Mailboxes || k.mailboxes[mb].owner != caller) {
		return recvFailed, 0, 0
	}

	cp := &k.procs[caller]
	target := mb
	if mb == AnyMailbox {
		if len(cp.recvLog) == 0 {
			return recvBlocked, 0, 0
		}
		target = cp.recvLog[0]
	}

	slot := k.dequeue(target)
	if slot == noSlot {
		return recvBlocked, 0, 0
	}

	n = k.slots[slot].length
	if n > len(buf) {
		n = len(buf)
	}
	copy(buf[:n], k.slots[slot].payload[:n])
	from = k.slots[slot].from
	k.releaseSlot(slot)
	removeRecvLog(cp, target)
	return recvDone, n, from
}

// block implements spec.md §4.E BLOCK: deschedule the caller until the
// Scheduler re-adds it to its ring (a subscribed tick, or a WakeBlocked
// call such as a byte arriving on a link). A send does not wake a process
// parked here; send only rendezvouses with a process blocked in receive.
func (k *Kernel) block(pid PID) {
	k.procs[pid].waiting = true
	k.removeCurrent()
}

// terminate implements spec.md §4.D/§5: release every mailbox the process
// owns (dropping their queued messages) and free its PCB.
func (k *Kernel) terminate(pid PID) {
	k.releaseAllOwnedBy(pid)
	k.removeCurrent()
	k.freePCB(pid)
}
