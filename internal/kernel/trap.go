package kernel

// CallArgs bundles every kernel call's possible arguments behind one type,
// mirroring the original's single KernelArgs struct reused by every trap —
// a given CallCode only reads the fields it needs.
type CallArgs struct {
	Priority int // NICE
	DstMB    int // SENDMSG
	SrcMB    int // SENDMSG
	Buf      []byte
	MB       int // RECEIVEMSG, BIND, UNBIND
}

// CallResult is the uniform return shape of Trap. Failed is set when the
// call could not even be attempted (ownership/range errors). A RECEIVEMSG
// that had to block is not flagged: by the time Trap returns, the
// delivered length and sender are already in Value/From.
type CallResult struct {
	Value  int
	From   int
	Failed bool
}

// Trap is the kernel's single entry point (spec.md §4.B): every process
// call funnels through here, which switches on code and invokes the
// matching routine under the kernel lock, then performs the scheduling
// epilogue common to every call: if the mutation changed which process is
// current, wake the new one and park the caller until it is current again.
func (k *Kernel) Trap(pid PID, code CallCode, args CallArgs) CallResult {
	// Addresses handed to a blocked receive; a future send() writes the
	// delivered length/sender mailbox directly through these, so they must
	// outlive this stack frame across the park() below — Go's escape
	// analysis keeps them alive on the heap for as long as the PCB's
	// recvRet/recvFrom hold their addresses, with no dangling-pointer risk.
	var recvN, recvFrom int

	k.mu.Lock()
	var res CallResult
	blockedReceive := false

	switch code {
	case GetID:
		res.Value = int(pid)

	case Nice:
		res.Value = k.nice(pid, args.Priority)

	case SendMsg:
		res.Value = k.send(pid, args.DstMB, args.SrcMB, args.Buf)

	case ReceiveMsg:
		outcome, n, from := k.recv(pid, args.MB, args.Buf)
		switch outcome {
		case recvDone:
			res.Value, res.From = n, from
		case recvFailed:
			res.Failed = true
			res.Value = FailRecv
		case recvBlocked:
			cp := &k.procs[pid]
			cp.blocked = true
			cp.recvMB = args.MB
			cp.recvBuf = args.Buf
			cp.recvCap = len(args.Buf)
			cp.recvFrom = &recvFrom
			cp.recvRet = &recvN
			k.removeCurrent()
			blockedReceive = true
		}

	case Terminate:
		k.terminate(pid)

	case Bind:
		res.Value = k.bind(pid, args.MB)

	case Unbind:
		res.Value = k.unbind(pid, args.MB)

	case Block:
		k.block(pid)

	default:
		res.Failed = true
		res.Value = FailDefault
	}

	newCurrent := k.current()
	k.mu.Unlock()

	if code == Terminate {
		// The caller's goroutine is exiting for good: wake whoever is now
		// current, but there is no caller left to park.
		if newCurrent != pid {
			k.wake(newCurrent)
		}
		return res
	}

	if newCurrent != pid {
		k.wake(newCurrent)
		k.park(pid)
	}

	if blockedReceive {
		res.Value, res.From = recvN, recvFrom
	}

	return res
}
