package kernel

// readyQueues holds the five priority rings: for each level, the PID at the
// head of that level's circular doubly-linked list (NoPID if the level is
// empty). The head doubles as "the process that will run next at this
// level" — exactly what the original's single waitingToRun[priority]
// pointer meant (spec.md §4.A).
type readyQueues struct {
	levels      [PriorityLevels]PID
	activeLevel int
}

// add appends pcb to the tail of its priority ring. If prio exceeds the
// current active level, the active level advances to prio. Returns the
// (possibly updated) active level, matching the original addPCB's return
// value; no caller in this package currently uses it.
func (k *Kernel) add(pcb PID, prio int) int {
	p := &k.procs[pcb]
	head := k.levels[prio]

	if head == NoPID {
		p.next, p.prev = pcb, pcb
		k.levels[prio] = pcb
	} else {
		tail := k.procs[head].prev
		p.next = head
		p.prev = tail
		k.procs[tail].next = pcb
		k.procs[head].prev = pcb
	}

	p.priority = prio
	if k.activeLevel < prio {
		k.activeLevel = prio
	}
	return k.activeLevel
}

// removeCurrent unlinks the head of the active ring and returns its PID. If
// that ring empties, the active level decrements until a non-empty level is
// found or level 0 is reached. No idle process is registered by this
// package, so level 0 (and with it current()) may be empty.
func (k *Kernel) removeCurrent() PID {
	cur := k.levels[k.activeLevel]
	if cur == NoPID {
		return NoPID
	}
	p := &k.procs[cur]

	if p.next == cur {
		// only entry in this ring
		k.levels[k.activeLevel] = NoPID
		k.decrementActiveLevel()
	} else {
		k.procs[p.prev].next = p.next
		k.procs[p.next].prev = p.prev
		k.levels[k.activeLevel] = p.next
	}
	return cur
}

// decrementActiveLevel lowers the active level until a non-empty ring is
// found or level 0 is reached.
func (k *Kernel) decrementActiveLevel() {
	for k.levels[k.activeLevel] == NoPID && k.activeLevel > 0 {
		k.activeLevel--
	}
}

// current returns the PID at the head of the active ring, or NoPID if every
// ring is empty (no process registered yet, or all of them parked).
func (k *Kernel) current() PID {
	return k.levels[k.activeLevel]
}

// advanceRoundRobin rotates the active ring by one position without
// removing anything — the CONTEXT tick's round-robin advance (spec.md
// §4.E): "current = current.next within the active ring; it never crosses
// levels."
func (k *Kernel) advanceRoundRobin() {
	cur := k.levels[k.activeLevel]
	if cur == NoPID {
		return
	}
	k.levels[k.activeLevel] = k.procs[cur].next
}
