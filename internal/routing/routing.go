// Package routing holds the dense, precomputed sensor-to-switch routing
// table and the global switch/train state the application layer consults
// (spec.md §3, §4.J). The table's shape is specified; its entries are
// data, supplied by whoever builds a Table for a given track plan.
package routing

import "gvisor.dev/gvisor/pkg/bitmap"

// SensorCount bounds the 1-indexed sensor id range [1, SensorCount].
const SensorCount = 24

// NoSwitch marks a routing entry that doesn't require throwing a switch.
const NoSwitch = -1

// Direction is the next-hop direction hint carried by a routing entry.
type Direction uint8

const (
	Forward Direction = 0
	Reverse Direction = 1
)

// SwitchState mirrors the physical two-position state of a turnout.
type SwitchState uint8

const (
	Diverged SwitchState = 0
	Straight SwitchState = 1
)

// Entry is one cell of the routing table: a next-hop hint, not a full
// path (spec.md §3).
type Entry struct {
	Dir         Direction
	SwitchIndex int // NoSwitch if this hop doesn't require a turnout
	SwitchState SwitchState
	Stop        bool
}

// TrainState tracks the last-commanded speed/direction and destination for
// one train (spec.md §3, generalized per SPEC_FULL.md from the original's
// single global to a small indexed array — `original_source/TrainRouting.c`
// treats its TRAIN(0) constant as a stand-in for exactly this).
type TrainState struct {
	Magnitude   uint8
	Direction   Direction
	Destination int
	Stopped     bool
}

// AllTrains is the MAG_DIR_SET arg1 value meaning "every train" (spec.md
// §4.J).
const AllTrains = 0xFF

// MaxTrains bounds routing.Table's per-train state array.
const MaxTrains = 8

// Table is the routing policy plus the live switch/train state it is
// consulted against. Table is not safe for concurrent use from more than
// one goroutine; spec.md §5 assumes a single application-layer process
// owns it.
type Table struct {
	entries [SensorCount + 1][SensorCount + 1]Entry

	// switches is one bit per switch, set when thrown to Straight. Backed
	// by gvisor's bitmap package rather than a hand-rolled bitset — see
	// DESIGN.md for why this dependency was chosen for exactly this field.
	switches bitmap.Bitmap

	trains [MaxTrains]TrainState
}

// NewTable returns an empty table with every switch defaulting to
// Diverged and no destination set for any train.
func NewTable(switchCount int) *Table {
	return &Table{switches: bitmap.New(uint32(switchCount))}
}

// Set installs the routing entry for the (from, to) sensor pair.
func (t *Table) Set(from, to int, e Entry) {
	t.entries[from][to] = e
}

// Lookup returns the routing entry for the (from, to) sensor pair.
func (t *Table) Lookup(from, to int) Entry {
	return t.entries[from][to]
}

// SwitchThrown reports whether switch idx is currently set to Straight.
func (t *Table) SwitchThrown(idx int) bool {
	return t.switches.IsSet(uint32(idx))
}

// ThrowSwitch sets switch idx's recorded state, returning whether it
// actually changed — the manual override entry point recovered from
// `original_source/TrainRouting.c` (SPEC_FULL.md's supplemented features):
// an operator can throw a switch directly, bypassing the routing table.
func (t *Table) ThrowSwitch(idx int, state SwitchState) (changed bool) {
	was := t.switches.IsSet(uint32(idx))
	want := state == Straight
	if was == want {
		return false
	}
	if want {
		t.switches.Add(uint32(idx))
	} else {
		t.switches.Remove(uint32(idx))
	}
	return true
}

// Train returns a pointer to train n's live state (n must be < MaxTrains).
func (t *Table) Train(n int) *TrainState {
	return &t.trains[n]
}
