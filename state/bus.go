package state

import "sync"

// Bus is the latest-value store connecting the source driver to the protocol
// emulator (input side) and the emulator/panel/state machine to the output
// forwarder (output side). It is not a queue: writers replace the previous
// snapshot, readers always observe a complete one.
//
// The input and output sides are independently locked; neither lock is ever
// held across I/O.
type Bus struct {
	inMu  sync.Mutex
	input ControllerState

	outMu  sync.Mutex
	output ControllerOutput
	dirty  bool
}

// NewBus returns a Bus holding a neutral input snapshot.
func NewBus() *Bus {
	return &Bus{input: Neutral(0)}
}

// UpdateInput replaces the latest input snapshot.
func (b *Bus) UpdateInput(st *ControllerState) {
	b.inMu.Lock()
	b.input = *st
	b.inMu.Unlock()
}

// SnapshotInput returns the latest input snapshot.
func (b *Bus) SnapshotInput() ControllerState {
	b.inMu.Lock()
	st := b.input
	b.inMu.Unlock()
	return st
}

// UpdateOutput replaces the desired output state. The dirty flag is latched
// only when the value actually changes, so idempotent writes never cause
// endpoint traffic.
func (b *Bus) UpdateOutput(out *ControllerOutput) {
	b.outMu.Lock()
	if b.output != *out {
		b.output = *out
		b.dirty = true
	}
	b.outMu.Unlock()
}

// ModifyOutput applies f to the current output under the lock. Writers that
// only own part of the output (rumble from the host, LEDs from the panel)
// use this so concurrent partial updates never lose fields.
func (b *Bus) ModifyOutput(f func(*ControllerOutput)) {
	b.outMu.Lock()
	next := b.output
	f(&next)
	if b.output != next {
		b.output = next
		b.dirty = true
	}
	b.outMu.Unlock()
}

// SnapshotOutput returns the desired output state.
func (b *Bus) SnapshotOutput() ControllerOutput {
	b.outMu.Lock()
	out := b.output
	b.outMu.Unlock()
	return out
}

// TakeOutputDirty atomically reports and clears the dirty flag.
func (b *Bus) TakeOutputDirty() bool {
	b.outMu.Lock()
	d := b.dirty
	b.dirty = false
	b.outMu.Unlock()
	return d
}

// MarkOutputDirty re-latches the dirty flag, used when a send fails and the
// snapshot must be retried on the next tick.
func (b *Bus) MarkOutputDirty() {
	b.outMu.Lock()
	b.dirty = true
	b.outMu.Unlock()
}
