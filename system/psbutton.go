package system

import (
	"github.com/Alia5/dsbridge/internal/clock"
	"github.com/Alia5/dsbridge/state"
)

// HoldMS is how long the PS button must be held, while active, to request
// standby.
const HoldMS = 1500

// PSButtonDetector is a stateful filter over the input bus that turns
// PS-button gestures into state machine requests: a long hold while active
// requests standby, any press while in standby requests wake.
type PSButtonDetector struct {
	machine *Machine
	now     func() int64

	prev      bool
	heldSince int64
	fired     bool
}

// NewPSButtonDetector wires a detector to a machine. now may be nil for the
// process monotonic clock.
func NewPSButtonDetector(m *Machine, now func() int64) *PSButtonDetector {
	if now == nil {
		now = clock.NowMS
	}
	return &PSButtonDetector{machine: m, now: now}
}

// Observe consumes one input snapshot. It is called from the source input
// path after every bus update.
func (d *PSButtonDetector) Observe(st *state.ControllerState) {
	pressed := st.Pressed(state.ButtonPS)
	defer func() { d.prev = pressed }()

	if d.machine.IsStandby() {
		// Any press wakes; the machine's debounce absorbs repeats.
		if pressed && !d.prev {
			d.machine.ExitStandby()
		}
		d.fired = false
		return
	}

	switch {
	case pressed && !d.prev:
		d.heldSince = d.now()
		d.fired = false
	case pressed && d.prev:
		if !d.fired && d.now()-d.heldSince >= HoldMS {
			d.fired = true
			d.machine.EnterStandby()
		}
	default:
		d.fired = false
	}
}
