package remap

import (
	"fmt"

	"github.com/Alia5/dsbridge/state"
)

type compiledRemap struct {
	from, to state.Button
}

// Applier holds a compiled profile plus the runtime state of its macros.
// Apply transforms one input snapshot at a time; with an empty profile it is
// the identity.
type Applier struct {
	remaps []compiledRemap
	macros []*macroState
}

// NewApplier compiles a profile. Unknown button names, kinds or activation
// modes are configuration errors.
func NewApplier(p Profile) (*Applier, error) {
	a := &Applier{}
	for i, r := range p.Remaps {
		from, ok := state.ButtonByName(r.From)
		if !ok {
			return nil, fmt.Errorf("remap %d: unknown button %q", i, r.From)
		}
		to, ok := state.ButtonByName(r.To)
		if !ok {
			return nil, fmt.Errorf("remap %d: unknown button %q", i, r.To)
		}
		a.remaps = append(a.remaps, compiledRemap{from: from, to: to})
		if r.Bidirectional {
			a.remaps = append(a.remaps, compiledRemap{from: to, to: from})
		}
	}
	for i, m := range p.Macros {
		ms, err := compileMacro(m)
		if err != nil {
			return nil, fmt.Errorf("macro %d: %w", i, err)
		}
		a.macros = append(a.macros, ms)
	}
	return a, nil
}

// Apply transforms an input snapshot: remaps first, then macros layered on
// the remapped state. Macro time advances with the snapshot's timestamp.
func (a *Applier) Apply(in state.ControllerState) state.ControllerState {
	out := in
	out.Buttons = a.applyRemaps(in.Buttons)
	for _, m := range a.macros {
		out.Buttons = m.step(out.Buttons, in.TimestampMS)
	}
	return out
}

// applyRemaps resolves the ordered remap list. A remapped source feeds its
// value to the target; targets claimed by an earlier remap are not
// overwritten; sources that are not themselves a target read as released.
func (a *Applier) applyRemaps(in state.Button) state.Button {
	if len(a.remaps) == 0 {
		return in
	}
	out := in
	var claimed, consumed state.Button
	for _, r := range a.remaps {
		consumed |= r.from
		if claimed&r.to != 0 {
			continue
		}
		claimed |= r.to
		if in&r.from != 0 {
			out |= r.to
		} else {
			out &^= r.to
		}
	}
	// A consumed source no longer asserts its own bit unless some remap
	// assigned that bit a value.
	out &^= consumed &^ claimed
	return out
}
