package remap

import (
	"fmt"

	"github.com/Alia5/dsbridge/state"
)

type compiledStep struct {
	action     string
	button     state.Button
	durationMS int64
}

// macroState is one macro's transducer. step is called once per input
// snapshot with the snapshot timestamp as the time source.
type macroState struct {
	kind       string
	trigger    state.Button
	modifier   state.Button
	target     state.Button
	activation string
	periodMS   int64
	steps      []compiledStep

	prevTrigger bool
	gate        bool  // activation-toggle latch
	gateSince   int64 // duty cycle phase origin
	latch       bool  // toggle-kind output latch

	seqRunning bool
	seqIdx     int
	seqStepAt  int64
	held       state.Button
}

func compileMacro(m Macro) (*macroState, error) {
	ms := &macroState{kind: m.Kind, activation: m.Activation}

	trigger, ok := state.ButtonByName(m.Trigger)
	if !ok {
		return nil, fmt.Errorf("unknown trigger button %q", m.Trigger)
	}
	ms.trigger = trigger

	if m.Modifier != "" {
		mod, ok := state.ButtonByName(m.Modifier)
		if !ok {
			return nil, fmt.Errorf("unknown modifier button %q", m.Modifier)
		}
		ms.modifier = mod
	}

	switch m.Kind {
	case KindRapidFire, KindTurbo, KindToggle:
		target, ok := state.ButtonByName(m.Target)
		if !ok {
			return nil, fmt.Errorf("unknown target button %q", m.Target)
		}
		ms.target = target
	case KindSequence:
		if len(m.Steps) == 0 {
			return nil, fmt.Errorf("sequence macro has no steps")
		}
		for i, s := range m.Steps {
			cs := compiledStep{action: s.Action, durationMS: s.DurationMS}
			switch s.Action {
			case StepWait:
			case StepPress, StepHold, StepRelease:
				b, ok := state.ButtonByName(s.Button)
				if !ok {
					return nil, fmt.Errorf("step %d: unknown button %q", i, s.Button)
				}
				cs.button = b
			default:
				return nil, fmt.Errorf("step %d: unknown action %q", i, s.Action)
			}
			ms.steps = append(ms.steps, cs)
		}
	default:
		return nil, fmt.Errorf("unknown macro kind %q", m.Kind)
	}

	switch m.Activation {
	case "", ActivationOnPress, ActivationOnHold, ActivationOnRelease, ActivationToggle:
	default:
		return nil, fmt.Errorf("unknown activation mode %q", m.Activation)
	}
	if ms.activation == "" {
		ms.activation = ActivationOnPress
	}
	// Turbo is rapid fire whose predicate is always "trigger held".
	if m.Kind == KindTurbo {
		ms.activation = ActivationOnHold
	}

	if m.Kind == KindRapidFire || m.Kind == KindTurbo {
		rate := m.RateHz
		if rate <= 0 {
			rate = 10
		}
		ms.periodMS = int64(1000 / rate)
		if ms.periodMS < 2 {
			ms.periodMS = 2
		}
	}
	return ms, nil
}

// step advances the macro by one snapshot and returns the transformed
// button field.
func (m *macroState) step(btns state.Button, nowMS int64) state.Button {
	held := btns&m.trigger != 0
	qualified := m.modifier == 0 || btns&m.modifier == m.modifier
	rising := held && !m.prevTrigger && qualified
	falling := !held && m.prevTrigger && qualified
	m.prevTrigger = held

	if m.activation == ActivationToggle && rising {
		m.gate = !m.gate
		m.gateSince = nowMS
	}

	switch m.kind {
	case KindRapidFire, KindTurbo:
		return m.stepRapidFire(btns, nowMS, held, qualified, rising)
	case KindToggle:
		return m.stepToggle(btns, rising, falling)
	case KindSequence:
		return m.stepSequence(btns, nowMS, rising, falling)
	}
	return btns
}

func (m *macroState) stepRapidFire(btns state.Button, nowMS int64, held, qualified, rising bool) state.Button {
	active := false
	switch m.activation {
	case ActivationToggle:
		active = m.gate
	default:
		active = held && qualified
		if rising {
			m.gateSince = nowMS
		}
	}
	if !active {
		return btns
	}
	// 50% duty cycle phased from activation.
	phase := (nowMS - m.gateSince) % m.periodMS
	if phase < m.periodMS/2 {
		return btns | m.target
	}
	return btns &^ m.target
}

func (m *macroState) stepToggle(btns state.Button, rising, falling bool) state.Button {
	switch m.activation {
	case ActivationOnRelease:
		if falling {
			m.latch = !m.latch
		}
	case ActivationToggle:
		// gate already flipped on the rising edge; mirror it.
		m.latch = m.gate
	default:
		if rising {
			m.latch = !m.latch
		}
	}
	if m.latch {
		return btns | m.target
	}
	return btns
}

func (m *macroState) stepSequence(btns state.Button, nowMS int64, rising, falling bool) state.Button {
	start := false
	switch m.activation {
	case ActivationOnRelease:
		start = falling
	case ActivationToggle:
		start = rising && m.gate
	default:
		start = rising
	}
	if start && !m.seqRunning {
		m.seqRunning = true
		m.seqIdx = 0
		m.seqStepAt = nowMS
		m.held = 0
	}
	if !m.seqRunning {
		return btns | m.held
	}

	// Advance past completed steps; several may elapse between snapshots.
	for m.seqRunning {
		step := m.steps[m.seqIdx]
		if step.action == StepHold && nowMS-m.seqStepAt >= step.durationMS {
			m.held |= step.button
		}
		if step.action == StepRelease {
			m.held &^= step.button
		}
		if nowMS-m.seqStepAt < step.durationMS {
			break
		}
		m.seqStepAt += step.durationMS
		m.seqIdx++
		if m.seqIdx >= len(m.steps) {
			m.seqRunning = false
		}
	}

	out := btns | m.held
	if m.seqRunning {
		step := m.steps[m.seqIdx]
		switch step.action {
		case StepPress:
			out |= step.button
		case StepHold:
			out |= step.button
		}
	}
	return out
}
