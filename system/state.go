// Package system owns the bridge-wide ACTIVE/STANDBY/WAKING state and the
// PS-button gesture that drives it.
package system

import (
	"log/slog"
	"sync"

	"github.com/Alia5/dsbridge/internal/clock"
	dslog "github.com/Alia5/dsbridge/internal/log"
	"github.com/Alia5/dsbridge/state"
)

// State is the bridge lifecycle state.
type State int

const (
	Active State = iota
	Standby
	Waking
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Standby:
		return "standby"
	case Waking:
		return "waking"
	default:
		return "?"
	}
}

// DebounceMS is the minimum spacing between accepted transitions.
const DebounceMS = 2000

// Standby lightbar: dim amber. Waking: red.
var (
	standbyLed = state.ControllerOutput{LedR: 30, LedG: 15}
	wakingLed  = state.ControllerOutput{LedR: 255}
)

// Link is the PS3-side connection the machine tears down and re-establishes.
// The protocol emulator's Bluetooth half implements it; tests inject a mock.
type Link interface {
	Disconnect() error
	Wake() error
}

// Machine is the system state machine. All mutating operations debounce
// against the last accepted transition and silently drop rejected calls.
type Machine struct {
	mu             sync.Mutex
	state          State
	lastTransition int64

	now    func() int64
	link   Link
	bus    *state.Bus
	logger *slog.Logger
}

// NewMachine returns a machine in ACTIVE. now may be nil for the process
// monotonic clock.
func NewMachine(link Link, bus *state.Bus, logger *slog.Logger, now func() int64) *Machine {
	if now == nil {
		now = clock.NowMS
	}
	return &Machine{
		state:          Active,
		lastTransition: -DebounceMS, // first transition is never debounced
		now:            now,
		link:           link,
		bus:            bus,
		logger:         logger.With(dslog.CategoryKey, "state"),
	}
}

// GetState returns the current state.
func (m *Machine) GetState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsStandby reports whether the bridge is in standby.
func (m *Machine) IsStandby() bool {
	return m.GetState() == Standby
}

// EnterStandby moves ACTIVE→STANDBY: the PS3 link is dropped, the lightbar
// dims to amber and rumble stops. Calls inside the debounce window or from
// the wrong state are silent no-ops.
func (m *Machine) EnterStandby() {
	m.mu.Lock()
	if m.state != Active || !m.debounced() {
		m.mu.Unlock()
		return
	}
	m.state = Standby
	m.lastTransition = m.now()
	m.mu.Unlock()

	m.logger.Info("entering standby")

	if err := m.link.Disconnect(); err != nil {
		m.logger.Warn("link disconnect failed", "error", err)
	}

	m.bus.ModifyOutput(func(o *state.ControllerOutput) {
		o.RumbleLeft = 0
		o.RumbleRight = 0
		o.LedR, o.LedG, o.LedB = standbyLed.LedR, standbyLed.LedG, standbyLed.LedB
	})
}

// ExitStandby moves STANDBY→WAKING→ACTIVE. The wake attempt's outcome does
// not block the transition to ACTIVE; a failure is only logged.
func (m *Machine) ExitStandby() {
	m.mu.Lock()
	if m.state != Standby || !m.debounced() {
		m.mu.Unlock()
		return
	}
	m.state = Waking
	m.lastTransition = m.now()
	m.mu.Unlock()

	m.logger.Info("waking")

	m.bus.ModifyOutput(func(o *state.ControllerOutput) {
		o.LedR, o.LedG, o.LedB = wakingLed.LedR, wakingLed.LedG, wakingLed.LedB
	})

	if err := m.link.Wake(); err != nil {
		m.logger.Warn("wake attempt failed", "error", err)
	}

	m.mu.Lock()
	m.state = Active
	m.mu.Unlock()
}

// debounced reports whether enough time passed since the last accepted
// transition. Caller holds the lock.
func (m *Machine) debounced() bool {
	return m.now()-m.lastTransition >= DebounceMS
}
