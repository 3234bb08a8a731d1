// Package driver defines the source-controller driver contract and the
// registry that selects a driver by USB VID/PID.
package driver

import (
	"errors"

	"github.com/Alia5/dsbridge/state"
)

// Handle is an opaque positive device handle returned by FindDevice.
type Handle int

// Sentinel errors of the driver contract. Everything else a driver returns
// is wrapped detail; callers branch with errors.Is on these.
var (
	// ErrTransient marks a retryable read/write failure; the caller keeps
	// the handle and retries on its next tick.
	ErrTransient = errors.New("transient device error")
	// ErrDisconnected marks a fatal handle failure; the caller drops the
	// driver and re-scans.
	ErrDisconnected = errors.New("device disconnected")
	// ErrNoDevice is returned by FindDevice and Scan when nothing matched.
	ErrNoDevice = errors.New("no device found")
)

// Capability describes optional hardware a source controller carries.
type Capability uint8

const (
	CapMotion Capability = 1 << iota
	CapTouchpad
	CapRumble
	CapLightbar
)

// Descriptor identifies a driver and the hardware it serves.
type Descriptor struct {
	Name         string
	Manufacturer string
	VendorID     uint16
	ProductID    uint16
	Capabilities Capability
}

// Driver is the closed set of operations the bridge needs from a source
// controller. Implementations live in subpackages and register themselves
// with a Registry at startup.
type Driver interface {
	Descriptor() Descriptor

	// Match reports whether this driver serves the given VID/PID.
	Match(vid, pid uint16) bool

	// FindDevice locates attached hardware and returns a handle for it,
	// or ErrNoDevice.
	FindDevice() (Handle, error)

	// Init prepares driver-global state; called once at registration.
	Init() error
	// Shutdown releases driver-global state.
	Shutdown()

	// ReadInput blocks for the next raw report on h and fills st.
	// Returns ErrTransient on a retryable failure, ErrDisconnected when
	// the handle is dead.
	ReadInput(h Handle, st *state.ControllerState) error

	// SendOutput pushes the desired rumble/LED state to the device.
	// Same error contract as ReadInput.
	SendOutput(h Handle, out *state.ControllerOutput) error
}
