package driver

import (
	"errors"
	"fmt"
	"sync"
)

// MaxDrivers bounds the registry; registration past this fails.
const MaxDrivers = 16

var (
	ErrNilDriver    = errors.New("nil driver")
	ErrRegistryFull = errors.New("driver registry full")
)

// Registry holds the registered drivers in registration order and tracks
// which driver currently owns the attached source device.
type Registry struct {
	mu      sync.Mutex
	drivers []Driver

	active       Driver
	activeHandle Handle
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make([]Driver, 0, MaxDrivers)}
}

// Register appends a driver and runs its Init. Registration order is the
// match/scan priority order.
func (r *Registry) Register(d Driver) error {
	if d == nil {
		return ErrNilDriver
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.drivers) >= MaxDrivers {
		return ErrRegistryFull
	}
	if err := d.Init(); err != nil {
		return fmt.Errorf("init %s: %w", d.Descriptor().Name, err)
	}
	r.drivers = append(r.drivers, d)
	return nil
}

// Len returns the number of registered drivers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drivers)
}

// Find returns the first registered driver matching vid/pid, ties broken by
// registration order.
func (r *Registry) Find(vid, pid uint16) (Driver, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.drivers {
		if d.Match(vid, pid) {
			return d, true
		}
	}
	return nil, false
}

// Scan asks each driver, in registration order, to locate its hardware. The
// first driver returning a handle becomes the active driver. Returns
// ErrNoDevice when nothing is attached.
func (r *Registry) Scan() (Driver, Handle, error) {
	r.mu.Lock()
	drivers := make([]Driver, len(r.drivers))
	copy(drivers, r.drivers)
	r.mu.Unlock()

	for _, d := range drivers {
		h, err := d.FindDevice()
		if err != nil {
			continue
		}
		r.SetActive(d, h)
		return d, h, nil
	}
	return nil, 0, ErrNoDevice
}

// SetActive records the driver/handle pair owning the source device.
func (r *Registry) SetActive(d Driver, h Handle) {
	r.mu.Lock()
	r.active = d
	r.activeHandle = h
	r.mu.Unlock()
}

// ClearActive drops the active driver, typically after ErrDisconnected.
func (r *Registry) ClearActive() {
	r.mu.Lock()
	r.active = nil
	r.activeHandle = 0
	r.mu.Unlock()
}

// Active returns the active driver/handle pair, if any.
func (r *Registry) Active() (Driver, Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil, 0, false
	}
	return r.active, r.activeHandle, true
}

// Shutdown stops every registered driver.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	drivers := make([]Driver, len(r.drivers))
	copy(drivers, r.drivers)
	r.mu.Unlock()
	for _, d := range drivers {
		d.Shutdown()
	}
}
