// Package testing provides shared mocks for bridge tests.
package testing

import (
	"sync"

	"github.com/Alia5/dsbridge/driver"
	"github.com/Alia5/dsbridge/state"
)

// MockDriver is a configurable driver.Driver for tests. Zero-value methods
// behave like an attached, always-healthy device.
type MockDriver struct {
	Desc driver.Descriptor

	FindFunc func() (driver.Handle, error)
	ReadFunc func(h driver.Handle, st *state.ControllerState) error
	SendFunc func(h driver.Handle, out *state.ControllerOutput) error

	mu        sync.Mutex
	initCount int
	sendCount int
	lastSent  state.ControllerOutput
}

func (m *MockDriver) Descriptor() driver.Descriptor { return m.Desc }

func (m *MockDriver) Match(vid, pid uint16) bool {
	return vid == m.Desc.VendorID && pid == m.Desc.ProductID
}

func (m *MockDriver) FindDevice() (driver.Handle, error) {
	if m.FindFunc != nil {
		return m.FindFunc()
	}
	return 1, nil
}

func (m *MockDriver) Init() error {
	m.mu.Lock()
	m.initCount++
	m.mu.Unlock()
	return nil
}

func (m *MockDriver) Shutdown() {}

func (m *MockDriver) ReadInput(h driver.Handle, st *state.ControllerState) error {
	if m.ReadFunc != nil {
		return m.ReadFunc(h, st)
	}
	*st = state.Neutral(0)
	return nil
}

func (m *MockDriver) SendOutput(h driver.Handle, out *state.ControllerOutput) error {
	m.mu.Lock()
	m.sendCount++
	m.lastSent = *out
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(h, out)
	}
	return nil
}

// SendCount returns how many times SendOutput was called.
func (m *MockDriver) SendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendCount
}

// LastSent returns the most recent output pushed to the device.
func (m *MockDriver) LastSent() state.ControllerOutput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSent
}

// MockLink records Disconnect/Wake calls for system state machine tests.
type MockLink struct {
	mu          sync.Mutex
	disconnects int
	wakes       int

	DisconnectErr error
	WakeErr       error
}

func (l *MockLink) Disconnect() error {
	l.mu.Lock()
	l.disconnects++
	l.mu.Unlock()
	return l.DisconnectErr
}

func (l *MockLink) Wake() error {
	l.mu.Lock()
	l.wakes++
	l.mu.Unlock()
	return l.WakeErr
}

// DisconnectCount returns the number of Disconnect calls.
func (l *MockLink) DisconnectCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.disconnects
}

// WakeCount returns the number of Wake calls.
func (l *MockLink) WakeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wakes
}
