package bridge

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/dsbridge/driver"
	dstesting "github.com/Alia5/dsbridge/internal/testing"
	"github.com/Alia5/dsbridge/lightbar"
	"github.com/Alia5/dsbridge/state"
)

func newTestForwarder(t *testing.T, mock *dstesting.MockDriver) (*Forwarder, *state.Bus, *driver.Registry) {
	t.Helper()
	bus := state.NewBus()
	reg := driver.NewRegistry()
	require.NoError(t, reg.Register(mock))
	reg.SetActive(mock, 1)
	lb := lightbar.NewReader(filepath.Join(t.TempDir(), "absent"), nil)
	return NewForwarder(bus, reg, lb, slog.Default()), bus, reg
}

func TestTickSendsOnceForOneChange(t *testing.T) {
	mock := &dstesting.MockDriver{Desc: driver.Descriptor{Name: "mock"}}
	f, bus, _ := newTestForwarder(t, mock)

	out := state.ControllerOutput{RumbleLeft: 0x80, RumbleRight: 0xFF}
	bus.UpdateOutput(&out)

	f.Tick()
	assert.Equal(t, 1, mock.SendCount())
	assert.Equal(t, out, mock.LastSent())

	// No further change: no further sends.
	f.Tick()
	f.Tick()
	assert.Equal(t, 1, mock.SendCount())
}

func TestTickNoDriverKeepsDirty(t *testing.T) {
	mock := &dstesting.MockDriver{Desc: driver.Descriptor{Name: "mock"}}
	f, bus, reg := newTestForwarder(t, mock)
	reg.ClearActive()

	out := state.ControllerOutput{LedR: 1}
	bus.UpdateOutput(&out)

	f.Tick()
	assert.Equal(t, 0, mock.SendCount())

	// Device comes back: the pending snapshot goes out.
	reg.SetActive(mock, 1)
	f.Tick()
	assert.Equal(t, 1, mock.SendCount())
}

func TestTickTransientFailureRetries(t *testing.T) {
	fails := 3
	mock := &dstesting.MockDriver{Desc: driver.Descriptor{Name: "mock"}}
	mock.SendFunc = func(h driver.Handle, out *state.ControllerOutput) error {
		if fails > 0 {
			fails--
			return fmt.Errorf("%w: busy", driver.ErrTransient)
		}
		return nil
	}
	f, bus, _ := newTestForwarder(t, mock)

	out := state.ControllerOutput{LedG: 9}
	bus.UpdateOutput(&out)

	// Three failing ticks, then success; each failure re-latched dirty.
	f.Tick()
	f.Tick()
	f.Tick()
	f.Tick()
	assert.Equal(t, 4, mock.SendCount())

	// Clean after success.
	f.Tick()
	assert.Equal(t, 4, mock.SendCount())
}

func TestTickDisconnectClearsActive(t *testing.T) {
	mock := &dstesting.MockDriver{Desc: driver.Descriptor{Name: "mock"}}
	mock.SendFunc = func(h driver.Handle, out *state.ControllerOutput) error {
		return fmt.Errorf("%w: gone", driver.ErrDisconnected)
	}
	f, bus, reg := newTestForwarder(t, mock)

	out := state.ControllerOutput{LedB: 4}
	bus.UpdateOutput(&out)
	f.Tick()

	_, _, ok := reg.Active()
	assert.False(t, ok, "disconnect drops the active driver")
}

func TestLightbarPollFoldsIntoOutput(t *testing.T) {
	mock := &dstesting.MockDriver{Desc: driver.Descriptor{Name: "mock"}}

	dir := t.TempDir()
	path := filepath.Join(dir, "lightbar")
	require.NoError(t, os.WriteFile(path, []byte(`{"r": 12, "g": 34, "b": 56}`), 0o644))

	bus := state.NewBus()
	reg := driver.NewRegistry()
	require.NoError(t, reg.Register(mock))
	reg.SetActive(mock, 1)
	f := NewForwarder(bus, reg, lightbar.NewReader(path, nil), slog.Default())

	// First tick polls the IPC file and forwards the change.
	f.Tick()
	assert.Equal(t, 1, mock.SendCount())
	sent := mock.LastSent()
	assert.Equal(t, uint8(12), sent.LedR)
	assert.Equal(t, uint8(34), sent.LedG)
	assert.Equal(t, uint8(56), sent.LedB)
}
