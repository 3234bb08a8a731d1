package ds3

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/dsbridge/state"
)

func newTestEmulator(standby func() bool) (*Emulator, *state.Bus) {
	bus := state.NewBus()
	return New(bus, standby, slog.Default()), bus
}

func fetchReportDescriptor(e *Emulator) []byte {
	resp, ok := e.HandleControl(ReqTypeGetStdInterface, StdGetDescriptor,
		uint16(DescTypeHIDReport)<<8, 0, uint16(len(ReportDescriptor)), nil)
	if !ok {
		return nil
	}
	return resp
}

func runHandshake(t *testing.T, e *Emulator) {
	t.Helper()
	require.NotNil(t, fetchReportDescriptor(e))

	_, ok := e.HandleControl(ReqTypeGetClassInterface, HIDGetReport, 0x03F2, 0, 64, nil)
	require.True(t, ok)
	_, ok = e.HandleControl(ReqTypeGetClassInterface, HIDGetReport, 0x03F5, 0, 8, nil)
	require.True(t, ok)
	ok = func() bool {
		_, ok := e.HandleControl(ReqTypeSetClassInterface, HIDSetReport, 0x03F4, 0, 4, enableF4)
		return ok
	}()
	require.True(t, ok)
}

func TestHandshakeSequenceReachesOperational(t *testing.T) {
	e, _ := newTestEmulator(nil)

	assert.Equal(t, WaitEnum, e.State())
	fetchReportDescriptor(e)
	assert.Equal(t, WaitGetReportF2, e.State())

	e.HandleControl(ReqTypeGetClassInterface, HIDGetReport, 0x03F2, 0, 64, nil)
	assert.Equal(t, WaitGetReportF5, e.State())

	e.HandleControl(ReqTypeGetClassInterface, HIDGetReport, 0x03F5, 0, 8, nil)
	assert.Equal(t, WaitSetReportF4, e.State())
	assert.False(t, e.Operational(), "data channel must stay silent before f4")

	e.HandleControl(ReqTypeSetClassInterface, HIDSetReport, 0x03F4, 0, 4, enableF4)
	assert.Equal(t, Operational, e.State())
	assert.True(t, e.Operational())
}

func TestOutOfOrderRequestAnsweredWithoutAdvance(t *testing.T) {
	e, _ := newTestEmulator(nil)

	// F5 before enumeration finished: canned answer, no state change.
	resp, ok := e.HandleControl(ReqTypeGetClassInterface, HIDGetReport, 0x03F5, 0, 8, nil)
	assert.True(t, ok)
	assert.Len(t, resp, 8)
	assert.Equal(t, WaitEnum, e.State())

	// F2 twice: second read repeats the canned bytes, state stays.
	fetchReportDescriptor(e)
	e.HandleControl(ReqTypeGetClassInterface, HIDGetReport, 0x03F2, 0, 64, nil)
	resp, ok = e.HandleControl(ReqTypeGetClassInterface, HIDGetReport, 0x03F2, 0, 64, nil)
	assert.True(t, ok)
	assert.NotNil(t, resp)
	assert.Equal(t, WaitGetReportF5, e.State())
}

func TestF2CarriesConfiguredAddress(t *testing.T) {
	e, _ := newTestEmulator(nil)
	bd := [6]byte{0x00, 0x19, 0xC1, 0x11, 0x22, 0x33}
	e.SetAddresses(bd, [6]byte{})

	resp, ok := e.HandleControl(ReqTypeGetClassInterface, HIDGetReport, 0x03F2, 0, 64, nil)
	require.True(t, ok)
	assert.Equal(t, bd[:], resp[reportF2AddrOffset:reportF2AddrOffset+6])
}

func TestF5PairingWriteUpdatesHostAddress(t *testing.T) {
	e, _ := newTestEmulator(nil)

	payload := []byte{0x01, 0x00, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	_, ok := e.HandleControl(ReqTypeSetClassInterface, HIDSetReport, 0x03F5, 0,
		uint16(len(payload)), payload)
	assert.True(t, ok)

	resp, ok := e.HandleControl(ReqTypeGetClassInterface, HIDGetReport, 0x03F5, 0, 8, nil)
	require.True(t, ok)
	assert.Equal(t, payload[2:8], resp[reportF5AddrOffset:reportF5AddrOffset+6])
}

func TestGetReportClipsToWLength(t *testing.T) {
	e, _ := newTestEmulator(nil)
	resp, ok := e.HandleControl(ReqTypeGetClassInterface, HIDGetReport, 0x03F2, 0, 4, nil)
	require.True(t, ok)
	assert.Len(t, resp, 4)
}

func TestResetDropsToWaitEnum(t *testing.T) {
	e, _ := newTestEmulator(nil)
	runHandshake(t, e)
	require.True(t, e.Operational())

	e.Reset()
	assert.Equal(t, WaitEnum, e.State())
}

func TestOutputReportRumbleToBus(t *testing.T) {
	e, bus := newTestEmulator(nil)

	report := make([]byte, 48)
	report[0] = 0x01
	report[outOffRumbleSmall] = 0x80
	report[outOffRumbleLarge] = 0xFF
	report[outOffLeds] = 0x02 // player 1

	_, ok := e.HandleControl(ReqTypeSetClassInterface, HIDSetReport, 0x0101, 0,
		uint16(len(report)), report)
	assert.True(t, ok)

	out := bus.SnapshotOutput()
	assert.Equal(t, uint8(0x80), out.RumbleLeft)
	assert.Equal(t, uint8(0xFF), out.RumbleRight)
	assert.Equal(t, uint8(0x01), out.PlayerLEDs)
	assert.True(t, bus.TakeOutputDirty())
}

func TestOutputReportLedsDiscardedInStandby(t *testing.T) {
	e, bus := newTestEmulator(func() bool { return true })

	bus.ModifyOutput(func(o *state.ControllerOutput) { o.PlayerLEDs = 0x0F })
	bus.TakeOutputDirty()

	report := make([]byte, 48)
	report[0] = 0x01
	report[outOffRumbleSmall] = 0x10
	report[outOffLeds] = 0x02

	e.HandleOutputReport(report)

	out := bus.SnapshotOutput()
	assert.Equal(t, uint8(0x0F), out.PlayerLEDs, "host LEDs must not override standby state")
	assert.Equal(t, uint8(0x10), out.RumbleLeft)
}

func TestUnknownControlRequestRejected(t *testing.T) {
	e, _ := newTestEmulator(nil)
	_, ok := e.HandleControl(0x40, 0x99, 0, 0, 0, nil)
	assert.False(t, ok)
	assert.Equal(t, WaitEnum, e.State())
}
